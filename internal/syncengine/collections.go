package syncengine

import (
	"context"
	"fmt"
	"time"

	"github.com/dimitrije/linkshelf-api/internal/database"
	"github.com/dimitrije/linkshelf-api/internal/models"
	"github.com/google/uuid"
)

type CollectionKind struct{}

func (CollectionKind) Type() models.EntityType { return models.EntityCollections }

func (CollectionKind) LoadExisting(ctx context.Context, q database.Querier, userID, id uuid.UUID) (*models.EntityVersion, error) {
	return loadVersion(ctx, q, `
		SELECT c.id, c.user_id, c.updated_at, c.is_deleted, `+collectionEditable+`
		FROM collections c
		WHERE c.id = $2 AND `+collectionVisible, userID, id)
}

func (CollectionKind) Create(ctx context.Context, q database.Querier, userID uuid.UUID, ch Change, now time.Time) error {
	p := ch.Patch.(*models.CollectionPatch)
	if err := requireName(p.Name); err != nil {
		return err
	}
	isPublic := p.IsPublic != nil && *p.IsPublic
	_, err := q.Exec(ctx, `
		INSERT INTO collections (id, user_id, name, description, is_public, thumbnail, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	`, ch.ID, userID, *p.Name, p.Description, isPublic, p.Thumbnail, now)
	return err
}

func (CollectionKind) Update(ctx context.Context, q database.Querier, ch Change, expected, now time.Time) (bool, error) {
	p := ch.Patch.(*models.CollectionPatch)
	tag, err := q.Exec(ctx, `
		UPDATE collections SET
			name = COALESCE($3, name),
			description = COALESCE($4, description),
			is_public = COALESCE($5, is_public),
			thumbnail = COALESCE($6, thumbnail),
			updated_at = $7
		WHERE id = $1 AND updated_at = $2
	`, ch.ID, expected, emptyAsNil(p.Name), p.Description, p.IsPublic, p.Thumbnail, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (CollectionKind) SoftDelete(ctx context.Context, q database.Querier, id uuid.UUID, now time.Time) error {
	return softDelete(ctx, q, "collections", id, now)
}

func (CollectionKind) ReplaceRelations(context.Context, database.Querier, uuid.UUID, Change) (int, error) {
	return 0, nil
}

func (CollectionKind) CollectSince(ctx context.Context, q database.Querier, userID uuid.UUID, since *time.Time) ([]models.Record, []models.Tombstone, error) {
	rows, err := q.Query(ctx, `
		SELECT c.id, c.user_id, c.name, c.description, c.is_public, c.thumbnail,
		       c.is_deleted, c.deleted_at, c.created_at, c.updated_at
		FROM collections c
		WHERE `+collectionVisible+` AND `+fmt.Sprintf(changedSince, "c")+`
		ORDER BY c.updated_at, c.id
	`, userID, since)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query collections: %w", err)
	}
	defer rows.Close()

	var (
		live []models.Record
		gone []models.Tombstone
	)
	for rows.Next() {
		var c models.Collection
		if err := rows.Scan(
			&c.ID, &c.UserID, &c.Name, &c.Description, &c.IsPublic, &c.Thumbnail,
			&c.IsDeleted, &c.DeletedAt, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		if c.IsDeleted {
			gone = append(gone, tombstoneFor(models.EntityCollections, c.SyncMeta))
			continue
		}
		live = append(live, c)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read collections: %w", err)
	}
	return live, gone, nil
}
