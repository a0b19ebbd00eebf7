package syncengine

import (
	"context"
	"fmt"
	"time"

	"github.com/dimitrije/linkshelf-api/internal/database"
	"github.com/dimitrije/linkshelf-api/internal/models"
	"github.com/google/uuid"
)

// TagKind stores tags. Tags are never shared, so only the owner sees or
// edits them.
type TagKind struct{}

func (TagKind) Type() models.EntityType { return models.EntityTags }

func (TagKind) LoadExisting(ctx context.Context, q database.Querier, userID, id uuid.UUID) (*models.EntityVersion, error) {
	return loadVersion(ctx, q, `
		SELECT t.id, t.user_id, t.updated_at, t.is_deleted, TRUE
		FROM tags t
		WHERE t.id = $2 AND t.user_id = $1`, userID, id)
}

func (TagKind) Create(ctx context.Context, q database.Querier, userID uuid.UUID, ch Change, now time.Time) error {
	p := ch.Patch.(*models.TagPatch)
	if err := requireName(p.Name); err != nil {
		return err
	}
	_, err := q.Exec(ctx, `
		INSERT INTO tags (id, user_id, name, color, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`, ch.ID, userID, *p.Name, p.Color, now)
	return err
}

func (TagKind) Update(ctx context.Context, q database.Querier, ch Change, expected, now time.Time) (bool, error) {
	p := ch.Patch.(*models.TagPatch)
	tag, err := q.Exec(ctx, `
		UPDATE tags SET
			name = COALESCE($3, name),
			color = COALESCE($4, color),
			updated_at = $5
		WHERE id = $1 AND updated_at = $2
	`, ch.ID, expected, emptyAsNil(p.Name), p.Color, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (TagKind) SoftDelete(ctx context.Context, q database.Querier, id uuid.UUID, now time.Time) error {
	return softDelete(ctx, q, "tags", id, now)
}

func (TagKind) ReplaceRelations(context.Context, database.Querier, uuid.UUID, Change) (int, error) {
	return 0, nil
}

func (TagKind) CollectSince(ctx context.Context, q database.Querier, userID uuid.UUID, since *time.Time) ([]models.Record, []models.Tombstone, error) {
	rows, err := q.Query(ctx, `
		SELECT t.id, t.user_id, t.name, t.color, t.is_deleted, t.deleted_at, t.created_at, t.updated_at
		FROM tags t
		WHERE t.user_id = $1 AND `+fmt.Sprintf(changedSince, "t")+`
		ORDER BY t.updated_at, t.id
	`, userID, since)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	var (
		live []models.Record
		gone []models.Tombstone
	)
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.Color, &t.IsDeleted, &t.DeletedAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		if t.IsDeleted {
			gone = append(gone, tombstoneFor(models.EntityTags, t.SyncMeta))
			continue
		}
		live = append(live, t)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read tags: %w", err)
	}
	return live, gone, nil
}
