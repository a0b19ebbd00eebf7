package syncengine

import (
	"context"
	"fmt"
	"time"

	"github.com/dimitrije/linkshelf-api/internal/database"
	"github.com/dimitrije/linkshelf-api/internal/models"
	"github.com/google/uuid"
)

type FolderKind struct{}

func (FolderKind) Type() models.EntityType { return models.EntityFolders }

func (FolderKind) LoadExisting(ctx context.Context, q database.Querier, userID, id uuid.UUID) (*models.EntityVersion, error) {
	return loadVersion(ctx, q, `
		SELECT f.id, f.user_id, f.updated_at, f.is_deleted, `+folderEditable+`
		FROM folders f
		WHERE f.id = $2 AND `+folderVisible, userID, id)
}

func (FolderKind) Create(ctx context.Context, q database.Querier, userID uuid.UUID, ch Change, now time.Time) error {
	p := ch.Patch.(*models.FolderPatch)
	if err := requireName(p.Name); err != nil {
		return err
	}
	_, err := q.Exec(ctx, `
		INSERT INTO folders (id, user_id, parent_id, name, description, icon, color, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`, ch.ID, userID, parentOrNil(p.ParentID), *p.Name, p.Description, p.Icon, p.Color, now)
	return err
}

func (FolderKind) Update(ctx context.Context, q database.Querier, ch Change, expected, now time.Time) (bool, error) {
	p := ch.Patch.(*models.FolderPatch)
	tag, err := q.Exec(ctx, `
		UPDATE folders SET
			name = COALESCE($3, name),
			description = COALESCE($4, description),
			icon = COALESCE($5, icon),
			color = COALESCE($6, color),
			parent_id = CASE WHEN $7 THEN $8::uuid ELSE parent_id END,
			updated_at = $9
		WHERE id = $1 AND updated_at = $2
	`, ch.ID, expected, emptyAsNil(p.Name), p.Description, p.Icon, p.Color, p.ParentID != nil, parentOrNil(p.ParentID), now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (FolderKind) SoftDelete(ctx context.Context, q database.Querier, id uuid.UUID, now time.Time) error {
	return softDelete(ctx, q, "folders", id, now)
}

func (FolderKind) ReplaceRelations(context.Context, database.Querier, uuid.UUID, Change) (int, error) {
	return 0, nil
}

func (FolderKind) CollectSince(ctx context.Context, q database.Querier, userID uuid.UUID, since *time.Time) ([]models.Record, []models.Tombstone, error) {
	rows, err := q.Query(ctx, `
		SELECT f.id, f.user_id, f.parent_id, f.name, f.description, f.icon, f.color,
		       f.is_deleted, f.deleted_at, f.created_at, f.updated_at
		FROM folders f
		WHERE `+folderVisible+` AND `+fmt.Sprintf(changedSince, "f")+`
		ORDER BY f.updated_at, f.id
	`, userID, since)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query folders: %w", err)
	}
	defer rows.Close()

	var (
		live []models.Record
		gone []models.Tombstone
	)
	for rows.Next() {
		var f models.Folder
		if err := rows.Scan(
			&f.ID, &f.UserID, &f.ParentID, &f.Name, &f.Description, &f.Icon, &f.Color,
			&f.IsDeleted, &f.DeletedAt, &f.CreatedAt, &f.UpdatedAt,
		); err != nil {
			return nil, nil, fmt.Errorf("failed to scan folder: %w", err)
		}
		if f.IsDeleted {
			gone = append(gone, tombstoneFor(models.EntityFolders, f.SyncMeta))
			continue
		}
		live = append(live, f)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read folders: %w", err)
	}
	return live, gone, nil
}

// parentOrNil maps the "move to root" marker to SQL NULL.
func parentOrNil(p *uuid.UUID) *uuid.UUID {
	if p == nil || *p == uuid.Nil {
		return nil
	}
	return p
}

// emptyAsNil keeps a required name when a client sends "".
func emptyAsNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
