package syncengine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dimitrije/linkshelf-api/internal/database"
	"github.com/dimitrije/linkshelf-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Kind is the storage strategy for one entity type. Every method runs on the
// Querier it is given, so the Applier can hand it a transaction.
type Kind interface {
	Type() models.EntityType

	// LoadExisting returns the row with id if userID can see it, or nil.
	// Editable reports whether userID may also write it.
	LoadExisting(ctx context.Context, q database.Querier, userID, id uuid.UUID) (*models.EntityVersion, error)
	Create(ctx context.Context, q database.Querier, userID uuid.UUID, change Change, now time.Time) error
	// Update reports false when the row no longer carries expected.
	Update(ctx context.Context, q database.Querier, change Change, expected, now time.Time) (bool, error)
	SoftDelete(ctx context.Context, q database.Querier, id uuid.UUID, now time.Time) error
	// ReplaceRelations rewrites the relation sets present in change and
	// returns how many targets were skipped for lack of write access.
	ReplaceRelations(ctx context.Context, q database.Querier, userID uuid.UUID, change Change) (int, error)
	// CollectSince returns live rows visible to userID changed after since
	// and, separately, the visible rows that are soft-deleted.
	CollectSince(ctx context.Context, q database.Querier, userID uuid.UUID, since *time.Time) ([]models.Record, []models.Tombstone, error)
}

// DefaultKinds returns the strategies in apply order.
func DefaultKinds() []Kind {
	return []Kind{FolderKind{}, TagKind{}, CollectionKind{}, BookmarkKind{}}
}

const editRoles = `('EDIT', 'ADMIN')`

// Visibility and edit predicates. $1 is the acting user throughout.
const (
	folderVisible = `(f.user_id = $1 OR EXISTS (
		SELECT 1 FROM folder_collaborators fc WHERE fc.folder_id = f.id AND fc.user_id = $1))`

	collectionVisible = `(c.user_id = $1 OR EXISTS (
		SELECT 1 FROM collection_collaborators cc WHERE cc.collection_id = c.id AND cc.user_id = $1))`

	// A bookmark is reachable through any folder or collection containing it,
	// including for the owner of that container.
	bookmarkVisible = `(b.user_id = $1
		OR EXISTS (SELECT 1 FROM bookmark_folders bf
			JOIN folders f ON f.id = bf.folder_id
			WHERE bf.bookmark_id = b.id AND ` + folderVisible + `)
		OR EXISTS (SELECT 1 FROM bookmark_collections bc
			JOIN collections c ON c.id = bc.collection_id
			WHERE bc.bookmark_id = b.id AND ` + collectionVisible + `))`

	folderEditable = `(f.user_id = $1 OR EXISTS (
		SELECT 1 FROM folder_collaborators fc WHERE fc.folder_id = f.id AND fc.user_id = $1 AND fc.role IN ` + editRoles + `))`

	collectionEditable = `(c.user_id = $1 OR EXISTS (
		SELECT 1 FROM collection_collaborators cc WHERE cc.collection_id = c.id AND cc.user_id = $1 AND cc.role IN ` + editRoles + `))`

	bookmarkEditable = `(b.user_id = $1
		OR EXISTS (SELECT 1 FROM bookmark_folders bf
			JOIN folders f ON f.id = bf.folder_id
			WHERE bf.bookmark_id = b.id AND ` + folderEditable + `)
		OR EXISTS (SELECT 1 FROM bookmark_collections bc
			JOIN collections c ON c.id = bc.collection_id
			WHERE bc.bookmark_id = b.id AND ` + collectionEditable + `))`

	changedSince = `($2::timestamptz IS NULL OR %[1]s.updated_at > $2 OR %[1]s.created_at > $2)`
)

func loadVersion(ctx context.Context, q database.Querier, sql string, userID, id uuid.UUID) (*models.EntityVersion, error) {
	var v models.EntityVersion
	err := q.QueryRow(ctx, sql, userID, id).Scan(&v.ID, &v.OwnerID, &v.UpdatedAt, &v.IsDeleted, &v.Editable)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func softDelete(ctx context.Context, q database.Querier, table string, id uuid.UUID, now time.Time) error {
	_, err := q.Exec(ctx, fmt.Sprintf(`
		UPDATE %s SET is_deleted = TRUE, deleted_at = $2, updated_at = $2
		WHERE id = $1 AND NOT is_deleted
	`, table), id, now)
	return err
}

func deletedAt(m models.SyncMeta) time.Time {
	if m.DeletedAt != nil {
		return *m.DeletedAt
	}
	return m.UpdatedAt
}

func tombstoneFor(t models.EntityType, m models.SyncMeta) models.Tombstone {
	return models.Tombstone{EntityType: t, EntityID: m.ID, UserID: m.UserID, DeletedAt: deletedAt(m)}
}

func requireName(name *string) error {
	if name == nil || *name == "" {
		return &FieldError{Field: "name"}
	}
	return nil
}
