package syncengine

import (
	"context"
	"fmt"
	"time"

	"github.com/dimitrije/linkshelf-api/internal/database"
	"github.com/dimitrije/linkshelf-api/internal/models"
	"github.com/google/uuid"
)

type BookmarkKind struct{}

func (BookmarkKind) Type() models.EntityType { return models.EntityBookmarks }

func (BookmarkKind) LoadExisting(ctx context.Context, q database.Querier, userID, id uuid.UUID) (*models.EntityVersion, error) {
	return loadVersion(ctx, q, `
		SELECT b.id, b.user_id, b.updated_at, b.is_deleted, `+bookmarkEditable+`
		FROM bookmarks b
		WHERE b.id = $2 AND `+bookmarkVisible, userID, id)
}

func (BookmarkKind) Create(ctx context.Context, q database.Querier, userID uuid.UUID, ch Change, now time.Time) error {
	p := ch.Patch.(*models.BookmarkPatch)
	if p.URL == nil || *p.URL == "" {
		return &FieldError{Field: "url"}
	}
	_, err := q.Exec(ctx, `
		INSERT INTO bookmarks (id, user_id, url, title, description, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	`, ch.ID, userID, *p.URL, p.Title, p.Description, p.Notes, now)
	return err
}

func (BookmarkKind) Update(ctx context.Context, q database.Querier, ch Change, expected, now time.Time) (bool, error) {
	p := ch.Patch.(*models.BookmarkPatch)
	tag, err := q.Exec(ctx, `
		UPDATE bookmarks SET
			url = COALESCE($3, url),
			title = COALESCE($4, title),
			description = COALESCE($5, description),
			notes = COALESCE($6, notes),
			updated_at = $7
		WHERE id = $1 AND updated_at = $2
	`, ch.ID, expected, emptyAsNil(p.URL), p.Title, p.Description, p.Notes, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (BookmarkKind) SoftDelete(ctx context.Context, q database.Querier, id uuid.UUID, now time.Time) error {
	return softDelete(ctx, q, "bookmarks", id, now)
}

type relation struct {
	table, column string
	// target is the related table aliased as t; writable filters it to rows
	// user $2 may write to.
	target, writable string
}

var bookmarkRelations = [...]relation{
	{"bookmark_folders", "folder_id", "folders t", `(t.user_id = $2 OR EXISTS (
		SELECT 1 FROM folder_collaborators fc
		WHERE fc.folder_id = t.id AND fc.user_id = $2 AND fc.role IN ` + editRoles + `))`},
	{"bookmark_tags", "tag_id", "tags t", `t.user_id = $2`},
	{"bookmark_collections", "collection_id", "collections t", `(t.user_id = $2 OR EXISTS (
		SELECT 1 FROM collection_collaborators cc
		WHERE cc.collection_id = t.id AND cc.user_id = $2 AND cc.role IN ` + editRoles + `))`},
}

// ReplaceRelations swaps each membership set the client sent for the new
// one. Only rows pointing at targets the user may write are removed, so a
// collaborator cannot drop memberships they never saw.
func (BookmarkKind) ReplaceRelations(ctx context.Context, q database.Querier, userID uuid.UUID, ch Change) (int, error) {
	p := ch.Patch.(*models.BookmarkPatch)
	sets := [...]*[]uuid.UUID{p.FolderIDs, p.TagIDs, p.CollectionIDs}

	skipped := 0
	for i, rel := range bookmarkRelations {
		ids := sets[i]
		if ids == nil {
			continue
		}

		_, err := q.Exec(ctx, fmt.Sprintf(`
			DELETE FROM %[1]s x WHERE x.bookmark_id = $1 AND EXISTS (
				SELECT 1 FROM %[3]s WHERE t.id = x.%[2]s AND %[4]s
			)
		`, rel.table, rel.column, rel.target, rel.writable), ch.ID, userID)
		if err != nil {
			return 0, fmt.Errorf("failed to clear %s: %w", rel.table, err)
		}

		if len(*ids) == 0 {
			continue
		}
		tag, err := q.Exec(ctx, fmt.Sprintf(`
			INSERT INTO %[1]s (bookmark_id, %[2]s)
			SELECT $1::uuid, t.id FROM %[3]s
			WHERE t.id = ANY($3) AND NOT t.is_deleted AND %[4]s
			ON CONFLICT DO NOTHING
		`, rel.table, rel.column, rel.target, rel.writable), ch.ID, userID, *ids)
		if err != nil {
			return 0, fmt.Errorf("failed to insert %s: %w", rel.table, err)
		}
		skipped += len(*ids) - int(tag.RowsAffected())
	}
	return skipped, nil
}

func (BookmarkKind) CollectSince(ctx context.Context, q database.Querier, userID uuid.UUID, since *time.Time) ([]models.Record, []models.Tombstone, error) {
	rows, err := q.Query(ctx, `
		SELECT b.id, b.user_id, b.url, b.title, b.description, b.notes,
		       b.is_deleted, b.deleted_at, b.created_at, b.updated_at,
		       ARRAY(SELECT bf.folder_id FROM bookmark_folders bf WHERE bf.bookmark_id = b.id ORDER BY bf.folder_id),
		       ARRAY(SELECT bt.tag_id FROM bookmark_tags bt WHERE bt.bookmark_id = b.id ORDER BY bt.tag_id),
		       ARRAY(SELECT bc.collection_id FROM bookmark_collections bc WHERE bc.bookmark_id = b.id ORDER BY bc.collection_id)
		FROM bookmarks b
		WHERE `+bookmarkVisible+` AND `+fmt.Sprintf(changedSince, "b")+`
		ORDER BY b.updated_at, b.id
	`, userID, since)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query bookmarks: %w", err)
	}
	defer rows.Close()

	var (
		live []models.Record
		gone []models.Tombstone
	)
	for rows.Next() {
		var b models.Bookmark
		if err := rows.Scan(
			&b.ID, &b.UserID, &b.URL, &b.Title, &b.Description, &b.Notes,
			&b.IsDeleted, &b.DeletedAt, &b.CreatedAt, &b.UpdatedAt,
			&b.FolderIDs, &b.TagIDs, &b.CollectionIDs,
		); err != nil {
			return nil, nil, fmt.Errorf("failed to scan bookmark: %w", err)
		}
		if b.IsDeleted {
			gone = append(gone, tombstoneFor(models.EntityBookmarks, b.SyncMeta))
			continue
		}
		live = append(live, b)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read bookmarks: %w", err)
	}
	return live, gone, nil
}
