package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dimitrije/linkshelf-api/internal/cache"
	"github.com/dimitrije/linkshelf-api/internal/database"
	"github.com/dimitrije/linkshelf-api/internal/models"
	"github.com/dimitrije/linkshelf-api/internal/syncengine"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrBookmarkNotFound = errors.New("bookmark not found")
	ErrBookmarkExists   = errors.New("bookmark id already in use")
)

// BookmarkService is the direct, non-sync path for bookmarks. Writes stamp
// the same server clock the sync engine uses, so their results show up in
// the next delta of every affected client.
type BookmarkService struct {
	db          *database.DB
	kind        syncengine.BookmarkKind
	tombstones  *TombstoneService
	invalidator cache.Invalidator
	logger      *slog.Logger
	now         func() time.Time
}

func NewBookmarkService(db *database.DB, tombstones *TombstoneService, invalidator cache.Invalidator, logger *slog.Logger) *BookmarkService {
	if invalidator == nil {
		invalidator = cache.Nop{}
	}
	return &BookmarkService{
		db:          db,
		tombstones:  tombstones,
		invalidator: invalidator,
		logger:      logger,
		now:         syncengine.Now,
	}
}

func (s *BookmarkService) Create(ctx context.Context, userID, id uuid.UUID, patch *models.BookmarkPatch) (*models.Bookmark, error) {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := s.now()
	change := syncengine.Change{Type: models.EntityBookmarks, ID: id, UpdatedAt: now, Patch: patch}
	if err := s.kind.Create(ctx, tx, userID, change, now); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrBookmarkExists
		}
		return nil, err
	}
	skipped, err := s.kind.ReplaceRelations(ctx, tx, userID, change)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit bookmark: %w", err)
	}

	if skipped > 0 {
		s.logger.Warn("bookmark relations skipped", "bookmark_id", id, "user_id", userID, "skipped", skipped)
	}
	s.invalidator.Invalidate(ctx, models.EntityBookmarks, id, userID)

	return s.GetByID(ctx, userID, id)
}

func (s *BookmarkService) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Bookmark, error) {
	var b models.Bookmark
	err := s.db.Pool.QueryRow(ctx, `
		SELECT b.id, b.user_id, b.url, b.title, b.description, b.notes,
		       b.is_deleted, b.deleted_at, b.created_at, b.updated_at,
		       ARRAY(SELECT bf.folder_id FROM bookmark_folders bf WHERE bf.bookmark_id = b.id ORDER BY bf.folder_id),
		       ARRAY(SELECT bt.tag_id FROM bookmark_tags bt WHERE bt.bookmark_id = b.id ORDER BY bt.tag_id),
		       ARRAY(SELECT bc.collection_id FROM bookmark_collections bc WHERE bc.bookmark_id = b.id ORDER BY bc.collection_id)
		FROM bookmarks b
		WHERE b.id = $1 AND b.user_id = $2 AND NOT b.is_deleted
	`, id, userID).Scan(
		&b.ID, &b.UserID, &b.URL, &b.Title, &b.Description, &b.Notes,
		&b.IsDeleted, &b.DeletedAt, &b.CreatedAt, &b.UpdatedAt,
		&b.FolderIDs, &b.TagIDs, &b.CollectionIDs,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBookmarkNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Delete soft-deletes an owned bookmark and records its tombstone in the
// same transaction.
func (s *BookmarkService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := s.now()
	tag, err := tx.Exec(ctx, `
		UPDATE bookmarks SET is_deleted = TRUE, deleted_at = $3, updated_at = $3
		WHERE id = $1 AND user_id = $2 AND NOT is_deleted
	`, id, userID, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBookmarkNotFound
	}

	if err := s.tombstones.Append(ctx, tx, &models.Tombstone{
		EntityType: models.EntityBookmarks,
		EntityID:   id,
		UserID:     userID,
		DeletedAt:  now,
	}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit bookmark deletion: %w", err)
	}

	s.invalidator.Invalidate(ctx, models.EntityBookmarks, id, userID)
	return nil
}
