package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dimitrije/linkshelf-api/internal/database"
	"github.com/dimitrije/linkshelf-api/internal/models"
	"github.com/dimitrije/linkshelf-api/internal/syncengine"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bookmarkColumns = []string{
	"id", "user_id", "url", "title", "description", "notes",
	"is_deleted", "deleted_at", "created_at", "updated_at",
	"folder_ids", "tag_ids", "collection_ids",
}

type invalidation struct {
	entityType models.EntityType
	id         uuid.UUID
	users      []uuid.UUID
}

type recordingInvalidator struct {
	calls []invalidation
}

func (r *recordingInvalidator) Invalidate(_ context.Context, t models.EntityType, id uuid.UUID, users ...uuid.UUID) {
	r.calls = append(r.calls, invalidation{t, id, users})
}

func setupBookmarkService(t *testing.T) (*BookmarkService, pgxmock.PgxPoolIface, *recordingInvalidator, time.Time) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	db := &database.DB{Pool: mock}
	inv := &recordingInvalidator{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewBookmarkService(db, NewTombstoneService(db), inv, logger)
	now := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return svc, mock, inv, now
}

func TestBookmarkService_Create(t *testing.T) {
	svc, mock, inv, now := setupBookmarkService(t)
	ctx := context.Background()
	userID, id, folderID := uuid.New(), uuid.New(), uuid.New()
	url := "https://go.dev"
	folders := []uuid.UUID{folderID}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO bookmarks`).
		WithArgs(id, userID, url, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`DELETE FROM bookmark_folders`).
		WithArgs(id, userID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`INSERT INTO bookmark_folders`).
		WithArgs(id, userID, folders).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectQuery(`FROM bookmarks b\s+WHERE b.id = \$1 AND b.user_id = \$2`).
		WithArgs(id, userID).
		WillReturnRows(pgxmock.NewRows(bookmarkColumns).AddRow(
			id, userID, url, (*string)(nil), (*string)(nil), (*string)(nil),
			false, (*time.Time)(nil), now, now,
			folders, []uuid.UUID{}, []uuid.UUID{},
		))

	b, err := svc.Create(ctx, userID, id, &models.BookmarkPatch{URL: &url, FolderIDs: &folders})

	require.NoError(t, err)
	assert.Equal(t, id, b.ID)
	assert.Equal(t, now, b.UpdatedAt)
	assert.Equal(t, folders, b.FolderIDs)
	require.Len(t, inv.calls, 1)
	assert.Equal(t, invalidation{models.EntityBookmarks, id, []uuid.UUID{userID}}, inv.calls[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookmarkService_Create_MissingURL(t *testing.T) {
	svc, mock, inv, _ := setupBookmarkService(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), uuid.New(), uuid.New(), &models.BookmarkPatch{})

	assert.ErrorIs(t, err, syncengine.ErrMissingField)
	assert.Empty(t, inv.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookmarkService_Create_DuplicateID(t *testing.T) {
	svc, mock, _, now := setupBookmarkService(t)
	userID, id := uuid.New(), uuid.New()
	url := "https://go.dev"

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO bookmarks`).
		WithArgs(id, userID, url, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), now).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), userID, id, &models.BookmarkPatch{URL: &url})

	assert.ErrorIs(t, err, ErrBookmarkExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookmarkService_GetByID_NotFound(t *testing.T) {
	svc, mock, _, _ := setupBookmarkService(t)
	userID, id := uuid.New(), uuid.New()

	mock.ExpectQuery(`FROM bookmarks b`).
		WithArgs(id, userID).
		WillReturnError(pgx.ErrNoRows)

	b, err := svc.GetByID(context.Background(), userID, id)

	assert.Nil(t, b)
	assert.ErrorIs(t, err, ErrBookmarkNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookmarkService_Delete_WritesTombstone(t *testing.T) {
	svc, mock, inv, now := setupBookmarkService(t)
	userID, id := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE bookmarks SET is_deleted = TRUE`).
		WithArgs(id, userID, now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(`INSERT INTO tombstones`).
		WithArgs("bookmarks", id, userID, now).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectCommit()

	err := svc.Delete(context.Background(), userID, id)

	require.NoError(t, err)
	require.Len(t, inv.calls, 1)
	assert.Equal(t, id, inv.calls[0].id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookmarkService_Delete_NotFound(t *testing.T) {
	svc, mock, inv, now := setupBookmarkService(t)
	userID, id := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE bookmarks SET is_deleted = TRUE`).
		WithArgs(id, userID, now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := svc.Delete(context.Background(), userID, id)

	assert.ErrorIs(t, err, ErrBookmarkNotFound)
	assert.Empty(t, inv.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookmarkService_Delete_TombstoneFailureRollsBack(t *testing.T) {
	svc, mock, inv, now := setupBookmarkService(t)
	userID, id := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE bookmarks SET is_deleted = TRUE`).
		WithArgs(id, userID, now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(`INSERT INTO tombstones`).
		WithArgs("bookmarks", id, userID, now).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := svc.Delete(context.Background(), userID, id)

	assert.ErrorContains(t, err, "disk full")
	assert.Empty(t, inv.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}
