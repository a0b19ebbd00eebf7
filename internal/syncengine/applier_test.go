package syncengine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dimitrije/linkshelf-api/internal/database"
	"github.com/dimitrije/linkshelf-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedTombstones struct {
	appended []models.Tombstone
	err      error
}

func (r *recordedTombstones) Append(_ context.Context, _ database.Querier, t *models.Tombstone) error {
	if r.err != nil {
		return r.err
	}
	r.appended = append(r.appended, *t)
	return nil
}

type invalidation struct {
	entityType models.EntityType
	id         uuid.UUID
	users      []uuid.UUID
}

type recordedInvalidations struct {
	calls []invalidation
}

func (r *recordedInvalidations) Invalidate(_ context.Context, t models.EntityType, id uuid.UUID, users ...uuid.UUID) {
	r.calls = append(r.calls, invalidation{t, id, users})
}

type applierFixture struct {
	applier *Applier
	mock    pgxmock.PgxPoolIface
	tombs   *recordedTombstones
	inv     *recordedInvalidations
	now     time.Time
}

func setupApplier(t *testing.T, policy Policy) *applierFixture {
	t.Helper()
	mock := newMock(t)
	f := &applierFixture{
		mock:  mock,
		tombs: &recordedTombstones{},
		inv:   &recordedInvalidations{},
		now:   time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.applier = NewApplier(&database.DB{Pool: mock}, DefaultKinds(), f.tombs, f.inv, policy, logger)
	f.applier.now = func() time.Time { return f.now }
	return f
}

func TestApplier_CreateBookmark(t *testing.T) {
	f := setupApplier(t, PolicyVersion)
	userID, id := uuid.New(), uuid.New()
	tagIDs := []uuid.UUID{uuid.New()}

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`FROM bookmarks b`).WithArgs(userID, id).WillReturnError(pgx.ErrNoRows)
	f.mock.ExpectExec(`INSERT INTO bookmarks`).
		WithArgs(id, userID, "https://x.com", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), f.now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	f.mock.ExpectExec(`DELETE FROM bookmark_tags`).WithArgs(id, userID).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	f.mock.ExpectExec(`INSERT INTO bookmark_tags`).WithArgs(id, userID, tagIDs).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	f.mock.ExpectCommit()

	out, err := f.applier.Apply(context.Background(), userID, Change{
		Type:      models.EntityBookmarks,
		ID:        id,
		UpdatedAt: f.now.Add(-time.Hour),
		Patch:     &models.BookmarkPatch{URL: strPtr("https://x.com"), TagIDs: &tagIDs},
	})

	require.NoError(t, err)
	assert.Equal(t, DecisionCreate, out.Decision)
	assert.Equal(t, f.now, out.UpdatedAt)
	assert.Zero(t, out.SkippedRelations)
	require.Len(t, f.inv.calls, 1)
	assert.Equal(t, models.EntityBookmarks, f.inv.calls[0].entityType)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestApplier_UpdateFolder(t *testing.T) {
	f := setupApplier(t, PolicyVersion)
	userID, owner, id := uuid.New(), uuid.New(), uuid.New()
	server := f.now.Add(-time.Hour)

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`FROM folders f`).
		WithArgs(userID, id).
		WillReturnRows(pgxmock.NewRows(versionColumns).AddRow(id, owner, server, false, true))
	f.mock.ExpectExec(`UPDATE folders SET`).
		WithArgs(id, server, strPtr("Renamed"), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), false, pgxmock.AnyArg(), f.now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	f.mock.ExpectCommit()

	out, err := f.applier.Apply(context.Background(), userID, Change{
		Type:      models.EntityFolders,
		ID:        id,
		UpdatedAt: server.Add(time.Minute),
		Patch:     &models.FolderPatch{Name: strPtr("Renamed")},
	})

	require.NoError(t, err)
	assert.Equal(t, DecisionUpdate, out.Decision)
	require.Len(t, f.inv.calls, 1)
	assert.ElementsMatch(t, []uuid.UUID{userID, owner}, f.inv.calls[0].users)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestApplier_StaleChangeIsConflict(t *testing.T) {
	f := setupApplier(t, PolicyVersion)
	userID, id := uuid.New(), uuid.New()
	server := f.now.Add(-time.Minute)

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`FROM tags t`).
		WithArgs(userID, id).
		WillReturnRows(pgxmock.NewRows(versionColumns).AddRow(id, userID, server, false, true))
	f.mock.ExpectRollback()

	out, err := f.applier.Apply(context.Background(), userID, Change{
		Type:      models.EntityTags,
		ID:        id,
		UpdatedAt: server.Add(-time.Second),
		Patch:     &models.TagPatch{Name: strPtr("older")},
	})

	require.NoError(t, err)
	assert.Equal(t, DecisionConflict, out.Decision)
	assert.False(t, out.Written())
	assert.Empty(t, f.inv.calls)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestApplier_LateConflict(t *testing.T) {
	f := setupApplier(t, PolicyLWW)
	userID, id := uuid.New(), uuid.New()
	server := f.now.Add(-time.Minute)

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`FROM collections c`).
		WithArgs(userID, id).
		WillReturnRows(pgxmock.NewRows(versionColumns).AddRow(id, userID, server, false, true))
	f.mock.ExpectExec(`UPDATE collections SET`).
		WithArgs(id, server, strPtr("Mine"), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), f.now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	f.mock.ExpectRollback()

	out, err := f.applier.Apply(context.Background(), userID, Change{
		Type:      models.EntityCollections,
		ID:        id,
		UpdatedAt: f.now,
		Patch:     &models.CollectionPatch{Name: strPtr("Mine")},
	})

	require.NoError(t, err)
	assert.Equal(t, DecisionConflict, out.Decision)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestApplier_DeleteWritesTombstoneForOwner(t *testing.T) {
	f := setupApplier(t, PolicyVersion)
	userID, owner, id := uuid.New(), uuid.New(), uuid.New()

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`FROM bookmarks b`).
		WithArgs(userID, id).
		WillReturnRows(pgxmock.NewRows(versionColumns).AddRow(id, owner, f.now.Add(-time.Hour), false, true))
	f.mock.ExpectExec(`UPDATE bookmarks SET is_deleted = TRUE`).
		WithArgs(id, f.now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	f.mock.ExpectCommit()

	out, err := f.applier.Apply(context.Background(), userID, Change{
		Type:      models.EntityBookmarks,
		ID:        id,
		UpdatedAt: f.now.Add(-2 * time.Hour),
		IsDeleted: true,
		Patch:     &models.BookmarkPatch{},
	})

	require.NoError(t, err)
	assert.Equal(t, DecisionDelete, out.Decision)
	require.Len(t, f.tombs.appended, 1)
	assert.Equal(t, models.Tombstone{
		EntityType: models.EntityBookmarks,
		EntityID:   id,
		UserID:     owner,
		DeletedAt:  f.now,
	}, f.tombs.appended[0])
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestApplier_DeleteOfMissingIsNoOp(t *testing.T) {
	f := setupApplier(t, PolicyVersion)
	userID, id := uuid.New(), uuid.New()

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`FROM tags t`).WithArgs(userID, id).WillReturnError(pgx.ErrNoRows)
	f.mock.ExpectRollback()

	out, err := f.applier.Apply(context.Background(), userID, Change{
		Type:      models.EntityTags,
		ID:        id,
		UpdatedAt: f.now,
		IsDeleted: true,
		Patch:     &models.TagPatch{},
	})

	require.NoError(t, err)
	assert.Equal(t, DecisionNoOp, out.Decision)
	assert.Empty(t, f.tombs.appended)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestApplier_TombstoneFailureRollsBack(t *testing.T) {
	f := setupApplier(t, PolicyVersion)
	f.tombs.err = errors.New("tombstones: disk full")
	userID, id := uuid.New(), uuid.New()

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`FROM folders f`).
		WithArgs(userID, id).
		WillReturnRows(pgxmock.NewRows(versionColumns).AddRow(id, uuid.New(), f.now.Add(-time.Hour), false, true))
	f.mock.ExpectExec(`UPDATE folders SET is_deleted = TRUE`).
		WithArgs(id, f.now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	f.mock.ExpectRollback()

	_, err := f.applier.Apply(context.Background(), userID, Change{
		Type: models.EntityFolders, ID: id, UpdatedAt: f.now, IsDeleted: true, Patch: &models.FolderPatch{},
	})

	require.Error(t, err)
	assert.Empty(t, f.inv.calls)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestApplier_CreateConstraintViolation(t *testing.T) {
	f := setupApplier(t, PolicyVersion)
	userID, id := uuid.New(), uuid.New()

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`FROM tags t`).WithArgs(userID, id).WillReturnError(pgx.ErrNoRows)
	f.mock.ExpectExec(`INSERT INTO tags`).
		WithArgs(id, userID, "dup", pgxmock.AnyArg(), f.now).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	f.mock.ExpectRollback()

	_, err := f.applier.Apply(context.Background(), userID, Change{
		Type: models.EntityTags, ID: id, UpdatedAt: f.now, Patch: &models.TagPatch{Name: strPtr("dup")},
	})

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, "id already in use", failureReason(err))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestApplier_ReadOnlyRowIsNotPermitted(t *testing.T) {
	tests := []struct {
		name      string
		isDeleted bool
	}{
		{"edit", false},
		{"delete", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupApplier(t, PolicyVersion)
			viewerID, ownerID, id := uuid.New(), uuid.New(), uuid.New()

			f.mock.ExpectBegin()
			f.mock.ExpectQuery(`FROM bookmarks b`).
				WithArgs(viewerID, id).
				WillReturnRows(pgxmock.NewRows(versionColumns).AddRow(id, ownerID, f.now.Add(-time.Hour), false, false))
			f.mock.ExpectRollback()

			_, err := f.applier.Apply(context.Background(), viewerID, Change{
				Type:      models.EntityBookmarks,
				ID:        id,
				UpdatedAt: f.now,
				IsDeleted: tt.isDeleted,
				Patch:     &models.BookmarkPatch{Title: strPtr("mine now")},
			})

			require.ErrorIs(t, err, ErrNotPermitted)
			assert.NotErrorIs(t, err, ErrUnavailable)
			assert.Equal(t, "not permitted", failureReason(err))
			assert.Empty(t, f.tombs.appended)
			assert.Empty(t, f.inv.calls)
			assert.NoError(t, f.mock.ExpectationsWereMet())
		})
	}
}

func TestApplier_BeginFailureIsSystemic(t *testing.T) {
	f := setupApplier(t, PolicyVersion)

	f.mock.ExpectBegin().WillReturnError(errors.New("pool closed"))

	_, err := f.applier.Apply(context.Background(), uuid.New(), Change{
		Type: models.EntityTags, ID: uuid.New(), UpdatedAt: f.now, Patch: &models.TagPatch{},
	})

	require.ErrorIs(t, err, ErrUnavailable)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestApplier_UnknownType(t *testing.T) {
	f := setupApplier(t, PolicyVersion)

	_, err := f.applier.Apply(context.Background(), uuid.New(), Change{Type: "notes", ID: uuid.New()})

	assert.Error(t, err)
}
