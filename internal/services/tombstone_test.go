package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dimitrije/linkshelf-api/internal/database"
	"github.com/dimitrije/linkshelf-api/internal/models"
	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTombstoneService(t *testing.T) (*TombstoneService, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewTombstoneService(&database.DB{Pool: mock}), mock
}

func TestTombstoneService_Append(t *testing.T) {
	svc, mock := setupTombstoneService(t)
	ctx := context.Background()
	ts := &models.Tombstone{
		EntityType: models.EntityBookmarks,
		EntityID:   uuid.New(),
		UserID:     uuid.New(),
		DeletedAt:  time.Now().UTC(),
	}

	mock.ExpectQuery(`INSERT INTO tombstones`).
		WithArgs("bookmarks", ts.EntityID, ts.UserID, ts.DeletedAt).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

	err := svc.Append(ctx, mock, ts)

	require.NoError(t, err)
	assert.Equal(t, int64(42), ts.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTombstoneService_Append_Error(t *testing.T) {
	svc, mock := setupTombstoneService(t)

	mock.ExpectQuery(`INSERT INTO tombstones`).
		WithArgs("tags", uuid.Nil, uuid.Nil, time.Time{}).
		WillReturnError(errors.New("connection reset"))

	err := svc.Append(context.Background(), mock, &models.Tombstone{EntityType: models.EntityTags})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to append tombstone")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTombstoneService_Since(t *testing.T) {
	svc, mock := setupTombstoneService(t)
	ctx := context.Background()
	userID := uuid.New()
	since := time.Now().Add(-time.Hour)
	id1, id2 := uuid.New(), uuid.New()

	rows := pgxmock.NewRows([]string{"id", "entity_type", "entity_id", "user_id", "deleted_at"}).
		AddRow(int64(1), "folders", id1, userID, since.Add(time.Minute)).
		AddRow(int64(2), "folders", id2, userID, since.Add(2*time.Minute))

	mock.ExpectQuery(`SELECT id, entity_type, entity_id, user_id, deleted_at\s+FROM tombstones`).
		WithArgs(userID, "folders", &since).
		WillReturnRows(rows)

	got, err := svc.Since(ctx, userID, models.EntityFolders, &since)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, id1, got[0].EntityID)
	assert.Equal(t, models.EntityFolders, got[1].EntityType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTombstoneService_Since_QueryError(t *testing.T) {
	svc, mock := setupTombstoneService(t)
	userID := uuid.New()

	mock.ExpectQuery(`FROM tombstones`).
		WithArgs(userID, "tags", (*time.Time)(nil)).
		WillReturnError(errors.New("db down"))

	_, err := svc.Since(context.Background(), userID, models.EntityTags, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to query tombstones")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTombstoneService_Purge(t *testing.T) {
	svc, mock := setupTombstoneService(t)
	cutoff := time.Now().Add(-90 * 24 * time.Hour)

	mock.ExpectExec(`DELETE FROM tombstones WHERE deleted_at < \$1`).
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 7))

	n, err := svc.Purge(context.Background(), cutoff)

	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
