package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/dimitrije/linkshelf-api/internal/middleware"
	"github.com/dimitrije/linkshelf-api/internal/models"
	"github.com/dimitrije/linkshelf-api/internal/syncengine"
	"github.com/dimitrije/linkshelf-api/pkg/dto"
	"github.com/dimitrije/linkshelf-api/tests/testutil"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	driftmw "github.com/m1z23r/drift/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupSyncApp(t *testing.T) (*testutil.MockSyncService, http.Handler) {
	t.Helper()
	svc := new(testutil.MockSyncService)
	handler := NewSyncHandler(svc, discardLogger())

	app := drift.New()
	app.Use(driftmw.BodyParser())
	app.Use(middleware.Auth(testutil.TestJWTService()))
	app.Post("/sync", handler.Sync)
	return svc, app
}

func TestSyncHandler_Sync_Success(t *testing.T) {
	svc, app := setupSyncApp(t)
	userID := uuid.New()
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	bookmarkID, folderID, goneID := uuid.New(), uuid.New(), uuid.New()

	var bm models.Bookmark
	bm.ID, bm.UserID, bm.URL, bm.UpdatedAt = bookmarkID, userID, "https://go.dev", at
	bm.FolderIDs = []uuid.UUID{folderID}

	result := &syncengine.Result{
		ServerChanges: map[models.EntityType][]models.Record{
			models.EntityBookmarks: {bm},
		},
		Tombstones: map[models.EntityType][]uuid.UUID{
			models.EntityTags: {goneID},
		},
		Processed:        2,
		Conflicts:        1,
		Failed:           1,
		Failures:         []syncengine.Failure{{Type: models.EntityFolders, ID: folderID, Reason: "invalid field value"}},
		Acknowledgements: []syncengine.Acknowledgement{{Type: models.EntityBookmarks, ID: bookmarkID, UpdatedAt: at}},
		SyncTimestamp:    at,
	}
	svc.On("Sync", mock.Anything, userID, mock.MatchedBy(func(req *dto.SyncRequest) bool {
		return req.LastSyncTimestamp != nil && len(req.ClientChanges.Bookmarks) == 1
	})).Return(result, nil)

	body := map[string]any{
		"lastSyncTimestamp": "2024-01-01T00:00:00Z",
		"clientChanges": map[string]any{
			"bookmarks": []map[string]any{{"id": bookmarkID.String(), "updatedAt": "2024-01-01T10:00:00Z", "url": "https://go.dev"}},
		},
	}
	rec := serve(t, app, http.MethodPost, "/sync", userID, body)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp dto.SyncResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.ClientChangesProcessed)
	assert.Equal(t, 1, resp.Conflicts)
	assert.Equal(t, 1, resp.ClientChangesFailed)
	require.Len(t, resp.ServerChanges.Bookmarks, 1)
	assert.Equal(t, bookmarkID, resp.ServerChanges.Bookmarks[0].ID)
	assert.Equal(t, []uuid.UUID{folderID}, resp.ServerChanges.Bookmarks[0].FolderIDs)
	assert.Empty(t, resp.ServerChanges.Bookmarks[0].TagIDs)
	assert.Equal(t, []uuid.UUID{goneID}, resp.Tombstones.Tags)
	assert.Equal(t, folderID.String(), resp.Failures[0].ID)
	assert.Equal(t, "folders", resp.Failures[0].EntityType)
	assert.True(t, at.Equal(resp.SyncTimestamp))
	svc.AssertExpectations(t)
}

func TestSyncHandler_Sync_EmptyCollectionsSerializeAsArrays(t *testing.T) {
	svc, app := setupSyncApp(t)
	userID := uuid.New()
	svc.On("Sync", mock.Anything, userID, mock.Anything).Return(&syncengine.Result{SyncTimestamp: time.Now()}, nil)

	rec := serve(t, app, http.MethodPost, "/sync", userID, map[string]any{"clientChanges": map[string]any{}})

	require.Equal(t, http.StatusOK, rec.Code)
	var top map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &top))
	raw := map[string]map[string]json.RawMessage{}
	for _, key := range []string{"serverChanges", "tombstones"} {
		var inner map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(top[key], &inner))
		raw[key] = inner
	}
	for _, key := range []string{"bookmarks", "folders", "tags", "collections"} {
		assert.JSONEq(t, `[]`, string(raw["serverChanges"][key]), key)
		assert.JSONEq(t, `[]`, string(raw["tombstones"][key]), key)
	}
	assert.JSONEq(t, `[]`, string(top["failures"]))
}

func TestSyncHandler_Sync_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{
			name:     "validation",
			err:      fmt.Errorf("%w: too many changes", syncengine.ErrInvalidRequest),
			wantCode: http.StatusBadRequest,
			wantBody: "too many changes",
		},
		{
			name:     "timeout",
			err:      fmt.Errorf("%w: after 3 of 9 changes", syncengine.ErrTimeout),
			wantCode: http.StatusGatewayTimeout,
			wantBody: "sync timed out",
		},
		{
			name:     "systemic",
			err:      errors.New("failed to collect server changes: connection refused"),
			wantCode: http.StatusInternalServerError,
			wantBody: "sync failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, app := setupSyncApp(t)
			userID := uuid.New()
			svc.On("Sync", mock.Anything, userID, mock.Anything).Return(nil, tt.err)

			rec := serve(t, app, http.MethodPost, "/sync", userID, map[string]any{})

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			assert.NotContains(t, rec.Body.String(), "connection refused")
		})
	}
}

func TestSyncHandler_Sync_Unauthenticated(t *testing.T) {
	svc, app := setupSyncApp(t)

	rec := serve(t, app, http.MethodPost, "/sync", uuid.Nil, map[string]any{})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	svc.AssertNotCalled(t, "Sync", mock.Anything, mock.Anything, mock.Anything)
}
