package handlers

import (
	"errors"
	"log/slog"

	"github.com/dimitrije/linkshelf-api/internal/middleware"
	"github.com/dimitrije/linkshelf-api/internal/models"
	"github.com/dimitrije/linkshelf-api/internal/syncengine"
	"github.com/dimitrije/linkshelf-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

type SyncHandler struct {
	syncService SyncServiceInterface
	logger      *slog.Logger
}

func NewSyncHandler(syncService SyncServiceInterface, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{syncService: syncService, logger: logger}
}

func (h *SyncHandler) Sync(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	var req dto.SyncRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	result, err := h.syncService.Sync(c.Request.Context(), userID, &req)
	switch {
	case err == nil:
	case errors.Is(err, syncengine.ErrInvalidRequest):
		c.BadRequest(err.Error())
		return
	case errors.Is(err, syncengine.ErrTimeout):
		c.GatewayTimeout("sync timed out")
		return
	default:
		h.logger.Error("sync failed", "user_id", userID, "error", err)
		c.InternalServerError("sync failed")
		return
	}

	_ = c.JSON(200, toSyncResponse(result))
}

func toSyncResponse(r *syncengine.Result) dto.SyncResponse {
	resp := dto.SyncResponse{
		Success:                true,
		ClientChangesProcessed: r.Processed,
		Conflicts:              r.Conflicts,
		ClientChangesFailed:    r.Failed,
		Failures:               make([]dto.SyncFailure, 0, len(r.Failures)),
		Acknowledgements:       make([]dto.SyncAcknowledgement, 0, len(r.Acknowledgements)),
		SyncTimestamp:          r.SyncTimestamp,
		ServerChanges: dto.ServerChanges{
			Bookmarks:   []dto.BookmarkPayload{},
			Folders:     []dto.FolderPayload{},
			Tags:        []dto.TagPayload{},
			Collections: []dto.CollectionPayload{},
		},
		Tombstones: dto.Tombstones{
			Bookmarks:   nonNil(r.Tombstones[models.EntityBookmarks]),
			Folders:     nonNil(r.Tombstones[models.EntityFolders]),
			Tags:        nonNil(r.Tombstones[models.EntityTags]),
			Collections: nonNil(r.Tombstones[models.EntityCollections]),
		},
	}

	for _, records := range r.ServerChanges {
		for _, rec := range records {
			switch v := rec.(type) {
			case models.Bookmark:
				resp.ServerChanges.Bookmarks = append(resp.ServerChanges.Bookmarks, bookmarkPayload(v))
			case models.Folder:
				resp.ServerChanges.Folders = append(resp.ServerChanges.Folders, dto.FolderPayload{
					ID: v.ID, UserID: v.UserID, ParentID: v.ParentID, Name: v.Name,
					Description: v.Description, Icon: v.Icon, Color: v.Color,
					CreatedAt: v.CreatedAt, UpdatedAt: v.UpdatedAt,
				})
			case models.Tag:
				resp.ServerChanges.Tags = append(resp.ServerChanges.Tags, dto.TagPayload{
					ID: v.ID, UserID: v.UserID, Name: v.Name, Color: v.Color,
					CreatedAt: v.CreatedAt, UpdatedAt: v.UpdatedAt,
				})
			case models.Collection:
				resp.ServerChanges.Collections = append(resp.ServerChanges.Collections, dto.CollectionPayload{
					ID: v.ID, UserID: v.UserID, Name: v.Name, Description: v.Description,
					IsPublic: v.IsPublic, Thumbnail: v.Thumbnail,
					CreatedAt: v.CreatedAt, UpdatedAt: v.UpdatedAt,
				})
			}
		}
	}

	for _, f := range r.Failures {
		resp.Failures = append(resp.Failures, dto.SyncFailure{
			EntityType: string(f.Type), ID: f.ID.String(), Reason: f.Reason,
		})
	}
	for _, a := range r.Acknowledgements {
		resp.Acknowledgements = append(resp.Acknowledgements, dto.SyncAcknowledgement{
			EntityType: string(a.Type), ID: a.ID, UpdatedAt: a.UpdatedAt,
		})
	}
	return resp
}

func bookmarkPayload(b models.Bookmark) dto.BookmarkPayload {
	return dto.BookmarkPayload{
		ID: b.ID, UserID: b.UserID, URL: b.URL,
		Title: b.Title, Description: b.Description, Notes: b.Notes,
		FolderIDs:     nonNil(b.FolderIDs),
		TagIDs:        nonNil(b.TagIDs),
		CollectionIDs: nonNil(b.CollectionIDs),
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

func nonNil(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}
