package handlers

import (
	"errors"

	"github.com/dimitrije/linkshelf-api/internal/middleware"
	"github.com/dimitrije/linkshelf-api/internal/models"
	"github.com/dimitrije/linkshelf-api/internal/services"
	"github.com/dimitrije/linkshelf-api/internal/syncengine"
	"github.com/dimitrije/linkshelf-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

type BookmarkHandler struct {
	bookmarkService BookmarkServiceInterface
}

func NewBookmarkHandler(bookmarkService BookmarkServiceInterface) *BookmarkHandler {
	return &BookmarkHandler{bookmarkService: bookmarkService}
}

func (h *BookmarkHandler) Create(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	var req dto.CreateBookmarkRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if req.URL == "" {
		c.BadRequest("url is required")
		return
	}

	id := uuid.New()
	if req.ID != nil {
		parsed, err := uuid.Parse(*req.ID)
		if err != nil || parsed == uuid.Nil {
			c.BadRequest("invalid bookmark id")
			return
		}
		id = parsed
	}

	patch := &models.BookmarkPatch{
		URL:         &req.URL,
		Title:       req.Title,
		Description: req.Description,
		Notes:       req.Notes,
	}
	if req.FolderIDs != nil {
		ids, err := parseUUIDs(req.FolderIDs)
		if err != nil {
			c.BadRequest("invalid folder id")
			return
		}
		patch.FolderIDs = &ids
	}
	if req.TagIDs != nil {
		ids, err := parseUUIDs(req.TagIDs)
		if err != nil {
			c.BadRequest("invalid tag id")
			return
		}
		patch.TagIDs = &ids
	}

	bookmark, err := h.bookmarkService.Create(c.Request.Context(), userID, id, patch)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrBookmarkExists):
		_ = c.JSON(409, map[string]string{"error": "bookmark already exists"})
		return
	case errors.Is(err, syncengine.ErrMissingField):
		c.BadRequest(err.Error())
		return
	default:
		c.InternalServerError("failed to create bookmark")
		return
	}

	_ = c.JSON(201, bookmarkPayload(*bookmark))
}

func (h *BookmarkHandler) Get(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid bookmark id")
		return
	}

	bookmark, err := h.bookmarkService.GetByID(c.Request.Context(), userID, id)
	if err != nil {
		if errors.Is(err, services.ErrBookmarkNotFound) {
			c.NotFound("bookmark not found")
			return
		}
		c.InternalServerError("failed to get bookmark")
		return
	}

	_ = c.JSON(200, bookmarkPayload(*bookmark))
}

func (h *BookmarkHandler) Delete(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid bookmark id")
		return
	}

	if err := h.bookmarkService.Delete(c.Request.Context(), userID, id); err != nil {
		if errors.Is(err, services.ErrBookmarkNotFound) {
			c.NotFound("bookmark not found")
			return
		}
		c.InternalServerError("failed to delete bookmark")
		return
	}

	_ = c.JSON(200, map[string]string{"message": "bookmark deleted"})
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
