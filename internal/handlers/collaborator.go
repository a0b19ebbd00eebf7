package handlers

import (
	"context"
	"errors"

	"github.com/dimitrije/linkshelf-api/internal/middleware"
	"github.com/dimitrije/linkshelf-api/internal/models"
	"github.com/dimitrije/linkshelf-api/internal/services"
	"github.com/dimitrije/linkshelf-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

type CollaboratorHandler struct {
	collaboratorService CollaboratorServiceInterface
}

func NewCollaboratorHandler(collaboratorService CollaboratorServiceInterface) *CollaboratorHandler {
	return &CollaboratorHandler{collaboratorService: collaboratorService}
}

func (h *CollaboratorHandler) ShareFolder(c *drift.Context) {
	h.share(c, h.collaboratorService.ShareFolder)
}

func (h *CollaboratorHandler) ShareCollection(c *drift.Context) {
	h.share(c, h.collaboratorService.ShareCollection)
}

func (h *CollaboratorHandler) RevokeFolder(c *drift.Context) {
	h.revoke(c, h.collaboratorService.RevokeFolder)
}

func (h *CollaboratorHandler) RevokeCollection(c *drift.Context) {
	h.revoke(c, h.collaboratorService.RevokeCollection)
}

type shareFunc func(ctx context.Context, actorID, resourceID, userID uuid.UUID, role string) (*models.Collaborator, error)

type revokeFunc func(ctx context.Context, actorID, resourceID, userID uuid.UUID) error

func (h *CollaboratorHandler) share(c *drift.Context, share shareFunc) {
	actorID := middleware.GetUserID(c)
	if actorID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	resourceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid resource id")
		return
	}

	var req dto.ShareRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.BadRequest("invalid user id")
		return
	}

	collab, err := share(c.Request.Context(), actorID, resourceID, userID, req.Role)
	if err != nil {
		writeCollaboratorError(c, err)
		return
	}

	_ = c.JSON(200, dto.CollaboratorResponse{
		ResourceID: collab.ResourceID,
		UserID:     collab.UserID,
		Role:       collab.Role,
		CreatedAt:  collab.CreatedAt,
	})
}

func (h *CollaboratorHandler) revoke(c *drift.Context, revoke revokeFunc) {
	actorID := middleware.GetUserID(c)
	if actorID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	resourceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid resource id")
		return
	}
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.BadRequest("invalid user id")
		return
	}

	if err := revoke(c.Request.Context(), actorID, resourceID, userID); err != nil {
		writeCollaboratorError(c, err)
		return
	}

	_ = c.JSON(200, map[string]string{"message": "access revoked"})
}

func writeCollaboratorError(c *drift.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidRole), errors.Is(err, services.ErrShareWithSelf):
		c.BadRequest(err.Error())
	case errors.Is(err, services.ErrResourceNotFound):
		c.NotFound("not found")
	case errors.Is(err, services.ErrNotResourceAdmin):
		c.Forbidden(err.Error())
	default:
		c.InternalServerError("failed to update collaborators")
	}
}
