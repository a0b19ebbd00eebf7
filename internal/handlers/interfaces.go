package handlers

import (
	"context"

	"github.com/dimitrije/linkshelf-api/internal/models"
	"github.com/dimitrije/linkshelf-api/internal/sse"
	"github.com/dimitrije/linkshelf-api/internal/syncengine"
	"github.com/dimitrije/linkshelf-api/pkg/dto"
	"github.com/google/uuid"
)

// SyncServiceInterface defines the methods used by handlers from syncengine.Service
type SyncServiceInterface interface {
	Sync(ctx context.Context, userID uuid.UUID, req *dto.SyncRequest) (*syncengine.Result, error)
}

// BookmarkServiceInterface defines the methods used by handlers from BookmarkService
type BookmarkServiceInterface interface {
	Create(ctx context.Context, userID, id uuid.UUID, patch *models.BookmarkPatch) (*models.Bookmark, error)
	GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Bookmark, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// CollaboratorServiceInterface defines the methods used by handlers from CollaboratorService
type CollaboratorServiceInterface interface {
	ShareFolder(ctx context.Context, actorID, folderID, userID uuid.UUID, role string) (*models.Collaborator, error)
	ShareCollection(ctx context.Context, actorID, collectionID, userID uuid.UUID, role string) (*models.Collaborator, error)
	RevokeFolder(ctx context.Context, actorID, folderID, userID uuid.UUID) error
	RevokeCollection(ctx context.Context, actorID, collectionID, userID uuid.UUID) error
}

// HubInterface defines the methods used by handlers from sse.Hub
type HubInterface interface {
	Register(client *sse.Client)
	Unregister(client *sse.Client)
}
