package testutil

import (
	"context"

	"github.com/dimitrije/linkshelf-api/internal/models"
	"github.com/dimitrije/linkshelf-api/internal/sse"
	"github.com/dimitrije/linkshelf-api/internal/syncengine"
	"github.com/dimitrije/linkshelf-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockSyncService mocks syncengine.Service
type MockSyncService struct {
	mock.Mock
}

func (m *MockSyncService) Sync(ctx context.Context, userID uuid.UUID, req *dto.SyncRequest) (*syncengine.Result, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*syncengine.Result), args.Error(1)
}

// MockBookmarkService mocks the BookmarkService
type MockBookmarkService struct {
	mock.Mock
}

func (m *MockBookmarkService) Create(ctx context.Context, userID, id uuid.UUID, patch *models.BookmarkPatch) (*models.Bookmark, error) {
	args := m.Called(ctx, userID, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bookmark), args.Error(1)
}

func (m *MockBookmarkService) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Bookmark, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bookmark), args.Error(1)
}

func (m *MockBookmarkService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

// MockCollaboratorService mocks the CollaboratorService
type MockCollaboratorService struct {
	mock.Mock
}

func (m *MockCollaboratorService) ShareFolder(ctx context.Context, actorID, folderID, userID uuid.UUID, role string) (*models.Collaborator, error) {
	args := m.Called(ctx, actorID, folderID, userID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Collaborator), args.Error(1)
}

func (m *MockCollaboratorService) ShareCollection(ctx context.Context, actorID, collectionID, userID uuid.UUID, role string) (*models.Collaborator, error) {
	args := m.Called(ctx, actorID, collectionID, userID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Collaborator), args.Error(1)
}

func (m *MockCollaboratorService) RevokeFolder(ctx context.Context, actorID, folderID, userID uuid.UUID) error {
	return m.Called(ctx, actorID, folderID, userID).Error(0)
}

func (m *MockCollaboratorService) RevokeCollection(ctx context.Context, actorID, collectionID, userID uuid.UUID) error {
	return m.Called(ctx, actorID, collectionID, userID).Error(0)
}

// MockHub mocks the SSE hub
type MockHub struct {
	mock.Mock
}

func (m *MockHub) Register(client *sse.Client) {
	m.Called(client)
}

func (m *MockHub) Unregister(client *sse.Client) {
	m.Called(client)
}
