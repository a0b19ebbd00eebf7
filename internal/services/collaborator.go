package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dimitrije/linkshelf-api/internal/cache"
	"github.com/dimitrije/linkshelf-api/internal/database"
	"github.com/dimitrije/linkshelf-api/internal/models"
	"github.com/dimitrije/linkshelf-api/internal/syncengine"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrResourceNotFound = errors.New("resource not found")
	ErrNotResourceAdmin = errors.New("only the owner or an admin can manage collaborators")
	ErrInvalidRole      = errors.New("invalid role")
	ErrShareWithSelf    = errors.New("cannot share with yourself")
)

type shareable struct {
	entity  models.EntityType
	table   string
	grants  string
	column  string
	members string
}

var (
	sharedFolders = shareable{
		entity: models.EntityFolders, table: "folders",
		grants: "folder_collaborators", column: "folder_id", members: "bookmark_folders",
	}
	sharedCollections = shareable{
		entity: models.EntityCollections, table: "collections",
		grants: "collection_collaborators", column: "collection_id", members: "bookmark_collections",
	}
)

type CollaboratorService struct {
	db          *database.DB
	invalidator cache.Invalidator
	now         func() time.Time
}

func NewCollaboratorService(db *database.DB, invalidator cache.Invalidator) *CollaboratorService {
	if invalidator == nil {
		invalidator = cache.Nop{}
	}
	return &CollaboratorService{db: db, invalidator: invalidator, now: syncengine.Now}
}

func (s *CollaboratorService) ShareFolder(ctx context.Context, actorID, folderID, userID uuid.UUID, role string) (*models.Collaborator, error) {
	return s.share(ctx, sharedFolders, actorID, folderID, userID, role)
}

func (s *CollaboratorService) ShareCollection(ctx context.Context, actorID, collectionID, userID uuid.UUID, role string) (*models.Collaborator, error) {
	return s.share(ctx, sharedCollections, actorID, collectionID, userID, role)
}

func (s *CollaboratorService) RevokeFolder(ctx context.Context, actorID, folderID, userID uuid.UUID) error {
	return s.revoke(ctx, sharedFolders, actorID, folderID, userID)
}

func (s *CollaboratorService) RevokeCollection(ctx context.Context, actorID, collectionID, userID uuid.UUID) error {
	return s.revoke(ctx, sharedCollections, actorID, collectionID, userID)
}

// share grants role on the resource and touches it along with its member
// bookmarks, so the grantee's next delta sync picks them up.
func (s *CollaboratorService) share(ctx context.Context, r shareable, actorID, resourceID, userID uuid.UUID, role string) (*models.Collaborator, error) {
	if !models.ValidRole(role) {
		return nil, ErrInvalidRole
	}
	if actorID == userID {
		return nil, ErrShareWithSelf
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ownerID, err := s.authorize(ctx, tx, r, actorID, resourceID)
	if err != nil {
		return nil, err
	}
	if ownerID == userID {
		return nil, ErrShareWithSelf
	}

	collab := models.Collaborator{ResourceID: resourceID, UserID: userID, Role: role}
	err = tx.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO %[1]s (%[2]s, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (%[2]s, user_id) DO UPDATE SET role = EXCLUDED.role
		RETURNING created_at
	`, r.grants, r.column), resourceID, userID, role).Scan(&collab.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to grant access: %w", err)
	}

	now := s.now()
	if _, err := tx.Exec(ctx, fmt.Sprintf(`
		UPDATE %s SET updated_at = $2 WHERE id = $1 AND NOT is_deleted
	`, r.table), resourceID, now); err != nil {
		return nil, fmt.Errorf("failed to touch %s: %w", r.table, err)
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf(`
		UPDATE bookmarks b SET updated_at = $2
		FROM %[1]s m
		WHERE m.%[2]s = $1 AND m.bookmark_id = b.id AND NOT b.is_deleted
	`, r.members, r.column), resourceID, now); err != nil {
		return nil, fmt.Errorf("failed to touch shared bookmarks: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit share: %w", err)
	}

	s.invalidator.Invalidate(ctx, r.entity, resourceID, userID)
	return &collab, nil
}

func (s *CollaboratorService) revoke(ctx context.Context, r shareable, actorID, resourceID, userID uuid.UUID) error {
	if _, err := s.authorize(ctx, s.db.Pool, r, actorID, resourceID); err != nil {
		return err
	}

	tag, err := s.db.Pool.Exec(ctx, fmt.Sprintf(`
		DELETE FROM %s WHERE %s = $1 AND user_id = $2
	`, r.grants, r.column), resourceID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrResourceNotFound
	}

	s.invalidator.Invalidate(ctx, r.entity, resourceID, userID)
	return nil
}

// authorize returns the resource owner when actorID owns it or holds the
// admin role on it.
func (s *CollaboratorService) authorize(ctx context.Context, q database.Querier, r shareable, actorID, resourceID uuid.UUID) (uuid.UUID, error) {
	var (
		ownerID uuid.UUID
		isAdmin bool
	)
	err := q.QueryRow(ctx, fmt.Sprintf(`
		SELECT r.user_id, EXISTS (
			SELECT 1 FROM %[2]s g WHERE g.%[3]s = r.id AND g.user_id = $2 AND g.role = 'ADMIN'
		)
		FROM %[1]s r
		WHERE r.id = $1 AND NOT r.is_deleted
	`, r.table, r.grants, r.column), resourceID, actorID).Scan(&ownerID, &isAdmin)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrResourceNotFound
	}
	if err != nil {
		return uuid.Nil, err
	}
	if ownerID != actorID && !isAdmin {
		return uuid.Nil, ErrNotResourceAdmin
	}
	return ownerID, nil
}
