// Package cache defines the invalidation contract between writers and the
// read caches that sit in front of them.
package cache

import (
	"context"
	"fmt"

	"github.com/dimitrije/linkshelf-api/internal/models"
	"github.com/google/uuid"
)

// Invalidator is notified after a write commits. Implementations must not
// block the caller.
type Invalidator interface {
	Invalidate(ctx context.Context, entityType models.EntityType, entityID uuid.UUID, userIDs ...uuid.UUID)
}

// EntityKey addresses a single cached entity.
func EntityKey(entityType models.EntityType, id uuid.UUID) string {
	return fmt.Sprintf("%s:%s", entityType, id)
}

// ListPattern matches every cached list of entityType belonging to userID.
func ListPattern(userID uuid.UUID, entityType models.EntityType) string {
	return fmt.Sprintf("user:%s:%s:*", userID, entityType)
}

type Nop struct{}

func (Nop) Invalidate(context.Context, models.EntityType, uuid.UUID, ...uuid.UUID) {}
