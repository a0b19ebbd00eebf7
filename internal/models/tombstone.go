package models

import (
	"time"

	"github.com/google/uuid"
)

// Tombstone records a deletion so clients syncing deltas learn about it.
// Rows are never updated; Purge removes them after the retention window.
type Tombstone struct {
	ID         int64      `json:"id"`
	EntityType EntityType `json:"entityType"`
	EntityID   uuid.UUID  `json:"entityId"`
	UserID     uuid.UUID  `json:"userId"`
	DeletedAt  time.Time  `json:"deletedAt"`
}
