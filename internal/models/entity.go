package models

import (
	"time"

	"github.com/google/uuid"
)

type EntityType string

const (
	EntityBookmarks   EntityType = "bookmarks"
	EntityFolders     EntityType = "folders"
	EntityTags        EntityType = "tags"
	EntityCollections EntityType = "collections"
)

// EntityTypes lists every synchronised entity type. Containers come before
// bookmarks so relation targets created in the same batch already exist.
var EntityTypes = []EntityType{EntityFolders, EntityTags, EntityCollections, EntityBookmarks}

func (t EntityType) Valid() bool {
	switch t {
	case EntityBookmarks, EntityFolders, EntityTags, EntityCollections:
		return true
	}
	return false
}

// Record is the common view of every synchronised entity.
type Record interface {
	EntityID() uuid.UUID
	Version() time.Time
	Deleted() bool
}

// SyncMeta holds the columns every synchronised table shares.
type SyncMeta struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"userId"`
	IsDeleted bool       `json:"isDeleted"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (m SyncMeta) EntityID() uuid.UUID { return m.ID }
func (m SyncMeta) Version() time.Time  { return m.UpdatedAt }
func (m SyncMeta) Deleted() bool       { return m.IsDeleted }

// EntityVersion is the slice of a server row the conflict resolver needs.
type EntityVersion struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	UpdatedAt time.Time
	IsDeleted bool
	Editable  bool
}
