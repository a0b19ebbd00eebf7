// Package syncengine reconciles batches of offline client edits with the
// server state and reports the server's own changes since a checkpoint.
package syncengine

import (
	"time"

	"github.com/dimitrije/linkshelf-api/internal/models"
	"github.com/google/uuid"
)

// Change is one validated client change record.
type Change struct {
	Type                models.EntityType
	ID                  uuid.UUID
	UpdatedAt           time.Time
	LastServerUpdatedAt *time.Time
	IsDeleted           bool
	// Patch is *models.BookmarkPatch, *models.FolderPatch, *models.TagPatch
	// or *models.CollectionPatch depending on Type.
	Patch any
}

// Request is a validated sync request.
type Request struct {
	LastSyncTimestamp *time.Time
	Changes           []Change
}

// Failure describes a change that could not be applied.
type Failure struct {
	Type   models.EntityType
	ID     uuid.UUID
	Reason string
}

// Acknowledgement carries the server version written for an applied change.
type Acknowledgement struct {
	Type      models.EntityType
	ID        uuid.UUID
	UpdatedAt time.Time
}

type Result struct {
	ServerChanges    map[models.EntityType][]models.Record
	Tombstones       map[models.EntityType][]uuid.UUID
	Processed        int
	Conflicts        int
	Failed           int
	Failures         []Failure
	Acknowledgements []Acknowledgement
	SyncTimestamp    time.Time
}
