package dto

import (
	"time"

	"github.com/google/uuid"
)

type SyncRequest struct {
	LastSyncTimestamp *time.Time    `json:"lastSyncTimestamp"`
	ClientChanges     ClientChanges `json:"clientChanges"`
}

type ClientChanges struct {
	Bookmarks   []BookmarkChange   `json:"bookmarks,omitempty"`
	Folders     []FolderChange     `json:"folders,omitempty"`
	Tags        []TagChange        `json:"tags,omitempty"`
	Collections []CollectionChange `json:"collections,omitempty"`
}

func (c ClientChanges) Len() int {
	return len(c.Bookmarks) + len(c.Folders) + len(c.Tags) + len(c.Collections)
}

// ChangeMeta is shared by every client change record. Ids stay strings so a
// malformed one can be reported with its position instead of failing decode.
type ChangeMeta struct {
	ID                  string     `json:"id"`
	UpdatedAt           *time.Time `json:"updatedAt"`
	LastServerUpdatedAt *time.Time `json:"lastServerUpdatedAt,omitempty"`
	IsDeleted           bool       `json:"isDeleted,omitempty"`
}

type BookmarkChange struct {
	ChangeMeta
	URL           *string   `json:"url,omitempty"`
	Title         *string   `json:"title,omitempty"`
	Description   *string   `json:"description,omitempty"`
	Notes         *string   `json:"notes,omitempty"`
	FolderIDs     *[]string `json:"folderIds,omitempty"`
	TagIDs        *[]string `json:"tagIds,omitempty"`
	CollectionIDs *[]string `json:"collectionIds,omitempty"`
}

type FolderChange struct {
	ChangeMeta
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Icon        *string `json:"icon,omitempty"`
	Color       *string `json:"color,omitempty"`
	// ParentID "" moves the folder to the root.
	ParentID *string `json:"parentId,omitempty"`
}

type TagChange struct {
	ChangeMeta
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}

type CollectionChange struct {
	ChangeMeta
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	IsPublic    *bool   `json:"isPublic,omitempty"`
	Thumbnail   *string `json:"thumbnail,omitempty"`
}

type SyncResponse struct {
	Success                bool                  `json:"success"`
	ServerChanges          ServerChanges         `json:"serverChanges"`
	Tombstones             Tombstones            `json:"tombstones"`
	ClientChangesProcessed int                   `json:"clientChangesProcessed"`
	Conflicts              int                   `json:"conflicts"`
	ClientChangesFailed    int                   `json:"clientChangesFailed"`
	Failures               []SyncFailure         `json:"failures"`
	Acknowledgements       []SyncAcknowledgement `json:"acknowledgements"`
	SyncTimestamp          time.Time             `json:"syncTimestamp"`
}

type ServerChanges struct {
	Bookmarks   []BookmarkPayload   `json:"bookmarks"`
	Folders     []FolderPayload     `json:"folders"`
	Tags        []TagPayload        `json:"tags"`
	Collections []CollectionPayload `json:"collections"`
}

type Tombstones struct {
	Bookmarks   []uuid.UUID `json:"bookmarks"`
	Folders     []uuid.UUID `json:"folders"`
	Tags        []uuid.UUID `json:"tags"`
	Collections []uuid.UUID `json:"collections"`
}

type SyncFailure struct {
	EntityType string `json:"entityType"`
	ID         string `json:"id"`
	Reason     string `json:"reason"`
}

// SyncAcknowledgement reports the server version of an applied change so the
// client can send it back as lastServerUpdatedAt.
type SyncAcknowledgement struct {
	EntityType string    `json:"entityType"`
	ID         uuid.UUID `json:"id"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type BookmarkPayload struct {
	ID            uuid.UUID   `json:"id"`
	UserID        uuid.UUID   `json:"userId"`
	URL           string      `json:"url"`
	Title         *string     `json:"title"`
	Description   *string     `json:"description"`
	Notes         *string     `json:"notes"`
	FolderIDs     []uuid.UUID `json:"folderIds"`
	TagIDs        []uuid.UUID `json:"tagIds"`
	CollectionIDs []uuid.UUID `json:"collectionIds"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

type FolderPayload struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"userId"`
	ParentID    *uuid.UUID `json:"parentId"`
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	Icon        *string    `json:"icon"`
	Color       *string    `json:"color"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type TagPayload struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Name      string    `json:"name"`
	Color     *string   `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CollectionPayload struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"userId"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	IsPublic    bool      `json:"isPublic"`
	Thumbnail   *string   `json:"thumbnail"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
