package models

import "github.com/google/uuid"

type Bookmark struct {
	SyncMeta
	URL           string      `json:"url"`
	Title         *string     `json:"title,omitempty"`
	Description   *string     `json:"description,omitempty"`
	Notes         *string     `json:"notes,omitempty"`
	FolderIDs     []uuid.UUID `json:"folderIds"`
	TagIDs        []uuid.UUID `json:"tagIds"`
	CollectionIDs []uuid.UUID `json:"collectionIds"`
}

// BookmarkPatch carries the fields a client sent. Nil means "not sent";
// relation slices replace the whole membership when present.
type BookmarkPatch struct {
	URL           *string
	Title         *string
	Description   *string
	Notes         *string
	FolderIDs     *[]uuid.UUID
	TagIDs        *[]uuid.UUID
	CollectionIDs *[]uuid.UUID
}
