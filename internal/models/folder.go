package models

import "github.com/google/uuid"

type Folder struct {
	SyncMeta
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	Icon        *string    `json:"icon,omitempty"`
	Color       *string    `json:"color,omitempty"`
	ParentID    *uuid.UUID `json:"parentId,omitempty"`
}

// FolderPatch mirrors BookmarkPatch. A ParentID pointing at uuid.Nil moves
// the folder to the root.
type FolderPatch struct {
	Name        *string
	Description *string
	Icon        *string
	Color       *string
	ParentID    *uuid.UUID
}
