package models

type Collection struct {
	SyncMeta
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	IsPublic    bool    `json:"isPublic"`
	Thumbnail   *string `json:"thumbnail,omitempty"`
}

type CollectionPatch struct {
	Name        *string
	Description *string
	IsPublic    *bool
	Thumbnail   *string
}
