package models

type Tag struct {
	SyncMeta
	Name  string  `json:"name"`
	Color *string `json:"color,omitempty"`
}

type TagPatch struct {
	Name  *string
	Color *string
}
