package dto

type CreateBookmarkRequest struct {
	ID          *string  `json:"id,omitempty"`
	URL         string   `json:"url"`
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Notes       *string  `json:"notes,omitempty"`
	FolderIDs   []string `json:"folderIds,omitempty"`
	TagIDs      []string `json:"tagIds,omitempty"`
}
