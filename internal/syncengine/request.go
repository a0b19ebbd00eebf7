package syncengine

import (
	"fmt"

	"github.com/dimitrije/linkshelf-api/internal/models"
	"github.com/dimitrije/linkshelf-api/pkg/dto"
	"github.com/google/uuid"
)

// ParseRequest validates req and converts it into Changes ordered folders,
// tags, collections, bookmarks. Nothing is returned unless every change is
// well formed.
func ParseRequest(req *dto.SyncRequest, maxChanges int) (*Request, error) {
	if req == nil {
		return nil, &ValidationError{Field: "body", Reason: "missing"}
	}
	if n := req.ClientChanges.Len(); maxChanges > 0 && n > maxChanges {
		return nil, &ValidationError{
			Field:  "clientChanges",
			Reason: fmt.Sprintf("%d changes exceed the limit of %d", n, maxChanges),
		}
	}

	out := &Request{Changes: make([]Change, 0, req.ClientChanges.Len())}
	if req.LastSyncTimestamp != nil {
		ts := req.LastSyncTimestamp.UTC()
		out.LastSyncTimestamp = &ts
	}

	cc := req.ClientChanges
	for i, fc := range cc.Folders {
		ch, err := parseMeta(models.EntityFolders, i, fc.ChangeMeta)
		if err != nil {
			return nil, err
		}
		patch := &models.FolderPatch{Name: fc.Name, Description: fc.Description, Icon: fc.Icon, Color: fc.Color}
		if fc.ParentID != nil {
			parent := uuid.Nil
			if *fc.ParentID != "" {
				if parent, err = uuid.Parse(*fc.ParentID); err != nil {
					return nil, &ValidationError{Type: models.EntityFolders, Index: i, Field: "parentId", Reason: "not a uuid"}
				}
			}
			patch.ParentID = &parent
		}
		ch.Patch = patch
		out.Changes = append(out.Changes, ch)
	}

	for i, tc := range cc.Tags {
		ch, err := parseMeta(models.EntityTags, i, tc.ChangeMeta)
		if err != nil {
			return nil, err
		}
		ch.Patch = &models.TagPatch{Name: tc.Name, Color: tc.Color}
		out.Changes = append(out.Changes, ch)
	}

	for i, col := range cc.Collections {
		ch, err := parseMeta(models.EntityCollections, i, col.ChangeMeta)
		if err != nil {
			return nil, err
		}
		ch.Patch = &models.CollectionPatch{
			Name:        col.Name,
			Description: col.Description,
			IsPublic:    col.IsPublic,
			Thumbnail:   col.Thumbnail,
		}
		out.Changes = append(out.Changes, ch)
	}

	for i, bc := range cc.Bookmarks {
		ch, err := parseMeta(models.EntityBookmarks, i, bc.ChangeMeta)
		if err != nil {
			return nil, err
		}
		patch := &models.BookmarkPatch{URL: bc.URL, Title: bc.Title, Description: bc.Description, Notes: bc.Notes}
		if patch.FolderIDs, err = parseIDs(i, "folderIds", bc.FolderIDs); err != nil {
			return nil, err
		}
		if patch.TagIDs, err = parseIDs(i, "tagIds", bc.TagIDs); err != nil {
			return nil, err
		}
		if patch.CollectionIDs, err = parseIDs(i, "collectionIds", bc.CollectionIDs); err != nil {
			return nil, err
		}
		ch.Patch = patch
		out.Changes = append(out.Changes, ch)
	}

	return out, nil
}

func parseMeta(t models.EntityType, i int, m dto.ChangeMeta) (Change, error) {
	if m.ID == "" {
		return Change{}, &ValidationError{Type: t, Index: i, Field: "id", Reason: "missing"}
	}
	id, err := uuid.Parse(m.ID)
	if err != nil || id == uuid.Nil {
		return Change{}, &ValidationError{Type: t, Index: i, Field: "id", Reason: "not a uuid"}
	}
	if m.UpdatedAt == nil || m.UpdatedAt.IsZero() {
		return Change{}, &ValidationError{Type: t, Index: i, Field: "updatedAt", Reason: "missing"}
	}

	ch := Change{
		Type:      t,
		ID:        id,
		UpdatedAt: m.UpdatedAt.UTC(),
		IsDeleted: m.IsDeleted,
	}
	if m.LastServerUpdatedAt != nil {
		seen := m.LastServerUpdatedAt.UTC()
		ch.LastServerUpdatedAt = &seen
	}
	return ch, nil
}

// parseIDs keeps nil (not sent) distinct from an empty list (clear all) and
// drops duplicates.
func parseIDs(i int, field string, raw *[]string) (*[]uuid.UUID, error) {
	if raw == nil {
		return nil, nil
	}
	seen := make(map[uuid.UUID]bool, len(*raw))
	ids := make([]uuid.UUID, 0, len(*raw))
	for _, s := range *raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, &ValidationError{Type: models.EntityBookmarks, Index: i, Field: field, Reason: fmt.Sprintf("%q is not a uuid", s)}
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return &ids, nil
}
