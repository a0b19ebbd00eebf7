package cache

import (
	"context"
	"testing"

	"github.com/dimitrije/linkshelf-api/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestKeys(t *testing.T) {
	id := uuid.MustParse("7b0a3c43-5a1d-4d51-8b8e-3b5f0a8e9c11")
	uid := uuid.MustParse("0f4c2f1e-94a3-4f55-9a32-6f1d0e2b7c44")

	assert.Equal(t, "bookmarks:7b0a3c43-5a1d-4d51-8b8e-3b5f0a8e9c11", EntityKey(models.EntityBookmarks, id))
	assert.Equal(t, "user:0f4c2f1e-94a3-4f55-9a32-6f1d0e2b7c44:folders:*", ListPattern(uid, models.EntityFolders))
}

func TestNop(t *testing.T) {
	var inv Invalidator = Nop{}
	assert.NotPanics(t, func() {
		inv.Invalidate(context.Background(), models.EntityTags, uuid.New())
	})
}
