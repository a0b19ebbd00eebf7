package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dimitrije/linkshelf-api/internal/database"
	"github.com/dimitrije/linkshelf-api/internal/models"
	"github.com/google/uuid"
)

// Fixtures provides factory methods for creating test data
type Fixtures struct {
	db      *database.DB
	counter int
}

func NewFixtures(db *database.DB) *Fixtures {
	return &Fixtures{db: db}
}

// CreateUser creates a test user with default values
func (f *Fixtures) CreateUser(t *testing.T) *models.User {
	t.Helper()
	f.counter++

	user := &models.User{
		Email: fmt.Sprintf("user%d@example.com", f.counter),
		Name:  fmt.Sprintf("Test User %d", f.counter),
	}
	err := f.db.Pool.QueryRow(context.Background(), `
		INSERT INTO users (email, name)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`, user.Email, user.Name).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

// CreateFolder inserts a folder owned by owner and returns it
func (f *Fixtures) CreateFolder(t *testing.T, owner *models.User) *models.Folder {
	t.Helper()
	f.counter++

	folder := &models.Folder{Name: fmt.Sprintf("Folder %d", f.counter)}
	folder.ID = uuid.New()
	folder.UserID = owner.ID
	err := f.db.Pool.QueryRow(context.Background(), `
		INSERT INTO folders (id, user_id, name)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`, folder.ID, folder.UserID, folder.Name).Scan(&folder.CreatedAt, &folder.UpdatedAt)
	if err != nil {
		t.Fatalf("failed to create folder: %v", err)
	}
	return folder
}

// CreateTag inserts a tag owned by owner and returns it
func (f *Fixtures) CreateTag(t *testing.T, owner *models.User) *models.Tag {
	t.Helper()
	f.counter++

	tag := &models.Tag{Name: fmt.Sprintf("tag-%d", f.counter)}
	tag.ID = uuid.New()
	tag.UserID = owner.ID
	err := f.db.Pool.QueryRow(context.Background(), `
		INSERT INTO tags (id, user_id, name)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`, tag.ID, tag.UserID, tag.Name).Scan(&tag.CreatedAt, &tag.UpdatedAt)
	if err != nil {
		t.Fatalf("failed to create tag: %v", err)
	}
	return tag
}

// CreateBookmark inserts a bookmark owned by owner, filed in folders
func (f *Fixtures) CreateBookmark(t *testing.T, owner *models.User, folders ...*models.Folder) *models.Bookmark {
	t.Helper()
	f.counter++
	ctx := context.Background()

	b := &models.Bookmark{URL: fmt.Sprintf("https://example.com/%d", f.counter)}
	b.ID = uuid.New()
	b.UserID = owner.ID
	err := f.db.Pool.QueryRow(ctx, `
		INSERT INTO bookmarks (id, user_id, url)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`, b.ID, b.UserID, b.URL).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		t.Fatalf("failed to create bookmark: %v", err)
	}

	for _, folder := range folders {
		if _, err := f.db.Pool.Exec(ctx, `
			INSERT INTO bookmark_folders (bookmark_id, folder_id) VALUES ($1, $2)
		`, b.ID, folder.ID); err != nil {
			t.Fatalf("failed to file bookmark: %v", err)
		}
		b.FolderIDs = append(b.FolderIDs, folder.ID)
	}
	return b
}

// ShareFolder grants user role on folder without touching timestamps
func (f *Fixtures) ShareFolder(t *testing.T, folder *models.Folder, user *models.User, role string) {
	t.Helper()
	_, err := f.db.Pool.Exec(context.Background(), `
		INSERT INTO folder_collaborators (folder_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (folder_id, user_id) DO UPDATE SET role = EXCLUDED.role
	`, folder.ID, user.ID, role)
	if err != nil {
		t.Fatalf("failed to share folder: %v", err)
	}
}

// UpdatedAt reads the stored version of a row
func (f *Fixtures) UpdatedAt(t *testing.T, table string, id uuid.UUID) time.Time {
	t.Helper()
	var at time.Time
	err := f.db.Pool.QueryRow(context.Background(),
		fmt.Sprintf(`SELECT updated_at FROM %s WHERE id = $1`, table), id).Scan(&at)
	if err != nil {
		t.Fatalf("failed to read %s.updated_at: %v", table, err)
	}
	return at.UTC()
}
