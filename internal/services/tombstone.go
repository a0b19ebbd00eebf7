package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dimitrije/linkshelf-api/internal/database"
	"github.com/dimitrije/linkshelf-api/internal/models"
	"github.com/google/uuid"
)

// TombstoneService is the append-only deletion log. Rows are written inside
// the deleting transaction and never updated.
type TombstoneService struct {
	db *database.DB
}

func NewTombstoneService(db *database.DB) *TombstoneService {
	return &TombstoneService{db: db}
}

func (s *TombstoneService) Append(ctx context.Context, q database.Querier, t *models.Tombstone) error {
	err := q.QueryRow(ctx, `
		INSERT INTO tombstones (entity_type, entity_id, user_id, deleted_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, string(t.EntityType), t.EntityID, t.UserID, t.DeletedAt).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to append tombstone: %w", err)
	}
	return nil
}

// Since returns the deletions of entityType recorded for userID after since,
// or all of them when since is nil.
func (s *TombstoneService) Since(ctx context.Context, userID uuid.UUID, entityType models.EntityType, since *time.Time) ([]models.Tombstone, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, entity_type, entity_id, user_id, deleted_at
		FROM tombstones
		WHERE user_id = $1 AND entity_type = $2
		  AND ($3::timestamptz IS NULL OR deleted_at > $3)
		ORDER BY deleted_at, id
	`, userID, string(entityType), since)
	if err != nil {
		return nil, fmt.Errorf("failed to query tombstones: %w", err)
	}
	defer rows.Close()

	var out []models.Tombstone
	for rows.Next() {
		var (
			t   models.Tombstone
			typ string
		)
		if err := rows.Scan(&t.ID, &typ, &t.EntityID, &t.UserID, &t.DeletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tombstone: %w", err)
		}
		t.EntityType = models.EntityType(typ)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tombstones: %w", err)
	}
	return out, nil
}

// Purge removes tombstones recorded before olderThan. Clients whose checkpoint
// predates the cut-off must run a full sync.
func (s *TombstoneService) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM tombstones WHERE deleted_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to purge tombstones: %w", err)
	}
	return tag.RowsAffected(), nil
}
