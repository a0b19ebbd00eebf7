package syncengine

import (
	"context"
	"fmt"
	"time"

	"github.com/dimitrije/linkshelf-api/internal/database"
	"github.com/dimitrije/linkshelf-api/internal/models"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// TombstoneReader reads the deletion log.
type TombstoneReader interface {
	Since(ctx context.Context, userID uuid.UUID, entityType models.EntityType, since *time.Time) ([]models.Tombstone, error)
}

// Snapshot is everything visible to a user that changed after a checkpoint.
type Snapshot struct {
	Changes    map[models.EntityType][]models.Record
	Tombstones map[models.EntityType][]models.Tombstone
}

type Collector struct {
	db         *database.DB
	kinds      []Kind
	tombstones TombstoneReader
	// limit bounds concurrent entity-type queries.
	limit int
}

func NewCollector(db *database.DB, kinds []Kind, tombstones TombstoneReader) *Collector {
	return &Collector{db: db, kinds: kinds, tombstones: tombstones, limit: len(kinds)}
}

// Collect queries every entity type concurrently. It fails as a whole if any
// query fails; a partial snapshot is never returned.
func (c *Collector) Collect(ctx context.Context, userID uuid.UUID, since *time.Time) (*Snapshot, error) {
	type part struct {
		changes []models.Record
		deleted []models.Tombstone
	}
	parts := make([]part, len(c.kinds))

	g, gctx := errgroup.WithContext(ctx)
	if c.limit > 0 {
		g.SetLimit(c.limit)
	}
	for i, kind := range c.kinds {
		g.Go(func() error {
			changes, deleted, err := kind.CollectSince(gctx, c.db.Pool, userID, since)
			if err != nil {
				return fmt.Errorf("collect %s: %w", kind.Type(), err)
			}
			logged, err := c.tombstones.Since(gctx, userID, kind.Type(), since)
			if err != nil {
				return fmt.Errorf("collect %s tombstones: %w", kind.Type(), err)
			}
			parts[i] = part{changes: changes, deleted: mergeTombstones(deleted, logged)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Changes:    make(map[models.EntityType][]models.Record, len(c.kinds)),
		Tombstones: make(map[models.EntityType][]models.Tombstone, len(c.kinds)),
	}
	for i, kind := range c.kinds {
		snap.Changes[kind.Type()] = parts[i].changes
		snap.Tombstones[kind.Type()] = parts[i].deleted
	}
	return snap, nil
}

// mergeTombstones unions soft-deleted rows with logged deletions, keeping the
// latest deletion per id.
func mergeTombstones(lists ...[]models.Tombstone) []models.Tombstone {
	idx := make(map[uuid.UUID]int)
	var out []models.Tombstone
	for _, list := range lists {
		for _, t := range list {
			if i, ok := idx[t.EntityID]; ok {
				if t.DeletedAt.After(out[i].DeletedAt) {
					out[i] = t
				}
				continue
			}
			idx[t.EntityID] = len(out)
			out = append(out, t)
		}
	}
	return out
}
