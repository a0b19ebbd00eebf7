package syncengine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dimitrije/linkshelf-api/internal/cache"
	"github.com/dimitrije/linkshelf-api/internal/database"
	"github.com/dimitrije/linkshelf-api/internal/models"
	"github.com/google/uuid"
)

// TombstoneWriter appends to the deletion log inside the caller's transaction.
type TombstoneWriter interface {
	Append(ctx context.Context, q database.Querier, t *models.Tombstone) error
}

// Outcome is what happened to one change.
type Outcome struct {
	Decision Decision
	// UpdatedAt is the server version written; zero when nothing was written.
	UpdatedAt time.Time
	// SkippedRelations counts relation targets dropped for lack of access.
	SkippedRelations int
}

func (o Outcome) Written() bool {
	return o.Decision == DecisionCreate || o.Decision == DecisionUpdate || o.Decision == DecisionDelete
}

type Applier struct {
	db          *database.DB
	kinds       map[models.EntityType]Kind
	tombstones  TombstoneWriter
	invalidator cache.Invalidator
	policy      Policy
	logger      *slog.Logger
	now         func() time.Time
}

func NewApplier(db *database.DB, kinds []Kind, tombstones TombstoneWriter, invalidator cache.Invalidator, policy Policy, logger *slog.Logger) *Applier {
	byType := make(map[models.EntityType]Kind, len(kinds))
	for _, k := range kinds {
		byType[k.Type()] = k
	}
	if invalidator == nil {
		invalidator = cache.Nop{}
	}
	return &Applier{
		db:          db,
		kinds:       byType,
		tombstones:  tombstones,
		invalidator: invalidator,
		policy:      policy,
		logger:      logger,
		now:         Now,
	}
}

// Apply resolves and executes change in its own transaction. Errors wrapping
// ErrUnavailable mean no transaction could be opened.
func (a *Applier) Apply(ctx context.Context, userID uuid.UUID, change Change) (Outcome, error) {
	kind, ok := a.kinds[change.Type]
	if !ok {
		return Outcome{}, fmt.Errorf("no storage for entity type %q", change.Type)
	}

	tx, err := a.db.Pool.Begin(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	existing, err := kind.LoadExisting(ctx, tx, userID, change.ID)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to load %s %s: %w", change.Type, change.ID, err)
	}
	if existing != nil && !existing.Editable {
		return Outcome{}, fmt.Errorf("%s %s: %w", change.Type, change.ID, ErrNotPermitted)
	}

	out := Outcome{Decision: Resolve(change, existing, a.policy)}
	now := a.now()
	owner := userID

	switch out.Decision {
	case DecisionNoOp, DecisionConflict:
		return out, nil

	case DecisionCreate:
		if err := kind.Create(ctx, tx, userID, change, now); err != nil {
			return Outcome{}, fmt.Errorf("failed to create %s %s: %w", change.Type, change.ID, err)
		}
		if out.SkippedRelations, err = kind.ReplaceRelations(ctx, tx, userID, change); err != nil {
			return Outcome{}, err
		}

	case DecisionUpdate:
		owner = existing.OwnerID
		updated, err := kind.Update(ctx, tx, change, existing.UpdatedAt, now)
		if err != nil {
			return Outcome{}, fmt.Errorf("failed to update %s %s: %w", change.Type, change.ID, err)
		}
		if !updated {
			// Someone else wrote the row between our read and write.
			return Outcome{Decision: DecisionConflict}, nil
		}
		if out.SkippedRelations, err = kind.ReplaceRelations(ctx, tx, userID, change); err != nil {
			return Outcome{}, err
		}

	case DecisionDelete:
		owner = existing.OwnerID
		if err := kind.SoftDelete(ctx, tx, change.ID, now); err != nil {
			return Outcome{}, fmt.Errorf("failed to delete %s %s: %w", change.Type, change.ID, err)
		}
		if err := a.tombstones.Append(ctx, tx, &models.Tombstone{
			EntityType: change.Type,
			EntityID:   change.ID,
			UserID:     owner,
			DeletedAt:  now,
		}); err != nil {
			return Outcome{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Outcome{}, fmt.Errorf("failed to commit %s %s: %w", change.Type, change.ID, err)
	}
	out.UpdatedAt = now

	if out.SkippedRelations > 0 {
		a.logger.WarnContext(ctx, "skipped relation targets without write access",
			"entity", change.Type, "id", change.ID, "user_id", userID, "skipped", out.SkippedRelations)
	}
	a.invalidator.Invalidate(ctx, change.Type, change.ID, userID, owner)
	return out, nil
}

// Now is the server clock, truncated to the store's microsecond precision so
// versions round-trip exactly.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
