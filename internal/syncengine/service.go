package syncengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dimitrije/linkshelf-api/internal/models"
	"github.com/dimitrije/linkshelf-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/dimitrije/linkshelf-api/internal/syncengine"

type ChangeApplier interface {
	Apply(ctx context.Context, userID uuid.UUID, change Change) (Outcome, error)
}

type ChangeCollector interface {
	Collect(ctx context.Context, userID uuid.UUID, since *time.Time) (*Snapshot, error)
}

type Options struct {
	MaxChanges       int
	TimeoutBase      time.Duration
	TimeoutPerChange time.Duration
}

// Service runs one sync pass per call: collect, apply each client change in
// its own transaction, then catch up on writes that landed meanwhile.
type Service struct {
	collector ChangeCollector
	applier   ChangeApplier
	opts      Options
	logger    *slog.Logger
	now       func() time.Time

	tracer    trace.Tracer
	processed metric.Int64Counter
	conflicts metric.Int64Counter
	failed    metric.Int64Counter
}

func NewService(collector ChangeCollector, applier ChangeApplier, opts Options, logger *slog.Logger) *Service {
	meter := otel.Meter(instrumentationName)
	s := &Service{
		collector: collector,
		applier:   applier,
		opts:      opts,
		logger:    logger,
		now:       Now,
		tracer:    otel.Tracer(instrumentationName),
	}

	s.processed = newCounter(meter, logger, "linkshelf.sync.changes.processed",
		"Client changes applied or acknowledged as no-ops")
	s.conflicts = newCounter(meter, logger, "linkshelf.sync.changes.conflicts",
		"Client changes skipped because the server version won")
	s.failed = newCounter(meter, logger, "linkshelf.sync.changes.failed",
		"Client changes that could not be applied")
	return s
}

func newCounter(meter metric.Meter, logger *slog.Logger, name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		logger.Warn("failed to create counter", "name", name, "error", err)
		return noop.Int64Counter{}
	}
	return c
}

func (s *Service) timeout(n int) time.Duration {
	return s.opts.TimeoutBase + time.Duration(n)*s.opts.TimeoutPerChange
}

// Sync validates req and reconciles it for userID. Validation failures wrap
// ErrInvalidRequest and leave the store untouched; a deadline wraps
// ErrTimeout. Changes committed before a failure stay committed.
func (s *Service) Sync(ctx context.Context, userID uuid.UUID, req *dto.SyncRequest) (*Result, error) {
	parsed, err := ParseRequest(req, s.opts.MaxChanges)
	if err != nil {
		return nil, err
	}

	if d := s.timeout(len(parsed.Changes)); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	ctx, span := s.tracer.Start(ctx, "sync.request", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.Int("sync.changes", len(parsed.Changes)),
		attribute.Bool("sync.full", parsed.LastSyncTimestamp == nil),
	))
	defer span.End()

	res, err := s.run(ctx, userID, parsed)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("sync.processed", res.Processed),
		attribute.Int("sync.conflicts", res.Conflicts),
		attribute.Int("sync.failed", res.Failed),
	)
	s.processed.Add(ctx, int64(res.Processed))
	s.conflicts.Add(ctx, int64(res.Conflicts))
	s.failed.Add(ctx, int64(res.Failed))

	s.logger.InfoContext(ctx, "sync completed",
		"user_id", userID,
		"changes", len(parsed.Changes),
		"processed", res.Processed,
		"conflicts", res.Conflicts,
		"failed", res.Failed,
	)
	return res, nil
}

func (s *Service) run(ctx context.Context, userID uuid.UUID, req *Request) (*Result, error) {
	start := s.now()
	before, err := s.collector.Collect(ctx, userID, req.LastSyncTimestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to collect server changes: %w", err)
	}

	res := &Result{}
	written := make(map[entityKey]time.Time)

	for i, ch := range req.Changes {
		out, err := s.applier.Apply(ctx, userID, ch)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrUnavailable) {
				return nil, fmt.Errorf("sync aborted after %d of %d changes: %w", i, len(req.Changes), err)
			}
			res.Failed++
			res.Failures = append(res.Failures, Failure{Type: ch.Type, ID: ch.ID, Reason: failureReason(err)})
			s.logger.WarnContext(ctx, "client change failed",
				"user_id", userID, "entity", ch.Type, "id", ch.ID, "error", err)
			continue
		}

		if out.Decision == DecisionConflict {
			res.Conflicts++
		} else {
			res.Processed++
		}
		if out.Written() {
			written[entityKey{ch.Type, ch.ID}] = out.UpdatedAt
			res.Acknowledgements = append(res.Acknowledgements, Acknowledgement{Type: ch.Type, ID: ch.ID, UpdatedAt: out.UpdatedAt})
		}
	}

	res.SyncTimestamp = s.now()
	after, err := s.collector.Collect(ctx, userID, &start)
	if err != nil {
		return nil, fmt.Errorf("failed to collect concurrent changes: %w", err)
	}

	res.ServerChanges, res.Tombstones = mergeSnapshots(before, after, written)
	return res, nil
}

type entityKey struct {
	t  models.EntityType
	id uuid.UUID
}

type entityState struct {
	record   models.Record
	deleted  bool
	version  time.Time
	caughtUp bool
}

// mergeSnapshots overlays the catch-up snapshot on the initial one. Rows this
// call wrote are left out unless the catch-up saw a later version of them.
func mergeSnapshots(before, after *Snapshot, written map[entityKey]time.Time) (map[models.EntityType][]models.Record, map[models.EntityType][]uuid.UUID) {
	states := make(map[entityKey]entityState)
	var order []entityKey

	put := func(k entityKey, st entityState) {
		if _, ok := states[k]; !ok {
			order = append(order, k)
		}
		states[k] = st
	}
	for _, snap := range []*Snapshot{before, after} {
		caughtUp := snap == after
		for _, t := range models.EntityTypes {
			for _, r := range snap.Changes[t] {
				put(entityKey{t, r.EntityID()}, entityState{record: r, version: r.Version(), caughtUp: caughtUp})
			}
			for _, tb := range snap.Tombstones[t] {
				put(entityKey{t, tb.EntityID}, entityState{deleted: true, version: tb.DeletedAt, caughtUp: caughtUp})
			}
		}
	}

	changes := make(map[models.EntityType][]models.Record, len(models.EntityTypes))
	tombstones := make(map[models.EntityType][]uuid.UUID, len(models.EntityTypes))
	for _, t := range models.EntityTypes {
		changes[t] = []models.Record{}
		tombstones[t] = []uuid.UUID{}
	}

	for _, k := range order {
		st := states[k]
		if ack, ok := written[k]; ok && (!st.caughtUp || !st.version.After(ack)) {
			continue
		}
		if st.deleted {
			tombstones[k.t] = append(tombstones[k.t], k.id)
		} else {
			changes[k.t] = append(changes[k.t], st.record)
		}
	}
	return changes, tombstones
}

func failureReason(err error) string {
	if errors.Is(err, ErrNotPermitted) {
		return ErrNotPermitted.Error()
	}
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe.Error()
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return "id already in use"
		case "23503":
			return "referenced entity does not exist"
		case "23502", "23514", "22001":
			return "invalid field value"
		}
		return "rejected by store"
	}
	return "internal error"
}
