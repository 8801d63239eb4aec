package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/klinewatch/kline-data/internal/metrics"
)

// MaxBatchRows caps a single upsertMany statement. With the widest entity
// (14 columns) this stays well under Postgres' 65535-parameter limit.
const MaxBatchRows = 2000

// Engine performs idempotent single-record and bulk upserts against
// provisioned entities. Every write first asks the registry to ensure the
// target entity exists; conflict resolution happens entirely inside the
// store's atomic ON CONFLICT statement.
type Engine struct {
	db       DB
	entities EntityEnsurer
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewEngine creates an upsert engine.
func NewEngine(db DB, entities EntityEnsurer, m *metrics.Metrics, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		db:       db,
		entities: entities,
		metrics:  m,
		logger:   logger,
	}
}

// UpsertOne writes a single record row under the given conflict policy.
func (e *Engine) UpsertOne(ctx context.Context, ent Entity, row []any, policy ConflictPolicy) error {
	return e.UpsertMany(ctx, ent, [][]any{row}, policy)
}

// UpsertMany writes a non-empty, size-bounded batch of rows belonging to one
// entity in a single round trip. Failure means the whole batch was not
// applied; the engine does not retry.
func (e *Engine) UpsertMany(ctx context.Context, ent Entity, rows [][]any, policy ConflictPolicy) error {
	if len(rows) == 0 {
		return &PersistenceError{Entity: ent.Name, Op: "upsert", Err: ErrEmptyBatch}
	}
	if len(rows) > MaxBatchRows {
		return &PersistenceError{Entity: ent.Name, Op: "upsert", Err: ErrBatchTooLarge}
	}
	for _, row := range rows {
		if len(row) != len(ent.Columns) {
			return &PersistenceError{Entity: ent.Name, Op: "upsert", Err: ErrRowShape}
		}
	}

	if err := e.entities.Ensure(ctx, ent); err != nil {
		return &PersistenceError{Entity: ent.Name, Op: "provision", Err: err}
	}

	start := time.Now()
	written, err := e.db.UpsertRows(ctx, ent, rows, policy)
	if err != nil {
		e.logger.Error("upsert failed",
			"entity", ent.Name,
			"rows", len(rows),
			"policy", policy.String(),
			"error", err,
		)
		return &PersistenceError{Entity: ent.Name, Op: "upsert", Err: err}
	}

	e.metrics.ObserveUpsert(ent.Name, policy.String(), len(rows), time.Since(start).Seconds())
	if policy == KeepExisting {
		e.metrics.ObserveConflictsKept(ent.Name, int64(len(rows))-written)
	}

	e.logger.Debug("upserted rows",
		"entity", ent.Name,
		"rows", len(rows),
		"written", written,
		"policy", policy.String(),
		"duration", time.Since(start),
	)
	return nil
}
