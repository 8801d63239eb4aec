package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/klinewatch/kline-data/internal/metrics"
	"github.com/klinewatch/kline-data/internal/normalize"
	"github.com/klinewatch/kline-data/internal/store"
)

// Backfill limits carried over from the original deployment.
const (
	DefaultKlineBackfillLimit = 6000
	DefaultTradeBackfillLimit = 3000
)

// Backfiller runs one-shot catch-up jobs: fetch the most recent historical
// records for an instrument, normalize them, and persist them in bounded
// chunks with keep-existing conflict resolution. A row the live stream
// already wrote is never clobbered; a row the live stream has not touched is
// filled in.
type Backfiller struct {
	history   HistoryClient
	engine    *store.Engine
	chunkSize int
	timeout   time.Duration
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewBackfiller creates a backfill coordinator. A chunkSize below 1 falls
// back to store.DefaultChunkSize and one above store.MaxBatchRows is clamped
// to it, so every chunk fits in a single statement. A zero timeout leaves
// fetches unbounded.
func NewBackfiller(history HistoryClient, engine *store.Engine, chunkSize int, timeout time.Duration, m *metrics.Metrics, logger *slog.Logger) *Backfiller {
	if chunkSize < 1 {
		chunkSize = store.DefaultChunkSize
	}
	if chunkSize > store.MaxBatchRows {
		chunkSize = store.MaxBatchRows
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Backfiller{
		history:   history,
		engine:    engine,
		chunkSize: chunkSize,
		timeout:   timeout,
		metrics:   m,
		logger:    logger,
	}
}

// Run executes one backfill job to completion. It is not restarted on
// failure; a retrieval or persistence error terminates the job and is
// returned to the caller. The concurrently running live consumer for the
// same key is unaffected either way.
func (b *Backfiller) Run(ctx context.Context, symbol string, kind Kind, limit int) error {
	if limit <= 0 {
		if kind.IsKline() {
			limit = DefaultKlineBackfillLimit
		} else {
			limit = DefaultTradeBackfillLimit
		}
	}
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	ent := kind.Entity(symbol)
	logger := b.logger.With(
		"entity", ent.Name,
		"kind", kind.String(),
		"run_id", uuid.NewString(),
	)

	start := time.Now()
	logger.Info("backfill starting", "symbol", symbol, "limit", limit)

	rows, dropped, err := b.fetchRows(ctx, symbol, kind, limit, logger)
	if err != nil {
		b.metrics.ObserveBackfill(ent.Name, "error")
		logger.Error("backfill retrieval failed", "error", err)
		return err
	}

	var written int
	for _, chunk := range store.Chunks(rows, b.chunkSize) {
		if err := b.engine.UpsertMany(ctx, ent, chunk, store.KeepExisting); err != nil {
			b.metrics.ObserveBackfill(ent.Name, "error")
			logger.Error("backfill write failed", "written", written, "error", err)
			return err
		}
		written += len(chunk)
	}

	b.metrics.ObserveBackfill(ent.Name, "ok")
	logger.Info("backfill complete",
		"records", written,
		"dropped", dropped,
		"duration", time.Since(start),
	)
	return nil
}

// fetchRows retrieves and normalizes the historical records for one kind.
// Malformed rows are dropped and logged; they do not fail the job.
func (b *Backfiller) fetchRows(ctx context.Context, symbol string, kind Kind, limit int, logger *slog.Logger) (rows [][]any, dropped int, err error) {
	if kind.IsKline() {
		raw, err := b.history.RecentKlines(ctx, symbol, kind.Interval(), limit)
		if err != nil {
			return nil, 0, fmt.Errorf("backfill %s: %w", kind, err)
		}
		for _, r := range raw {
			bar, err := normalize.BarFromHistory(r)
			if err != nil {
				dropped++
				b.dropMalformed(logger, err)
				continue
			}
			rows = append(rows, bar.Row())
		}
		return rows, dropped, nil
	}

	raw, err := b.history.RecentTrades(ctx, symbol, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("backfill %s: %w", kind, err)
	}
	for _, r := range raw {
		trade, err := normalize.TradeFromHistory(r)
		if err != nil {
			dropped++
			b.dropMalformed(logger, err)
			continue
		}
		rows = append(rows, trade.Row())
	}
	return rows, dropped, nil
}

func (b *Backfiller) dropMalformed(logger *slog.Logger, err error) {
	var merr *normalize.MalformedRecordError
	if errors.As(err, &merr) {
		b.metrics.ObserveMalformed(merr.Origin)
	}
	logger.Warn("dropping malformed record", "error", err)
}
