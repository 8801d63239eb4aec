package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/klinewatch/kline-data/internal/metrics"
	"github.com/klinewatch/kline-data/internal/schema"
	"github.com/klinewatch/kline-data/internal/store"
)

// Service wires the ingestion components for one process: the exchange
// history client, the live stream dialer, the upsert engine, and the entity
// registry. It is the construction seam the commands use.
type Service struct {
	history  HistoryClient
	dial     StreamDialer
	engine   *store.Engine
	registry *schema.Registry

	chunkSize       int
	backfillTimeout time.Duration
	backfillLimits  map[string]int

	metrics *metrics.Metrics
	logger  *slog.Logger
}

// ServiceConfig carries the tunables for a Service.
type ServiceConfig struct {
	// ChunkSize bounds rows per upsert statement; below 1 uses
	// store.DefaultChunkSize.
	ChunkSize int
	// BackfillTimeout bounds one backfill job; zero leaves it unbounded.
	BackfillTimeout time.Duration
	// BackfillLimits overrides the per-kind record limits, keyed by
	// Kind.String(). Missing keys use the defaults.
	BackfillLimits map[string]int
}

// NewService creates the ingestion service.
func NewService(history HistoryClient, dial StreamDialer, engine *store.Engine, registry *schema.Registry, cfg ServiceConfig, m *metrics.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		history:         history,
		dial:            dial,
		engine:          engine,
		registry:        registry,
		chunkSize:       cfg.ChunkSize,
		backfillTimeout: cfg.BackfillTimeout,
		backfillLimits:  cfg.BackfillLimits,
		metrics:         m,
		logger:          logger,
	}
}

// StartLiveIngestion starts a live consumer for one (symbol, kind) pair.
// When the consumer reaches Streaming it kicks off the matching backfill
// exactly once in the background; a backfill failure is logged but does not
// disturb the stream.
func (s *Service) StartLiveIngestion(ctx context.Context, symbol string, kind Kind) (*LiveConsumer, error) {
	backfill := func(bctx context.Context) {
		if err := s.RunBackfill(bctx, symbol, kind); err != nil {
			s.logger.Error("background backfill failed",
				"symbol", symbol,
				"kind", kind.String(),
				"error", err,
			)
		}
	}

	consumer := NewLiveConsumer(symbol, kind, s.dial, s.engine, backfill, s.metrics, s.logger)
	if err := consumer.Start(ctx); err != nil {
		return nil, err
	}
	return consumer, nil
}

// RunBackfill runs one backfill job to completion for a (symbol, kind) pair.
func (s *Service) RunBackfill(ctx context.Context, symbol string, kind Kind) error {
	b := NewBackfiller(s.history, s.engine, s.chunkSize, s.backfillTimeout, s.metrics, s.logger)
	return b.Run(ctx, symbol, kind, s.backfillLimits[kind.String()])
}

// KnownEntities returns the sorted entity identities the registry knows.
func (s *Service) KnownEntities() []string {
	return s.registry.Known()
}
