package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/klinewatch/kline-data/internal/binance"
	"github.com/klinewatch/kline-data/internal/config"
	"github.com/klinewatch/kline-data/internal/database"
	"github.com/klinewatch/kline-data/internal/ingest"
	"github.com/klinewatch/kline-data/internal/metrics"
	"github.com/klinewatch/kline-data/internal/schema"
	"github.com/klinewatch/kline-data/internal/store"
	"github.com/klinewatch/kline-data/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/watcher.yaml", "path to config file")
	flag.Parse()

	// Local development convenience; a missing .env is fine.
	godotenv.Load()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting watcher",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"exchange_url", cfg.Exchange.RestURL,
		"watch", len(cfg.Ingestion.Watch),
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger.Info("database connected")

	// Metrics
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector())
	m := metrics.New(promReg)

	// Storage, entity registry, upsert engine
	db := store.NewPostgres(pool, logger)
	registry := schema.NewRegistry(db, m, logger)
	if err := registry.Refresh(ctx); err != nil {
		logger.Error("failed to enumerate entities", "error", err)
		os.Exit(1)
	}
	logger.Info("entity registry ready", "entities", len(registry.Known()))

	engine := store.NewEngine(db, registry, m, logger)

	// Exchange clients
	apiClient := binance.NewClient(
		cfg.Exchange.RestURL,
		cfg.Exchange.APIKey,
		binance.WithLogger(logger),
		binance.WithTimeout(cfg.Exchange.Timeout),
		binance.WithRetries(cfg.Exchange.MaxRetries, time.Second),
	)

	streamCfg := binance.DefaultStreamConfig()
	streamCfg.URL = cfg.Exchange.WSURL
	streamCfg.PingTimeout = cfg.Stream.PingTimeout
	streamCfg.BufferSize = cfg.Stream.BufferSize

	dial := func(ctx context.Context, name string) (ingest.EventStream, error) {
		return binance.DialStream(ctx, streamCfg, name, logger)
	}

	svc := ingest.NewService(apiClient, dial, engine, registry, ingest.ServiceConfig{
		ChunkSize:       cfg.Ingestion.ChunkSize,
		BackfillTimeout: cfg.Ingestion.BackfillTimeout,
		BackfillLimits:  backfillLimits(cfg),
	}, m, logger)

	// Start one live consumer per watch entry
	consumers := make([]*ingest.LiveConsumer, 0, len(cfg.Ingestion.Watch))
	for _, w := range cfg.Ingestion.Watch {
		kind, err := ingest.ParseKind(w.Kind, w.Interval)
		if err != nil {
			logger.Error("invalid watch entry", "symbol", w.Symbol, "error", err)
			os.Exit(1)
		}

		c, err := svc.StartLiveIngestion(ctx, w.Symbol, kind)
		if err != nil {
			logger.Error("failed to start live ingestion",
				"symbol", w.Symbol,
				"kind", kind.String(),
				"error", err,
			)
			os.Exit(1)
		}
		consumers = append(consumers, c)
	}

	// Health and metrics server
	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: createHealthHandler(cfg, pool, registry, consumers, promReg),
	}
	go func() {
		logger.Info("starting health server", "port", cfg.Metrics.Port)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	logger.Info("watcher running",
		"instance_id", cfg.Instance.ID,
		"consumers", len(consumers),
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port),
	)

	// Supervise: a failed consumer takes the process down so the operator
	// (or the orchestrator) restarts it with a fresh connection.
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range consumers {
		c := c
		g.Go(func() error {
			select {
			case <-c.Done():
				if err := c.Err(); err != nil {
					return fmt.Errorf("consumer failed: %w", err)
				}
				return nil
			case <-gctx.Done():
				stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer stopCancel()
				return c.Stop(stopCtx)
			}
		})
	}

	err = g.Wait()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	healthServer.Shutdown(shutdownCtx)

	if !isCleanShutdown(err) {
		logger.Error("watcher stopped with failure", "error", err)
		os.Exit(1)
	}
	logger.Info("watcher stopped")
}

// isCleanShutdown reports whether the supervision group ended without a real
// failure. Cancellation, wrapped or not, is the normal shutdown path.
func isCleanShutdown(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

// backfillLimits maps each watched kind onto its configured record limit.
func backfillLimits(cfg *config.WatcherConfig) map[string]int {
	limits := make(map[string]int)
	for _, w := range cfg.Ingestion.Watch {
		kind, err := ingest.ParseKind(w.Kind, w.Interval)
		if err != nil {
			continue // Validate already rejected these
		}
		if kind.IsKline() {
			limits[kind.String()] = cfg.Ingestion.KlineLimit
		} else {
			limits[kind.String()] = cfg.Ingestion.TradeLimit
		}
	}
	return limits
}

// createHealthHandler creates the HTTP handler for health checks and metrics.
func createHealthHandler(cfg *config.WatcherConfig, pool interface {
	Ping(context.Context) error
}, registry *schema.Registry, consumers []*ingest.LiveConsumer, promReg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()

	mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		// Check database
		if err := pool.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["postgres"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["postgres"] = "connected"
		}

		// Check consumers
		states := make(map[string]int)
		for _, c := range consumers {
			states[c.State().String()]++
		}
		health.Components["consumers"] = states
		if states["failed"] > 0 {
			health.Status = "degraded"
		}

		health.Components["entities"] = len(registry.Known())

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.HandleFunc("/debug/entities", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"count":    len(registry.Known()),
			"entities": registry.Known(),
		})
	})

	return mux
}
