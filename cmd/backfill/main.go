// Command backfill runs a one-shot historical catch-up for a single symbol,
// then exits. Useful for seeding a fresh database or repairing a gap without
// touching a running watcher: the keep-existing conflict policy guarantees it
// never clobbers rows a live stream wrote.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/klinewatch/kline-data/internal/binance"
	"github.com/klinewatch/kline-data/internal/config"
	"github.com/klinewatch/kline-data/internal/database"
	"github.com/klinewatch/kline-data/internal/ingest"
	"github.com/klinewatch/kline-data/internal/schema"
	"github.com/klinewatch/kline-data/internal/store"
	"github.com/klinewatch/kline-data/internal/version"
)

func main() {
	var (
		symbol   = flag.String("symbol", "", "instrument symbol (e.g. BTCUSD)")
		kindName = flag.String("kind", "kline", "record kind: kline or trade")
		interval = flag.String("interval", "1m", "bar interval (kline only)")
		limit    = flag.Int("limit", 0, "records to fetch (0 = kind default)")
		restURL  = flag.String("rest-url", config.DefaultRestURL, "exchange REST base URL")
		apiKey   = flag.String("api-key", "", "exchange API key (required for trades)")
		timeout  = flag.Duration("timeout", 5*time.Minute, "overall job timeout")
	)
	flag.Parse()

	godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if *symbol == "" {
		logger.Error("-symbol is required")
		os.Exit(1)
	}
	kind, err := ingest.ParseKind(*kindName, kindInterval(*kindName, *interval))
	if err != nil {
		logger.Error("invalid kind", "error", err)
		os.Exit(1)
	}

	logger.Info("starting backfill",
		"version", version.Version,
		"symbol", *symbol,
		"kind", kind.String(),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Connection details come from POSTGRES_* variables, matching the
	// watcher's local-development defaults.
	cfg := config.FromEnv()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	db := store.NewPostgres(pool, logger)
	registry := schema.NewRegistry(db, nil, logger)
	if err := registry.Refresh(ctx); err != nil {
		logger.Error("failed to enumerate entities", "error", err)
		os.Exit(1)
	}
	engine := store.NewEngine(db, registry, nil, logger)

	client := binance.NewClient(*restURL, *apiKey, binance.WithLogger(logger))

	b := ingest.NewBackfiller(client, engine, cfg.Ingestion.ChunkSize, *timeout, nil, logger)
	if err := b.Run(ctx, *symbol, kind, *limit); err != nil {
		logger.Error("backfill failed", "error", err)
		os.Exit(1)
	}
}

func kindInterval(kind, interval string) string {
	if kind == "trade" {
		return ""
	}
	return interval
}
