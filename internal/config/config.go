package config

import "time"

// WatcherConfig is the root configuration for a watcher instance.
type WatcherConfig struct {
	Instance  InstanceConfig  `yaml:"instance"`
	Exchange  ExchangeConfig  `yaml:"exchange"`
	Database  DBConfig        `yaml:"database"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Stream    StreamConfig    `yaml:"stream"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// InstanceConfig identifies this watcher.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// ExchangeConfig holds Binance API settings.
type ExchangeConfig struct {
	RestURL    string        `yaml:"rest_url"`
	WSURL      string        `yaml:"ws_url"`
	APIKey     string        `yaml:"api_key"` // Required only for /api/v3/historicalTrades
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// DBConfig holds the PostgreSQL connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// IngestionConfig holds upsert and backfill settings plus the watch list.
type IngestionConfig struct {
	ChunkSize       int           `yaml:"chunk_size"`
	BackfillTimeout time.Duration `yaml:"backfill_timeout"`
	KlineLimit      int           `yaml:"kline_limit"`
	TradeLimit      int           `yaml:"trade_limit"`
	Watch           []WatchConfig `yaml:"watch"`
}

// WatchConfig names one live subscription: a symbol plus the record kind.
type WatchConfig struct {
	Symbol   string `yaml:"symbol"`
	Kind     string `yaml:"kind"`     // "kline" or "trade"
	Interval string `yaml:"interval"` // required for kline
}

// StreamConfig holds WebSocket connection settings.
type StreamConfig struct {
	PingTimeout time.Duration `yaml:"ping_timeout"`
	BufferSize  int           `yaml:"buffer_size"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
