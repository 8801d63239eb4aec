package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultRestURL         = "https://api.binance.com"
	DefaultWSURL           = "wss://stream.binance.com:9443/ws"
	DefaultAPITimeout      = 30 * time.Second
	DefaultMaxRetries      = 3
	DefaultDBHost          = "localhost"
	DefaultDBPort          = 5432
	DefaultDBName          = "kline"
	DefaultDBUser          = "postgres"
	DefaultDBPassword      = "kline"
	DefaultDBSSLMode       = "prefer"
	DefaultMaxConns        = 10
	DefaultMinConns        = 2
	DefaultChunkSize       = 1000
	DefaultKlineLimit      = 6000
	DefaultTradeLimit      = 3000
	DefaultPingTimeout     = 10 * time.Minute
	DefaultStreamBufferLen = 4096
	DefaultMetricsPort     = 9090
	DefaultMetricsPath     = "/metrics"
)

func (c *WatcherConfig) applyDefaults() {
	// Exchange defaults
	if c.Exchange.RestURL == "" {
		c.Exchange.RestURL = DefaultRestURL
	}
	if c.Exchange.WSURL == "" {
		c.Exchange.WSURL = DefaultWSURL
	}
	if c.Exchange.Timeout == 0 {
		c.Exchange.Timeout = DefaultAPITimeout
	}
	if c.Exchange.MaxRetries == 0 {
		c.Exchange.MaxRetries = DefaultMaxRetries
	}

	// Database defaults match the original local deployment.
	if c.Database.Host == "" {
		c.Database.Host = DefaultDBHost
	}
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.Name == "" {
		c.Database.Name = DefaultDBName
	}
	if c.Database.User == "" {
		c.Database.User = DefaultDBUser
	}
	if c.Database.Password == "" {
		c.Database.Password = DefaultDBPassword
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}

	// Ingestion defaults
	if c.Ingestion.ChunkSize == 0 {
		c.Ingestion.ChunkSize = DefaultChunkSize
	}
	if c.Ingestion.KlineLimit == 0 {
		c.Ingestion.KlineLimit = DefaultKlineLimit
	}
	if c.Ingestion.TradeLimit == 0 {
		c.Ingestion.TradeLimit = DefaultTradeLimit
	}

	// Stream defaults
	if c.Stream.PingTimeout == 0 {
		c.Stream.PingTimeout = DefaultPingTimeout
	}
	if c.Stream.BufferSize == 0 {
		c.Stream.BufferSize = DefaultStreamBufferLen
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}
