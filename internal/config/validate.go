package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *WatcherConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if err := c.Database.validate("database"); err != nil {
		return err
	}

	if c.Ingestion.ChunkSize < 1 {
		return errors.New("ingestion.chunk_size must be >= 1")
	}
	if c.Ingestion.KlineLimit < 1 {
		return errors.New("ingestion.kline_limit must be >= 1")
	}
	if c.Ingestion.TradeLimit < 1 {
		return errors.New("ingestion.trade_limit must be >= 1")
	}
	if len(c.Ingestion.Watch) == 0 {
		return errors.New("ingestion.watch must name at least one subscription")
	}
	for i, w := range c.Ingestion.Watch {
		if err := w.validate(); err != nil {
			return fmt.Errorf("ingestion.watch[%d]: %w", i, err)
		}
	}

	if c.Stream.BufferSize < 1 {
		return errors.New("stream.buffer_size must be >= 1")
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}

func (w WatchConfig) validate() error {
	if w.Symbol == "" {
		return errors.New("symbol is required")
	}
	switch w.Kind {
	case "kline":
		if w.Interval == "" {
			return errors.New("kind kline requires an interval")
		}
	case "trade":
		if w.Interval != "" {
			return errors.New("kind trade takes no interval")
		}
	default:
		return fmt.Errorf("unknown kind %q (want kline or trade)", w.Kind)
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
