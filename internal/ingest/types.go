package ingest

import (
	"context"
	"fmt"

	"github.com/klinewatch/kline-data/internal/binance"
	"github.com/klinewatch/kline-data/internal/store"
)

// Kind identifies which entity of an instrument a task ingests: bars for one
// interval, or trades.
type Kind struct {
	kline    bool
	interval string
}

// KlineKind returns the bar kind for an interval (e.g. "1m").
func KlineKind(interval string) Kind {
	return Kind{kline: true, interval: interval}
}

// TradeKind returns the trade kind.
func TradeKind() Kind {
	return Kind{}
}

// IsKline reports whether the kind ingests bars.
func (k Kind) IsKline() bool { return k.kline }

// Interval returns the bar interval; empty for trades.
func (k Kind) Interval() string { return k.interval }

// Entity returns the storage entity for this kind of one instrument.
func (k Kind) Entity(symbol string) store.Entity {
	if k.kline {
		return store.BarEntity(symbol, k.interval)
	}
	return store.TradeEntity(symbol)
}

// StreamName returns the live subscription path for this kind.
func (k Kind) StreamName(symbol string) string {
	if k.kline {
		return binance.KlineStreamName(symbol, k.interval)
	}
	return binance.TradeStreamName(symbol)
}

func (k Kind) String() string {
	if k.kline {
		return "kline@" + k.interval
	}
	return "trade"
}

// ParseKind maps a CLI/config kind name onto a Kind.
func ParseKind(name, interval string) (Kind, error) {
	switch name {
	case "kline":
		if interval == "" {
			return Kind{}, fmt.Errorf("kind kline requires an interval")
		}
		return KlineKind(interval), nil
	case "trade":
		return TradeKind(), nil
	default:
		return Kind{}, fmt.Errorf("unknown kind %q (want kline or trade)", name)
	}
}

// HistoryClient is the slice of the exchange REST client the backfill needs.
// *binance.Client implements it.
type HistoryClient interface {
	RecentKlines(ctx context.Context, symbol, interval string, limit int) ([]binance.HistoricalKline, error)
	RecentTrades(ctx context.Context, symbol string, limit int) ([]binance.HistoricalTrade, error)
}

// EventStream is one open live subscription. *binance.Stream implements it.
type EventStream interface {
	Messages() <-chan binance.Message
	Errors() <-chan error
	Close() error
}

// StreamDialer opens the named live subscription.
type StreamDialer func(ctx context.Context, name string) (EventStream, error)
