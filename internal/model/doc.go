// Package model defines the canonical record types persisted by the watcher.
//
// Every upstream event shape (live kline, live trade, historical kline row,
// historical trade row) is normalized into exactly one of these types before
// it reaches the store.
//
// Conventions:
//   - Timestamps: int64 milliseconds since Unix epoch (Binance wire format)
//   - Prices and volumes: decimal.Decimal, stored as NUMERIC
//   - Fields the origin cannot supply carry the Unknown sentinel (-1)
package model
