// Package binance is the boundary to the upstream market-data collaborator:
// a REST client for paginated historical retrieval (klines, trades) and a
// websocket stream client for live push events.
//
// Delivery is best-effort with no ordering or dedup guarantee; downstream
// normalization and idempotent upserts absorb duplicates and late arrivals.
package binance
