// Package store implements the persistence side of the watcher: entity
// (table) definitions, the idempotent upsert engine, the batch chunker, and
// the pgx-backed Postgres primitives.
//
// Writes are single atomic INSERT ... ON CONFLICT statements with
// parameterized values; the store's primary-key constraint is the sole
// arbiter of per-row write races. The engine never creates entities itself;
// it asks the schema registry to ensure one exists before writing.
package store
