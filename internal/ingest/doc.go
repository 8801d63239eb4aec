// Package ingest coordinates the two writers for one instrument: an
// unbounded live stream consumer and a one-shot historical backfill, both
// routing records through the same normalize -> registry -> upsert path.
//
// The two run concurrently and may race on the same keys. Correctness does
// not depend on interleaving: entity provisioning is idempotent, and the
// store's per-row conflict resolution is policy driven. The backfill writes
// with keep-existing so a live row always wins; the live consumer writes
// with overwrite so the most recent event always supersedes stored state.
package ingest
