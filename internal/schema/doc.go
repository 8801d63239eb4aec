// Package schema maintains the process-wide registry of storage entities
// known to exist, and provisions new ones lazily the first time a record for
// an unseen (instrument, kind) pair arrives.
//
// The registry is the single owner of "does entity X exist" truth. Writers
// consult it before every write; the create statement is idempotent and the
// known set is refreshed by re-enumerating the store, so concurrent callers
// racing on the same identity converge on one physical entity.
package schema
