package store

import (
	"context"
	"errors"
	"fmt"
)

// ConflictPolicy selects what happens when an incoming row collides with an
// existing row on the entity's primary key.
type ConflictPolicy int

const (
	// Overwrite replaces every non-key column with the incoming value.
	// Live stream writes use this: the latest event is authoritative.
	Overwrite ConflictPolicy = iota

	// KeepExisting leaves the stored row untouched. Backfill writes use
	// this so they never clobber fresher live-derived rows.
	KeepExisting
)

// String returns the policy name used in logs and metrics labels.
func (p ConflictPolicy) String() string {
	switch p {
	case Overwrite:
		return "overwrite"
	case KeepExisting:
		return "keep_existing"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// Errors
var (
	ErrEmptyBatch    = errors.New("empty batch")
	ErrBatchTooLarge = errors.New("batch exceeds maximum size")
	ErrRowShape      = errors.New("row length does not match entity columns")
)

// PersistenceError is a failed store round trip. The batch it covers was not
// partially applied; the failing statement context is carried for diagnosis.
type PersistenceError struct {
	Entity string
	Op     string // "provision", "upsert", "query"
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error on %s (%s): %v", e.Entity, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// DB is the set of store primitives the engine and registry rely on.
// *Postgres implements it; tests substitute in-memory fakes.
type DB interface {
	CreateTableIfNotExists(ctx context.Context, ent Entity) error
	DropTable(ctx context.Context, name string, ifExists bool) error
	ListTableNames(ctx context.Context) ([]string, error)

	// UpsertRows writes rows into ent under the given conflict policy in a
	// single statement, returning the number of rows actually written
	// (inserted, or inserted+updated under Overwrite).
	UpsertRows(ctx context.Context, ent Entity, rows [][]any, policy ConflictPolicy) (int64, error)
}

// EntityEnsurer is the slice of the schema registry the engine needs: make
// sure an entity exists before the first write lands in it.
type EntityEnsurer interface {
	Ensure(ctx context.Context, ent Entity) error
}
