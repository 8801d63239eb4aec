// Package storetest provides an in-memory store.DB implementation mirroring
// the Postgres upsert semantics, for tests that exercise the ingestion path
// without a database.
package storetest

import (
	"context"
	"sort"
	"sync"

	"github.com/klinewatch/kline-data/internal/store"
)

// MemDB is an in-memory store.DB. Conflict resolution follows the same rules
// as the real ON CONFLICT statements: Overwrite replaces the whole row,
// KeepExisting leaves it untouched.
type MemDB struct {
	mu     sync.Mutex
	tables map[string]*memTable

	// Error injection. When set, the corresponding operation fails.
	CreateErr error
	UpsertErr error
	ListErr   error

	// Creates counts physical table creations (not if-not-exists no-ops).
	Creates int
}

type memTable struct {
	entity store.Entity
	keyIdx int
	rows   map[any][]any
}

// NewMemDB returns an empty in-memory store.
func NewMemDB() *MemDB {
	return &MemDB{tables: make(map[string]*memTable)}
}

// CreateTableIfNotExists provisions a table once; repeat calls are no-ops.
func (m *MemDB) CreateTableIfNotExists(_ context.Context, ent store.Entity) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tables[ent.Name]; ok {
		return nil
	}
	keyIdx := 0
	for i, c := range ent.Columns {
		if c.PrimaryKey {
			keyIdx = i
		}
	}
	m.tables[ent.Name] = &memTable{
		entity: ent,
		keyIdx: keyIdx,
		rows:   make(map[any][]any),
	}
	m.Creates++
	return nil
}

// DropTable removes a table.
func (m *MemDB) DropTable(_ context.Context, name string, ifExists bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tables[name]; !ok {
		if ifExists {
			return nil
		}
		return errTableMissing(name)
	}
	delete(m.tables, name)
	return nil
}

// ListTableNames enumerates provisioned tables.
func (m *MemDB) ListTableNames(_ context.Context) ([]string, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.tables))
	for name := range m.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// UpsertRows applies rows under the given policy and reports how many rows
// were written.
func (m *MemDB) UpsertRows(_ context.Context, ent store.Entity, rows [][]any, policy store.ConflictPolicy) (int64, error) {
	if m.UpsertErr != nil {
		return 0, m.UpsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	table, ok := m.tables[ent.Name]
	if !ok {
		return 0, errTableMissing(ent.Name)
	}

	var written int64
	for _, row := range rows {
		key := row[table.keyIdx]
		if _, exists := table.rows[key]; exists && policy == store.KeepExisting {
			continue
		}
		stored := make([]any, len(row))
		copy(stored, row)
		table.rows[key] = stored
		written++
	}
	return written, nil
}

// Rows returns a table's rows ordered by primary key. Keys must be int64,
// which holds for every entity the watcher defines.
func (m *MemDB) Rows(name string) [][]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	table, ok := m.tables[name]
	if !ok {
		return nil
	}
	keys := make([]int64, 0, len(table.rows))
	for key := range table.rows {
		keys = append(keys, key.(int64))
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make([][]any, 0, len(keys))
	for _, key := range keys {
		out = append(out, table.rows[key])
	}
	return out
}

// Row returns the stored row for a key, if present.
func (m *MemDB) Row(name string, key any) ([]any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	table, ok := m.tables[name]
	if !ok {
		return nil, false
	}
	row, ok := table.rows[key]
	return row, ok
}

type errTableMissing string

func (e errTableMissing) Error() string {
	return "table does not exist: " + string(e)
}
