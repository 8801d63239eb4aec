package schema

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/klinewatch/kline-data/internal/metrics"
	"github.com/klinewatch/kline-data/internal/store"
)

// Catalog is the slice of the store the registry needs to provision and
// enumerate entities.
type Catalog interface {
	CreateTableIfNotExists(ctx context.Context, ent store.Entity) error
	DropTable(ctx context.Context, name string, ifExists bool) error
	ListTableNames(ctx context.Context) ([]string, error)
}

// Registry caches the set of entity identities known to exist.
//
// Lifecycle: populate with Refresh at startup, extend through Ensure as new
// instruments appear, shrink only through an explicit Drop.
type Registry struct {
	catalog Catalog
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu    sync.RWMutex
	known map[string]struct{}

	// provisionMu serializes the check-then-provision sequence so
	// concurrent callers for the same identity issue one create.
	provisionMu sync.Mutex
}

// NewRegistry creates an empty registry. Call Refresh before first use.
func NewRegistry(catalog Catalog, m *metrics.Metrics, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		catalog: catalog,
		metrics: m,
		logger:  logger,
		known:   make(map[string]struct{}),
	}
}

// Refresh replaces the known set with the store's current table list.
func (r *Registry) Refresh(ctx context.Context) error {
	names, err := r.catalog.ListTableNames(ctx)
	if err != nil {
		return fmt.Errorf("refresh entity registry: %w", err)
	}

	known := make(map[string]struct{}, len(names))
	for _, name := range names {
		known[name] = struct{}{}
	}

	r.mu.Lock()
	r.known = known
	r.mu.Unlock()

	r.logger.Debug("entity registry refreshed", "entities", len(names))
	return nil
}

// Ensure makes sure the entity exists, provisioning it on first sight.
// Known identities return immediately without I/O. After provisioning, the
// known set is re-enumerated from the store rather than optimistically
// extended, so concurrent creators converge on the same truth.
func (r *Registry) Ensure(ctx context.Context, ent store.Entity) error {
	if r.Contains(ent.Name) {
		return nil
	}

	r.provisionMu.Lock()
	defer r.provisionMu.Unlock()

	// Another caller may have provisioned it while we waited.
	if r.Contains(ent.Name) {
		return nil
	}

	if err := r.catalog.CreateTableIfNotExists(ctx, ent); err != nil {
		return fmt.Errorf("provision entity %s: %w", ent.Name, err)
	}
	if err := r.Refresh(ctx); err != nil {
		return err
	}

	r.metrics.ObserveProvisioned()
	r.logger.Info("provisioned entity", "entity", ent.Name)
	return nil
}

// Contains reports whether an identity is known to exist.
func (r *Registry) Contains(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.known[name]
	return ok
}

// Known returns a sorted snapshot of known entity identities.
func (r *Registry) Known() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.known))
	for name := range r.known {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Drop removes an entity. Administrative only, never on the ingestion hot
// path. With ifExistsOK set, dropping an unknown identity is a no-op.
func (r *Registry) Drop(ctx context.Context, identity string, ifExistsOK bool) error {
	name := store.EntityName(identity)

	if ifExistsOK && !r.Contains(name) {
		return nil
	}
	if err := r.catalog.DropTable(ctx, name, ifExistsOK); err != nil {
		return fmt.Errorf("drop entity %s: %w", name, err)
	}
	return r.Refresh(ctx)
}
