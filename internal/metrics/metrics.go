// Package metrics defines the Prometheus metrics exposed by the watcher.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for one watcher process.
// All methods are nil-safe so components can run without metrics in tests.
type Metrics struct {
	RecordsUpserted     *prometheus.CounterVec
	ConflictsKept       *prometheus.CounterVec
	MalformedRecords    *prometheus.CounterVec
	EntitiesProvisioned prometheus.Counter
	UpsertDuration      prometheus.Histogram
	StreamEvents        *prometheus.CounterVec
	BackfillRuns        *prometheus.CounterVec
}

// New registers and returns the watcher metrics.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RecordsUpserted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "watcher_records_upserted_total",
			Help: "Records handed to the upsert engine, by entity and conflict policy.",
		}, []string{"entity", "policy"}),
		ConflictsKept: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "watcher_conflicts_kept_total",
			Help: "Rows skipped by keep-existing conflict resolution, by entity.",
		}, []string{"entity"}),
		MalformedRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "watcher_malformed_records_total",
			Help: "Records dropped during normalization, by origin.",
		}, []string{"origin"}),
		EntitiesProvisioned: factory.NewCounter(prometheus.CounterOpts{
			Name: "watcher_entities_provisioned_total",
			Help: "Storage entities created by the schema registry.",
		}),
		UpsertDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "watcher_upsert_duration_seconds",
			Help:    "Duration of store upsert round trips.",
			Buckets: prometheus.DefBuckets,
		}),
		StreamEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "watcher_stream_events_total",
			Help: "Live stream events received, by entity.",
		}, []string{"entity"}),
		BackfillRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "watcher_backfill_runs_total",
			Help: "Backfill job completions, by entity and outcome.",
		}, []string{"entity", "outcome"}),
	}
}

// ObserveUpsert records an upsert of n rows under the given policy.
func (m *Metrics) ObserveUpsert(entity, policy string, n int, seconds float64) {
	if m == nil {
		return
	}
	m.RecordsUpserted.WithLabelValues(entity, policy).Add(float64(n))
	m.UpsertDuration.Observe(seconds)
}

// ObserveConflictsKept records rows skipped by keep-existing resolution.
func (m *Metrics) ObserveConflictsKept(entity string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.ConflictsKept.WithLabelValues(entity).Add(float64(n))
}

// ObserveMalformed records a dropped record by origin.
func (m *Metrics) ObserveMalformed(origin string) {
	if m == nil {
		return
	}
	m.MalformedRecords.WithLabelValues(origin).Inc()
}

// ObserveProvisioned records a newly created entity.
func (m *Metrics) ObserveProvisioned() {
	if m == nil {
		return
	}
	m.EntitiesProvisioned.Inc()
}

// ObserveStreamEvent records one received live event.
func (m *Metrics) ObserveStreamEvent(entity string) {
	if m == nil {
		return
	}
	m.StreamEvents.WithLabelValues(entity).Inc()
}

// ObserveBackfill records a backfill completion.
func (m *Metrics) ObserveBackfill(entity, outcome string) {
	if m == nil {
		return
	}
	m.BackfillRuns.WithLabelValues(entity, outcome).Inc()
}
