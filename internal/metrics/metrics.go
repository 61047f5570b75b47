// Package metrics provides Prometheus metrics for the POS reconciler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the reconciler.
type Metrics struct {
	// Record metrics
	RecordsProcessed prometheus.Counter
	RecordsDuplicate prometheus.Counter
	RecordsMalformed prometheus.Counter
	RecordsRejected  *prometheus.CounterVec

	// Group metrics
	GroupsProcessed prometheus.Counter

	// Registry metrics
	IDsReserved      *prometheus.CounterVec
	EntitiesCreated  *prometheus.CounterVec
	RegistryFlushes  *prometheus.CounterVec
	CatalogConflicts *prometheus.CounterVec

	// Error metrics
	StorageErrors *prometheus.CounterVec

	// Timing metrics
	InvocationDuration prometheus.Histogram
}

// Config holds metrics configuration.
type Config struct {
	Enabled bool
	Address string // Address for metrics HTTP server (e.g., ":9090")
}

var defaultMetrics *Metrics

// Init initializes the metrics package with global metrics.
// Call this once at startup.
func Init(namespace string) *Metrics {
	if namespace == "" {
		namespace = "pos_reconciler"
	}

	m := &Metrics{
		RecordsProcessed: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_processed_total",
				Help:      "Total number of order records reconciled",
			},
		),
		RecordsDuplicate: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_duplicate_total",
				Help:      "Total number of records dropped by the dedup filter",
			},
		),
		RecordsMalformed: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_malformed_total",
				Help:      "Total number of malformed input rows skipped",
			},
		),
		RecordsRejected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_rejected_total",
				Help:      "Total number of records rejected by validation",
			},
			[]string{"reason"},
		),
		GroupsProcessed: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "groups_processed_total",
				Help:      "Total number of date/location groups reconciled",
			},
		),
		IDsReserved: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ids_reserved_total",
				Help:      "Total number of surrogate IDs reserved from the counter ledger",
			},
			[]string{"entity_type"},
		),
		EntitiesCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "entities_created_total",
				Help:      "Total number of new catalog entities created",
			},
			[]string{"entity_type"},
		),
		RegistryFlushes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "registry_flushes_total",
				Help:      "Total number of catalog flushes to the blob store",
			},
			[]string{"catalog"},
		),
		CatalogConflicts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "catalog_conflicts_total",
				Help:      "Total number of version conflicts detected on catalog flush",
			},
			[]string{"catalog"},
		),
		StorageErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "storage_errors_total",
				Help:      "Total number of blob store errors",
			},
			[]string{"operation"},
		),
		InvocationDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "invocation_duration_seconds",
				Help:      "End-to-end duration of one reconciliation invocation",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
			},
		),
	}

	defaultMetrics = m
	return m
}

// Get returns the global metrics instance.
// Returns nil if Init has not been called.
func Get() *Metrics {
	return defaultMetrics
}

// StartServer starts an HTTP server for Prometheus metrics scraping.
// Blocks until the server exits.
func StartServer(address string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return http.ListenAndServe(address, mux)
}

// IncRejected increments the rejected-records counter for a validation reason.
func (m *Metrics) IncRejected(reason string) {
	m.RecordsRejected.WithLabelValues(reason).Inc()
}

// AddIDsReserved adds to the reserved-IDs counter for an entity type.
func (m *Metrics) AddIDsReserved(entityType string, count float64) {
	m.IDsReserved.WithLabelValues(entityType).Add(count)
}

// IncEntitiesCreated increments the created-entities counter.
func (m *Metrics) IncEntitiesCreated(entityType string) {
	m.EntitiesCreated.WithLabelValues(entityType).Inc()
}

// IncRegistryFlush increments the catalog flush counter.
func (m *Metrics) IncRegistryFlush(catalog string) {
	m.RegistryFlushes.WithLabelValues(catalog).Inc()
}

// IncCatalogConflict increments the catalog conflict counter.
func (m *Metrics) IncCatalogConflict(catalog string) {
	m.CatalogConflicts.WithLabelValues(catalog).Inc()
}

// IncStorageError increments the storage error counter for an operation.
func (m *Metrics) IncStorageError(operation string) {
	m.StorageErrors.WithLabelValues(operation).Inc()
}
