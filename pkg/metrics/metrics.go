package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Query lifecycle metrics (spec.md §4.4, §9)
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_queries_total",
			Help: "Total number of scripts run, by outcome",
		},
		[]string{"outcome"}, // ok, error, killed
	)

	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "strata_query_duration_seconds",
			Help:    "Script run duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	QueriesRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "strata_queries_running",
			Help: "Number of queries currently registered as running",
		},
	)

	QueriesKilledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "strata_queries_killed_total",
			Help: "Total number of queries killed via the running-query registry",
		},
	)

	// Relation / catalog metrics
	RelationsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "strata_relations_total",
			Help: "Total number of stored relations in the catalog",
		},
	)

	RelationWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "strata_relation_write_duration_seconds",
			Help:    "Time taken to execute a store-relation directive, by op",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"}, // create, put, rm, replace, ensure, ensure_not
	)

	// Evaluator / stratification metrics
	StrataEvaluated = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "strata_strata_evaluated",
			Help:    "Number of strata evaluated per script run",
			Buckets: []float64{1, 2, 3, 4, 5, 8, 13, 21},
		},
	)

	FixpointIterations = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "strata_fixpoint_iterations",
			Help:    "Number of semi-naive fixpoint iterations per stratum",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34},
		},
	)

	// Transaction / KV metrics
	TxnCommitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "strata_txn_commit_duration_seconds",
			Help:    "Time taken to commit a script's transaction",
			Buckets: prometheus.DefBuckets,
		},
	)

	CleanupRangesApplied = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "strata_cleanup_ranges_applied_total",
			Help: "Total number of post-commit key-range cleanups applied",
		},
	)

	// Import/export metrics
	ImportRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_import_rows_total",
			Help: "Total number of rows imported, by relation",
		},
		[]string{"relation"},
	)

	ExportRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_export_rows_total",
			Help: "Total number of rows exported, by relation",
		},
		[]string{"relation"},
	)
)

func init() {
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(QueriesRunning)
	prometheus.MustRegister(QueriesKilledTotal)
	prometheus.MustRegister(RelationsTotal)
	prometheus.MustRegister(RelationWriteDuration)
	prometheus.MustRegister(StrataEvaluated)
	prometheus.MustRegister(FixpointIterations)
	prometheus.MustRegister(TxnCommitDuration)
	prometheus.MustRegister(CleanupRangesApplied)
	prometheus.MustRegister(ImportRowsTotal)
	prometheus.MustRegister(ExportRowsTotal)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
