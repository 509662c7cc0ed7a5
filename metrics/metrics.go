package metrics

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/relloyd/obspipe/constants"
)

// Label values used across packages.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusSkipped = "skipped"
)

var (
	// ApiCallsTotal counts upstream API calls by endpoint and outcome.
	ApiCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "obspipe_api_calls_total",
			Help: "Total JCR API calls by endpoint and status",
		},
		[]string{"endpoint", "status"}, // endpoint=authenticate/summary/details, status=success/failure
	)

	ApiCallDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "obspipe_api_call_duration_seconds",
			Help:    "Duration of JCR API calls",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
		},
		[]string{"endpoint"},
	)

	RowsWrittenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "obspipe_rows_written_total",
			Help: "Rows written to the warehouse by table",
		},
		[]string{"table"},
	)

	TableLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "obspipe_table_loads_total",
			Help: "Table load attempts by table and status",
		},
		[]string{"table", "status"},
	)

	CoercionFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "obspipe_coercion_failures_total",
			Help: "Field values that could not be converted to their column type",
		},
		[]string{"table", "column"},
	)

	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "obspipe_batches_total",
			Help: "Site batches processed by status",
		},
		[]string{"status"},
	)

	BatchSizeHistogram = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "obspipe_batch_sites",
			Help:    "Number of sites per batch",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "obspipe_runs_total",
			Help: "Pipeline runs by status",
		},
		[]string{"status"},
	)

	RunDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "obspipe_run_duration_seconds",
			Help:    "Duration of complete pipeline runs",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~68min
		},
	)

	RunsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "obspipe_runs_in_progress",
			Help: "Pipeline runs currently executing",
		},
	)

	LastSuccessTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "obspipe_last_success_timestamp_seconds",
			Help: "Unix time of the last successful pipeline run",
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "obspipe_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	ArchiveObjectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "obspipe_archive_objects_total",
			Help: "Raw payload archive writes by status",
		},
		[]string{"status"},
	)
)

// Push sends the default registry to the Prometheus pushgateway at url under the service job name.
// It is used by short-lived runs that are gone before a scrape could happen.
func Push(url string, runID string) error {
	err := push.New(url, constants.ServiceName).
		Gatherer(prometheus.DefaultGatherer).
		Grouping("run_id", runID).
		Push()
	return errors.Wrapf(err, "error pushing metrics to %v", url)
}
