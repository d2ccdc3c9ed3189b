// =============================================================================
// CSV Document Loader - Run Metrics
// =============================================================================
//
// Each run collects its counters in its own registry. When metrics_file is
// configured the registry is written in the Prometheus text format at the
// end of the run, for pickup by the node exporter's textfile collector.
//
// =============================================================================

package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ginjaninja78/csvload/internal/types"
)

const namespace = "csvload"

// File results.
const (
	FileLoaded  = "loaded"
	FileSkipped = "skipped"
	FileFailed  = "failed"
)

// Metrics is the metric bundle of one run.
type Metrics struct {
	registry *prometheus.Registry

	rowsTotal      *prometheus.CounterVec
	documentsTotal *prometheus.CounterVec
	filesTotal     *prometheus.CounterVec
	fileDuration   *prometheus.HistogramVec

	lastRunSuccess   prometheus.Gauge
	lastRunTimestamp prometheus.Gauge
}

// New registers the run metrics in a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		rowsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Data rows read, by result.",
		}, []string{"collection", "result"}),
		documentsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Documents sent to the store, by outcome.",
		}, []string{"collection", "outcome"}),
		filesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_total",
			Help:      "CSV files processed, by result.",
		}, []string{"collection", "result"}),
		fileDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "file_duration_seconds",
			Help:      "Time to process one file.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"collection"}),
		lastRunSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "Whether the last run loaded every file (1/0).",
		}),
		lastRunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}
}

// Registry returns the registry holding the run metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveFile records the processing of one file.
//
// PARAMETERS:
//   - collection: The target collection.
//   - result: FileLoaded, FileSkipped or FileFailed.
//   - rows: Data rows read.
//   - rowErrors: Rows that failed to build.
//   - outcome: The load outcome (nil when nothing was written).
//   - elapsed: Processing time.
func (m *Metrics) ObserveFile(collection, result string, rows, rowErrors int, outcome *types.LoadOutcome, elapsed time.Duration) {
	m.filesTotal.WithLabelValues(collection, result).Inc()
	m.fileDuration.WithLabelValues(collection).Observe(elapsed.Seconds())

	m.rowsTotal.WithLabelValues(collection, "ok").Add(float64(rows - rowErrors))
	m.rowsTotal.WithLabelValues(collection, "error").Add(float64(rowErrors))

	if outcome == nil {
		return
	}
	m.documentsTotal.WithLabelValues(collection, "inserted").Add(float64(outcome.Inserted))
	m.documentsTotal.WithLabelValues(collection, "modified").Add(float64(outcome.Modified))
	m.documentsTotal.WithLabelValues(collection, "duplicate").Add(float64(outcome.Duplicates))
}

// ObserveWriteErrors counts records the store rejected.
func (m *Metrics) ObserveWriteErrors(collection string, n int) {
	m.documentsTotal.WithLabelValues(collection, "error").Add(float64(n))
}

// SetRunResult records the end of a run.
func (m *Metrics) SetRunResult(success bool, finished time.Time) {
	if success {
		m.lastRunSuccess.Set(1)
	} else {
		m.lastRunSuccess.Set(0)
	}
	m.lastRunTimestamp.Set(float64(finished.Unix()))
}

// WriteTextfile writes every metric of the run to path.
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
