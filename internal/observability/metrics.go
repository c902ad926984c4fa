package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ImporterMetrics exposes prometheus collectors for the import pipeline.
type ImporterMetrics struct {
	Registry *prometheus.Registry

	importsStarted   *prometheus.CounterVec
	importsCompleted *prometheus.CounterVec
	importsReverted  prometheus.Counter
	parseFailures    *prometheus.CounterVec
	rowsWritten      *prometheus.CounterVec
	rowsSkipped      prometheus.Counter
	operationSeconds *prometheus.HistogramVec
}

// NewImporterMetrics builds and registers all importer collectors on a fresh
// registry.
func NewImporterMetrics() *ImporterMetrics {
	registry := prometheus.NewRegistry()

	m := &ImporterMetrics{
		Registry: registry,
		importsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "importer_imports_started_total",
			Help: "Import sessions that reached the parsing step, by method.",
		}, []string{"method"}),
		importsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "importer_imports_completed_total",
			Help: "Successful submissions, by import mode.",
		}, []string{"mode"}),
		importsReverted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "importer_imports_reverted_total",
			Help: "Submissions undone within the revert window.",
		}),
		parseFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "importer_parse_failures_total",
			Help: "Source parse failures, by method.",
		}, []string{"method"}),
		rowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "importer_rows_written_total",
			Help: "Rows persisted by the submit endpoint, by outcome.",
		}, []string{"outcome"}),
		rowsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "importer_rows_skipped_total",
			Help: "Rows excluded from submission by the skip strategy.",
		}),
		operationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "importer_operation_duration_seconds",
			Help:    "Duration of importer service operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	registry.MustRegister(
		m.importsStarted,
		m.importsCompleted,
		m.importsReverted,
		m.parseFailures,
		m.rowsWritten,
		m.rowsSkipped,
		m.operationSeconds,
	)

	return m
}

func (m *ImporterMetrics) RecordImportStarted(method string) {
	m.importsStarted.WithLabelValues(method).Inc()
}

func (m *ImporterMetrics) RecordImportCompleted(mode string) {
	m.importsCompleted.WithLabelValues(mode).Inc()
}

func (m *ImporterMetrics) RecordImportReverted() {
	m.importsReverted.Inc()
}

func (m *ImporterMetrics) RecordParseFailure(method string) {
	m.parseFailures.WithLabelValues(method).Inc()
}

func (m *ImporterMetrics) RecordRowsWritten(outcome string, n int) {
	m.rowsWritten.WithLabelValues(outcome).Add(float64(n))
}

func (m *ImporterMetrics) RecordRowsSkipped(n int) {
	m.rowsSkipped.Add(float64(n))
}

func (m *ImporterMetrics) RecordOperationDuration(operation string, d time.Duration) {
	m.operationSeconds.WithLabelValues(operation).Observe(d.Seconds())
}
