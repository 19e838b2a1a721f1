package transfer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/David-Botos/enrollment-ingress/pkg/model"
	"github.com/David-Botos/enrollment-ingress/pkg/scan"
)

const metricsNamespace = "enrollment_ingress"

// Batch outcomes
const (
	OutcomeCommitted  = "committed"
	OutcomeRolledBack = "rolled_back"
	OutcomeRejected   = "rejected"
)

// Reconcile operations
const (
	OpInsert = "insert"
	OpUpdate = "update"
)

// Metrics tracks ingestion and scan activity
type Metrics struct {
	rowsReconciled *prometheus.CounterVec
	rowsSkipped    *prometheus.CounterVec
	batches        *prometheus.CounterVec
	batchDuration  *prometheus.HistogramVec
	scanPages      *prometheus.CounterVec
	scanRows       *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg. A nil
// registerer leaves them unregistered, which tests use.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		rowsReconciled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rows_reconciled_total",
			Help:      "Rows written to the canonical store, by dataset and operation.",
		}, []string{"dataset", "op"}),
		rowsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rows_skipped_total",
			Help:      "Uploaded rows dropped by the decoder or normalizer.",
		}, []string{"dataset"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "batches_total",
			Help:      "Ingestion batches by outcome.",
		}, []string{"dataset", "outcome"}),
		batchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "batch_duration_seconds",
			Help:      "Wall time of an ingestion batch from first row to commit or rollback.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"dataset"}),
		scanPages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "scan_pages_total",
			Help:      "Page requests issued by table scans.",
		}, []string{"table"}),
		scanRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "scan_rows_total",
			Help:      "Rows read by table scans.",
		}, []string{"table"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.rowsReconciled,
			m.rowsSkipped,
			m.batches,
			m.batchDuration,
			m.scanPages,
			m.scanRows,
		)
	}
	return m
}

// RecordBatch records a finished batch
func (m *Metrics) RecordBatch(ds model.Dataset, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(string(ds), outcome).Inc()
	m.batchDuration.WithLabelValues(string(ds)).Observe(duration.Seconds())
}

// RecordReconciled counts rows inserted and updated by a committed batch
func (m *Metrics) RecordReconciled(ds model.Dataset, inserted, updated int) {
	if m == nil {
		return
	}
	m.rowsReconciled.WithLabelValues(string(ds), OpInsert).Add(float64(inserted))
	m.rowsReconciled.WithLabelValues(string(ds), OpUpdate).Add(float64(updated))
}

// RecordSkipped counts dropped rows
func (m *Metrics) RecordSkipped(ds model.Dataset, n int) {
	if m == nil || n == 0 {
		return
	}
	m.rowsSkipped.WithLabelValues(string(ds)).Add(float64(n))
}

// ObserveScan records a completed table scan
func (m *Metrics) ObserveScan(table string, stats scan.Stats) {
	if m == nil {
		return
	}
	m.scanPages.WithLabelValues(table).Add(float64(stats.Requests))
	m.scanRows.WithLabelValues(table).Add(float64(stats.Rows))
}
