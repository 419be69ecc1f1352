package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingestion outcomes used as the "outcome" label.
const (
	outcomeSuccess   = "success"
	outcomeSelection = "selection"
	outcomeNoEntries = "no_entries"
	outcomeRejected  = "rejected"
)

// Metrics holds the Prometheus collectors of the ingestion service. A nil
// *Metrics records nothing.
type Metrics struct {
	ingestions *prometheus.CounterVec
	entries    *prometheus.CounterVec
	committed  prometheus.Counter
	duration   *prometheus.HistogramVec
	fileBytes  prometheus.Histogram
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ingestions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger_ingest",
			Name:      "ingestions_total",
			Help:      "Ingestion requests by detected layout and outcome.",
		}, []string{"layout", "outcome"}),
		entries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger_ingest",
			Name:      "entries_extracted_total",
			Help:      "Admitted ledger drafts by entry type.",
		}, []string{"type"}),
		committed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ledger_ingest",
			Name:      "entries_committed_total",
			Help:      "Ledger entries persisted through commit.",
		}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ledger_ingest",
			Name:      "ingestion_duration_seconds",
			Help:      "Wall time of one ingestion by layout.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"layout"}),
		fileBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ledger_ingest",
			Name:      "upload_bytes",
			Help:      "Size of uploaded spreadsheets.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		}),
	}
}

func (m *Metrics) observeIngestion(layoutKind, outcome string, started time.Time) {
	if m == nil {
		return
	}
	if layoutKind == "" {
		layoutKind = "unknown"
	}
	m.ingestions.WithLabelValues(layoutKind, outcome).Inc()
	m.duration.WithLabelValues(layoutKind).Observe(time.Since(started).Seconds())
}

func (m *Metrics) observeEntries(typ string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.entries.WithLabelValues(typ).Add(float64(n))
}

func (m *Metrics) observeUpload(size int) {
	if m == nil {
		return
	}
	m.fileBytes.Observe(float64(size))
}

func (m *Metrics) observeCommit(n int) {
	if m == nil {
		return
	}
	m.committed.Add(float64(n))
}
