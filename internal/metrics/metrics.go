package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cms_replace"

// Operation labels.
const (
	OperationSearch  = "search"
	OperationReplace = "replace"
	OperationUndo    = "undo"
)

// Mode labels for replacement counters.
const (
	ModeCommit = "commit"
	ModeDryRun = "dry_run"
	ModeUndo   = "undo"
)

// Metrics groups the collectors exported by the engine. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	searches      *prometheus.CounterVec
	replacements  *prometheus.CounterVec
	affected      *prometheus.CounterVec
	recordErrors  *prometheus.CounterVec
	chunkDuration prometheus.Histogram
}

// New registers the collectors with reg. A nil registerer uses a private
// registry so repeated construction in tests never collides.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Metrics{
		searches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Searches executed, by result (hit, miss, error).",
		}, []string{"result"}),
		replacements: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replacements_total",
			Help:      "Occurrences replaced, by mode.",
		}, []string{"mode"}),
		affected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_affected_total",
			Help:      "Records changed by a replacement, by mode.",
		}, []string{"mode"}),
		recordErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "record_errors_total",
			Help:      "Per-record failures that were skipped, by operation.",
		}, []string{"operation"}),
		chunkDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_duration_seconds",
			Help:      "Time spent processing one batch chunk.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

// ObserveSearch counts a finished search.
func (m *Metrics) ObserveSearch(matches int, err error) {
	if m == nil {
		return
	}
	result := "miss"
	switch {
	case err != nil:
		result = "error"
	case matches > 0:
		result = "hit"
	}
	m.searches.WithLabelValues(result).Inc()
}

// ObserveReplace adds replacement totals for a finished run.
func (m *Metrics) ObserveReplace(mode string, replaced, affected int) {
	if m == nil {
		return
	}
	m.replacements.WithLabelValues(mode).Add(float64(replaced))
	m.affected.WithLabelValues(mode).Add(float64(affected))
}

// ObserveRecordErrors counts skipped records.
func (m *Metrics) ObserveRecordErrors(operation string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.recordErrors.WithLabelValues(operation).Add(float64(n))
}

// ObserveChunk records the wall time of one chunk.
func (m *Metrics) ObserveChunk(d time.Duration) {
	if m == nil {
		return
	}
	m.chunkDuration.Observe(d.Seconds())
}
