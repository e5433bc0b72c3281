package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "inos"

// Metrics groups the counters shared by the store, the sync coordinator and the analyzer.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	syncAttempts    *prometheus.CounterVec
	analyzerResults *prometheus.CounterVec
	persistFailures prometheus.Counter
	storeResets     *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		syncAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "attempts_total",
			Help:      "Background remote sync attempts by entity and outcome.",
		}, []string{"entity", "outcome"}),
		analyzerResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analyzer",
			Name:      "results_total",
			Help:      "Analyzer results by analysis kind and source (model or fallback).",
		}, []string{"kind", "source"}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "persist_failures_total",
			Help:      "Local state writes that could not reach the storage backend.",
		}),
		storeResets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "boot_discards_total",
			Help:      "Persisted blobs discarded at boot, by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(m.syncAttempts, m.analyzerResults, m.persistFailures, m.storeResets)
	return m
}

func (m *Metrics) SyncAttempt(entity, outcome string) {
	if m == nil {
		return
	}
	m.syncAttempts.WithLabelValues(entity, outcome).Inc()
}

func (m *Metrics) AnalyzerResult(kind, source string) {
	if m == nil {
		return
	}
	m.analyzerResults.WithLabelValues(kind, source).Inc()
}

func (m *Metrics) PersistFailure() {
	if m == nil {
		return
	}
	m.persistFailures.Inc()
}

func (m *Metrics) BootDiscard(reason string) {
	if m == nil {
		return
	}
	m.storeResets.WithLabelValues(reason).Inc()
}
