package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics are the Prometheus collectors describing reconciliation runs
// and the size of the quote collection. They are served by /-/metrics.
type SyncMetrics struct {
	runs     *prometheus.CounterVec
	added    prometheus.Counter
	duration prometheus.Histogram
	quotes   prometheus.Gauge
}

// NewSyncMetrics creates the collectors and registers them on reg.
// A nil reg leaves them unregistered, which is what tests usually want.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	m := &SyncMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quotebook",
			Name:      "sync_runs_total",
			Help:      "Reconciliation runs by outcome.",
		}, []string{"outcome"}),
		added: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quotebook",
			Name:      "sync_quotes_added_total",
			Help:      "Quotes appended by reconciliation.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quotebook",
			Name:      "sync_duration_seconds",
			Help:      "Wall-clock duration of reconciliation runs.",
			Buckets:   prometheus.DefBuckets,
		}),
		quotes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quotebook",
			Name:      "quotes",
			Help:      "Quotes currently in the collection.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.runs, m.added, m.duration, m.quotes)
	}

	return m
}

// ObserveRun records one finished reconciliation run.
func (m *SyncMetrics) ObserveRun(outcome string, added int, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.runs.WithLabelValues(outcome).Inc()
	m.added.Add(float64(added))
	m.duration.Observe(elapsed.Seconds())
}

// SetCollectionSize reports the current number of quotes.
func (m *SyncMetrics) SetCollectionSize(n int) {
	if m == nil {
		return
	}

	m.quotes.Set(float64(n))
}
