package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for preference operations.
type Metrics struct {
	PreferenceChanges *prometheus.CounterVec
	PreferenceNoops   *prometheus.CounterVec
	ViewsServed       prometheus.Counter
	UpdateLatency     prometheus.Histogram
}

// New registers and returns preference metrics collectors.
func New() *Metrics {
	return &Metrics{
		PreferenceChanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "payprefs_preference_changes_total",
			Help: "Total number of effective preference changes, labeled by category and action",
		}, []string{"category", "action"}),
		PreferenceNoops: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "payprefs_preference_noops_total",
			Help: "Total number of preference writes skipped because the value was unchanged, labeled by category",
		}, []string{"category"}),
		ViewsServed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "payprefs_preference_views_total",
			Help: "Total number of full preference views served",
		}),
		UpdateLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "payprefs_preference_update_latency_seconds",
			Help:    "Latency of preference update operations in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncrementChanged(category string, optedOut bool) {
	action := "opt_in"
	if optedOut {
		action = "opt_out"
	}
	m.PreferenceChanges.WithLabelValues(category, action).Inc()
}

func (m *Metrics) IncrementNoop(category string) {
	m.PreferenceNoops.WithLabelValues(category).Inc()
}

func (m *Metrics) IncrementViews() {
	m.ViewsServed.Inc()
}

func (m *Metrics) ObserveUpdateLatency(seconds float64) {
	m.UpdateLatency.Observe(seconds)
}
