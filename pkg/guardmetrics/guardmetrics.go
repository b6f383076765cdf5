// Package guardmetrics exposes guard decision metrics for Prometheus
// scraping. Collectors live in an owned registry so embedding hosts do
// not get their default registry polluted; Handler() serves the
// standard /metrics endpoint for that registry.
package guardmetrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the guard's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	decisionsTotal    *prometheus.CounterVec
	evaluationSeconds *prometheus.HistogramVec
}

// New creates the collectors in a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		decisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mcpguard",
			Name:      "decisions_total",
			Help:      "Guard decisions by evaluation phase, verdict, and deny reason.",
		}, []string{"phase", "decision", "reason"}),
		evaluationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mcpguard",
			Name:      "evaluation_duration_seconds",
			Help:      "Wall-clock duration of guard evaluations.",
			// Evaluations are in-memory and expected well under the
			// host's ~100ms budget; buckets resolve the fast range.
			Buckets: []float64{.00001, .0001, .0005, .001, .005, .01, .05, .1, .5},
		}, []string{"phase"}),
	}

	registry.MustRegister(m.decisionsTotal, m.evaluationSeconds)
	return m
}

// ObserveDecision records one completed evaluation. reason is empty for
// allow and warn verdicts.
func (m *Metrics) ObserveDecision(phase, decision, reason string, elapsed time.Duration) {
	m.decisionsTotal.WithLabelValues(phase, decision, reason).Inc()
	m.evaluationSeconds.WithLabelValues(phase).Observe(elapsed.Seconds())
}

// Handler returns an HTTP handler serving the owned registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the owned registry for callers that want to add
// their own collectors alongside the guard's.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
