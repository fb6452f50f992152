// Package metrics exposes estimation counters for the serve command.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors on a private registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry    *prometheus.Registry
	estimations *prometheus.CounterVec
	duration    prometheus.Histogram
	lastFval    prometheus.Gauge
	agents      prometheus.Counter
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		estimations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grmpy_estimations_total",
			Help: "Estimation runs by optimizer status.",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "grmpy_estimation_duration_seconds",
			Help:    "Wall time of estimation runs.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		lastFval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "grmpy_last_fval",
			Help: "Criterion value of the most recent estimation.",
		}),
		agents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grmpy_simulated_agents_total",
			Help: "Agents drawn by the simulator.",
		}),
	}
	m.registry.MustRegister(m.estimations, m.duration, m.lastFval, m.agents)
	return m
}

// ObserveEstimation records one finished estimation run.
func (m *Metrics) ObserveEstimation(status string, fval float64, runtime time.Duration) {
	if m == nil {
		return
	}
	m.estimations.WithLabelValues(status).Inc()
	m.duration.Observe(runtime.Seconds())
	m.lastFval.Set(fval)
}

// ObserveSimulation records a simulated sample of n agents.
func (m *Metrics) ObserveSimulation(n int) {
	if m == nil {
		return
	}
	m.agents.Add(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the private registry, or nil for a nil receiver.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
