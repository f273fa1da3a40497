// Package metrics exposes prometheus collectors for stage deliveries and
// reconciliation branches.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fastchannels/internal/reconcile"
)

const (
	namespace = "fastchannels"

	StageLabel    = "stage"
	StatusLabel   = "status"
	ClassLabel    = "class"
	KindLabel     = "kind"
	OutcomeLabel  = "outcome"
	ConflictLabel = "conflict"
)

// Metrics owns a private registry so tests and multiple daemons never
// collide on the global one.
type Metrics struct {
	registry   *prometheus.Registry
	deliveries *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	outcomes   *prometheus.CounterVec
	conflicts  *prometheus.CounterVec
	inflight   prometheus.Gauge
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Event deliveries handled, by stage, result status and failure class.",
		}, []string{StageLabel, StatusLabel, ClassLabel}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delivery_duration_seconds",
			Help:      "Wall time spent handling one delivery, jitter and propagation waits included.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}, []string{StageLabel}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_outcomes_total",
			Help:      "Successful resource reconciliations by resource kind and branch taken.",
		}, []string{KindLabel, OutcomeLabel}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_conflicts_total",
			Help:      "Conflicts reported by remote stores, by resource kind and conflict kind.",
		}, []string{KindLabel, ConflictLabel}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "deliveries_in_flight",
			Help:      "Deliveries currently being handled.",
		}),
	}
	m.registry.MustRegister(
		m.deliveries,
		m.duration,
		m.outcomes,
		m.conflicts,
		m.inflight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		MaxRequestsInFlight: 5,
		Timeout:             10 * time.Second,
	})
}

// Begin marks a delivery in flight and returns the function that records
// its result.
func (m *Metrics) Begin(stage string) func(status, class string) {
	m.inflight.Inc()
	start := time.Now()
	return func(status, class string) {
		m.inflight.Dec()
		m.duration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
		m.deliveries.WithLabelValues(stage, status, class).Inc()
	}
}

// Outcome implements reconcile.Observer.
func (m *Metrics) Outcome(kind string, outcome reconcile.Outcome) {
	m.outcomes.WithLabelValues(kind, string(outcome)).Inc()
}

// Conflict implements reconcile.Observer.
func (m *Metrics) Conflict(kind string, conflict reconcile.ConflictKind) {
	m.conflicts.WithLabelValues(kind, conflict.String()).Inc()
}

var _ reconcile.Observer = (*Metrics)(nil)
