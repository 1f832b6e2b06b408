// Package metrics exposes Prometheus instrumentation for analytics runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run outcomes
const (
	OutcomeSuccess = "success"
	OutcomeSkipped = "skipped"
	OutcomeFailure = "failure"
)

// Metrics holds the collectors of the service
type Metrics struct {
	registry *prometheus.Registry

	runsTotal        *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	nudgesTotal      *prometheus.CounterVec
	personasTotal    *prometheus.CounterVec
	deliveryFailures *prometheus.CounterVec
}

// New registers every collector on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "insights_runs_total",
			Help: "Analytics runs by operation and outcome.",
		}, []string{"operation", "outcome"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "insights_run_duration_seconds",
			Help:    "Duration of analytics runs by operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		nudgesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "insights_nudges_total",
			Help: "Nudges created by kind.",
		}, []string{"kind"}),
		personasTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "insights_persona_assignments_total",
			Help: "Persona assignments written by persona.",
		}, []string{"persona"}),
		deliveryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "insights_nudge_delivery_failures_total",
			Help: "Failed nudge deliveries by notifier.",
		}, []string{"notifier"}),
	}

	m.registry.MustRegister(
		m.runsTotal,
		m.runDuration,
		m.nudgesTotal,
		m.personasTotal,
		m.deliveryFailures,
		collectors.NewGoCollector(),
	)
	return m
}

// ObserveRun records one run of operation that started at start
func (m *Metrics) ObserveRun(operation, outcome string, start time.Time) {
	m.runsTotal.WithLabelValues(operation, outcome).Inc()
	m.runDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// NudgeCreated counts a stored nudge
func (m *Metrics) NudgeCreated(kind string) {
	m.nudgesTotal.WithLabelValues(kind).Inc()
}

// PersonaAssigned counts a written persona assignment
func (m *Metrics) PersonaAssigned(persona string) {
	m.personasTotal.WithLabelValues(persona).Inc()
}

// DeliveryFailed counts a notifier error
func (m *Metrics) DeliveryFailed(notifier string) {
	m.deliveryFailures.WithLabelValues(notifier).Inc()
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
