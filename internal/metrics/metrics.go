// Package metrics provides Prometheus metrics for the emotion chat backend
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service
type Metrics struct {
	registry *prometheus.Registry

	// HTTP request metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Capability metrics
	ClassificationsTotal *prometheus.CounterVec
	GenerationsTotal     *prometheus.CounterVec
	GenerationDuration   *prometheus.HistogramVec

	// Store metrics
	StoreOperationsTotal *prometheus.CounterVec
	EmotionWindowTotal   *prometheus.GaugeVec
}

// New creates all metrics on a private registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	m := &Metrics{registry: reg}

	m.HTTPRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emochat_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	m.HTTPRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "emochat_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	m.HTTPRequestsInFlight = f.NewGauge(
		prometheus.GaugeOpts{
			Name: "emochat_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	m.ClassificationsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emochat_classifications_total",
			Help: "Emotion classifications by resulting label and whether the neutral fallback was used",
		},
		[]string{"backend", "emotion", "fallback"},
	)

	m.GenerationsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emochat_generations_total",
			Help: "Chat reply generations by backend and outcome",
		},
		[]string{"backend", "outcome"},
	)

	m.GenerationDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "emochat_generation_duration_seconds",
			Help:    "Duration of language model calls in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"backend"},
	)

	m.StoreOperationsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emochat_store_operations_total",
			Help: "Persistence operations by name and status",
		},
		[]string{"operation", "status"},
	)

	m.EmotionWindowTotal = f.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "emochat_emotion_observations_window",
			Help: "Emotion observations across all users within the trailing stats window",
		},
		[]string{"emotion"},
	)

	return m
}

// Handler exposes the registry for scraping
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Recorders below are no-ops on a nil *Metrics.

// RecordHTTPRequest records an HTTP request with its status
func (m *Metrics) RecordHTTPRequest(route, method, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, method, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordClassification records a classifier outcome
func (m *Metrics) RecordClassification(backend, emotion string, fallback bool) {
	if m == nil {
		return
	}
	m.ClassificationsTotal.WithLabelValues(backend, emotion, boolLabel(fallback)).Inc()
}

// RecordGeneration records a language model call
func (m *Metrics) RecordGeneration(backend string, fallback bool, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if fallback {
		outcome = "fallback"
	}
	m.GenerationsTotal.WithLabelValues(backend, outcome).Inc()
	m.GenerationDuration.WithLabelValues(backend).Observe(duration.Seconds())
}

// RecordStoreOperation records a persistence operation
func (m *Metrics) RecordStoreOperation(operation string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.StoreOperationsTotal.WithLabelValues(operation, status).Inc()
}

// SetEmotionWindow replaces the per-label window gauge
func (m *Metrics) SetEmotionWindow(counts map[string]int64) {
	if m == nil {
		return
	}
	m.EmotionWindowTotal.Reset()
	for label, n := range counts {
		m.EmotionWindowTotal.WithLabelValues(label).Set(float64(n))
	}
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
