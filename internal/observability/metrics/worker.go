package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkerMetrics covers the event-driven side of the pipeline: lifecycle event
// handling and scoring runs.
type WorkerMetrics struct {
	registry *prometheus.Registry

	eventTotal       *prometheus.CounterVec
	eventDuration    *prometheus.HistogramVec
	eventInFlight    prometheus.Gauge
	staleEventTotal  *prometheus.CounterVec
	sideEffectErrors *prometheus.CounterVec

	autoRejectTotal       *prometheus.CounterVec
	providerFallbackTotal *prometheus.CounterVec
	cacheLookupTotal      *prometheus.CounterVec
	scoreDuration         *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	eventTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hp",
			Subsystem: "worker",
			Name:      "event_process_total",
			Help:      "Total processed change events by variant and status.",
		},
		[]string{"service", "variant", "status"},
	)
	eventDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hp",
			Subsystem: "worker",
			Name:      "event_process_duration_seconds",
			Help:      "Change event processing duration in seconds by variant.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "variant"},
	)
	eventInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hp",
			Subsystem: "worker",
			Name:      "event_process_in_flight",
			Help:      "Number of in-flight change events.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	staleEventTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hp",
			Subsystem: "worker",
			Name:      "stale_event_total",
			Help:      "Total change events discarded by the version guard.",
		},
		[]string{"service"},
	)
	sideEffectErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hp",
			Subsystem: "worker",
			Name:      "side_effect_errors_total",
			Help:      "Total best-effort side effect failures by step.",
		},
		[]string{"service", "step"},
	)
	autoRejectTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hp",
			Subsystem: "pipeline",
			Name:      "auto_reject_total",
			Help:      "Total applications auto-rejected by trigger.",
		},
		[]string{"service", "trigger"},
	)
	providerFallbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hp",
			Subsystem: "scoring",
			Name:      "provider_fallback_total",
			Help:      "Total match computations served by the deterministic fallback.",
		},
		[]string{"service"},
	)
	cacheLookupTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hp",
			Subsystem: "scoring",
			Name:      "cache_total",
			Help:      "Match cache lookups by result.",
		},
		[]string{"service", "result"},
	)
	scoreDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hp",
			Subsystem: "scoring",
			Name:      "duration_seconds",
			Help:      "Match scoring duration in seconds by status.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"service", "status"},
	)

	registry.MustRegister(
		eventTotal, eventDuration, eventInFlight, staleEventTotal,
		sideEffectErrors, autoRejectTotal, providerFallbackTotal,
		cacheLookupTotal, scoreDuration,
	)

	return &WorkerMetrics{
		registry:              registry,
		eventTotal:            eventTotal,
		eventDuration:         eventDuration,
		eventInFlight:         eventInFlight,
		staleEventTotal:       staleEventTotal,
		sideEffectErrors:      sideEffectErrors,
		autoRejectTotal:       autoRejectTotal,
		providerFallbackTotal: providerFallbackTotal,
		cacheLookupTotal:      cacheLookupTotal,
		scoreDuration:         scoreDuration,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartEvent() {
	m.eventInFlight.Inc()
}

func (m *WorkerMetrics) FinishEvent(service, variant string, duration time.Duration, err error) {
	m.eventInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	if variant == "" {
		variant = "unknown"
	}

	m.eventTotal.WithLabelValues(service, variant, status).Inc()
	m.eventDuration.WithLabelValues(service, variant).Observe(duration.Seconds())
}

func (m *WorkerMetrics) RecordStaleEvent(service string) {
	m.staleEventTotal.WithLabelValues(service).Inc()
}

func (m *WorkerMetrics) RecordSideEffectFailure(service, step string) {
	if step == "" {
		step = "unknown"
	}
	m.sideEffectErrors.WithLabelValues(service, step).Inc()
}

func (m *WorkerMetrics) RecordAutoReject(service, trigger string) {
	if trigger == "" {
		trigger = "unknown"
	}
	m.autoRejectTotal.WithLabelValues(service, trigger).Inc()
}

func (m *WorkerMetrics) RecordProviderFallback(service string) {
	m.providerFallbackTotal.WithLabelValues(service).Inc()
}

func (m *WorkerMetrics) RecordCacheLookup(service string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookupTotal.WithLabelValues(service, result).Inc()
}

func (m *WorkerMetrics) ObserveScoreDuration(service string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.scoreDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}
