package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	matchRequestsTotal *prometheus.CounterVec
	batchRunsTotal     *prometheus.CounterVec
	batchRejections    *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hp",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hp",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hp",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	matchRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hp",
			Subsystem: "matching",
			Name:      "requests_total",
			Help:      "Total candidate match requests by outcome.",
		},
		[]string{"service", "outcome"},
	)
	batchRunsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hp",
			Subsystem: "pipeline",
			Name:      "batch_runs_total",
			Help:      "Total manual auto-reject batch runs by status.",
		},
		[]string{"service", "status"},
	)
	batchRejections := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hp",
			Subsystem: "pipeline",
			Name:      "batch_rejections",
			Help:      "Distribution of rejections per batch run.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		matchRequestsTotal,
		batchRunsTotal,
		batchRejections,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		matchRequestsTotal: matchRequestsTotal,
		batchRunsTotal:     batchRunsTotal,
		batchRejections:    batchRejections,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath collapses resource ids so the path label stays low-cardinality.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/applications/"):
		return "/v1/applications/{application_id}"
	case strings.HasPrefix(path, "/v1/jobs/"):
		if strings.HasSuffix(path, "/matches") {
			return "/v1/jobs/{job_id}/matches"
		}
		return "/v1/jobs/{job_id}"
	case strings.HasPrefix(path, "/v1/admin/companies/"):
		if strings.HasSuffix(path, "/auto-reject-run") {
			return "/v1/admin/companies/{company_id}/auto-reject-run"
		}
		if strings.HasSuffix(path, "/vectorize") {
			return "/v1/admin/companies/{company_id}/vectorize"
		}
		return "/v1/admin/companies/{company_id}"
	case strings.HasPrefix(path, "/v1/admin/jobs/"):
		return "/v1/admin/jobs/{job_id}/vectorize"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordMatchRequest(service string, matchCount int, err error) {
	outcome := "hit"
	switch {
	case err != nil:
		outcome = "error"
	case matchCount == 0:
		outcome = "empty"
	}
	m.matchRequestsTotal.WithLabelValues(service, outcome).Inc()
}

func (m *HTTPServerMetrics) RecordBatchRun(service string, rejections int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.batchRunsTotal.WithLabelValues(service, status).Inc()
	if err == nil {
		m.batchRejections.WithLabelValues(service).Observe(float64(rejections))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
