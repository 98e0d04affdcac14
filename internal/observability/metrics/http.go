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

	analysesTotal     *prometheus.CounterVec
	analysisDuration  *prometheus.HistogramVec
	analysisImageSize *prometheus.HistogramVec
	labelLookupTotal  *prometheus.CounterVec
	summaryFallbacks  *prometheus.CounterVec
	historyExports    *prometheus.CounterVec
	rateLimitedTotal  *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mediscan",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mediscan",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mediscan",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	analysesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mediscan",
			Subsystem: "analysis",
			Name:      "runs_total",
			Help:      "Total identification runs by outcome.",
		},
		[]string{"service", "status"},
	)
	analysisDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mediscan",
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "End-to-end identification pipeline duration in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"service"},
	)
	analysisImageSize := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mediscan",
			Subsystem: "analysis",
			Name:      "image_bytes",
			Help:      "Distribution of uploaded image sizes in bytes.",
			Buckets:   prometheus.ExponentialBuckets(16*1024, 2, 10),
		},
		[]string{"service"},
	)
	labelLookupTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mediscan",
			Subsystem: "analysis",
			Name:      "label_lookups_total",
			Help:      "Label database resolutions by result.",
		},
		[]string{"service", "result"},
	)
	summaryFallbacks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mediscan",
			Subsystem: "analysis",
			Name:      "summary_fallbacks_total",
			Help:      "Runs that returned the deterministic fallback summary.",
		},
		[]string{"service"},
	)
	historyExports := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mediscan",
			Subsystem: "history",
			Name:      "exports_total",
			Help:      "Total history workbook exports by status.",
		},
		[]string{"service", "status"},
	)
	rateLimitedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mediscan",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the analyze rate limiter.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		analysesTotal,
		analysisDuration,
		analysisImageSize,
		labelLookupTotal,
		summaryFallbacks,
		historyExports,
		rateLimitedTotal,
	)

	return &HTTPServerMetrics{
		registry:          registry,
		requestTotal:      requestTotal,
		requestDuration:   requestDuration,
		requestInFlight:   requestInFlight,
		analysesTotal:     analysesTotal,
		analysisDuration:  analysisDuration,
		analysisImageSize: analysisImageSize,
		labelLookupTotal:  labelLookupTotal,
		summaryFallbacks:  summaryFallbacks,
		historyExports:    historyExports,
		rateLimitedTotal:  rateLimitedTotal,
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

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/searches/"):
		return "/v1/searches/{search_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordAnalysis(service, status string, imageBytes int, labelFound, fallbackSummary bool, duration time.Duration) {
	if status == "" {
		status = "unknown"
	}
	m.analysesTotal.WithLabelValues(service, status).Inc()
	if status != "success" {
		return
	}

	m.analysisDuration.WithLabelValues(service).Observe(duration.Seconds())
	if imageBytes > 0 {
		m.analysisImageSize.WithLabelValues(service).Observe(float64(imageBytes))
	}

	result := "miss"
	if labelFound {
		result = "hit"
	}
	m.labelLookupTotal.WithLabelValues(service, result).Inc()

	if fallbackSummary {
		m.summaryFallbacks.WithLabelValues(service).Inc()
	}
}

func (m *HTTPServerMetrics) RecordHistoryExport(service string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.historyExports.WithLabelValues(service, status).Inc()
}

func (m *HTTPServerMetrics) RecordRateLimited(service string) {
	m.rateLimitedTotal.WithLabelValues(service).Inc()
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
