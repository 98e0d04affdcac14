package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	eventTotal    *prometheus.CounterVec
	eventDuration *prometheus.HistogramVec
	eventInFlight prometheus.Gauge
	sweepTotal    *prometheus.CounterVec
	sweepFilled   *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	eventTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mediscan",
			Subsystem: "backfill",
			Name:      "events_total",
			Help:      "Total processed analysis events by status.",
		},
		[]string{"service", "status"},
	)
	eventDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mediscan",
			Subsystem: "backfill",
			Name:      "event_duration_seconds",
			Help:      "Event backfill duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	eventInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mediscan",
			Subsystem: "backfill",
			Name:      "events_in_flight",
			Help:      "Number of analysis events being backfilled.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	sweepTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mediscan",
			Subsystem: "backfill",
			Name:      "sweeps_total",
			Help:      "Total periodic backfill sweeps by status.",
		},
		[]string{"service", "status"},
	)
	sweepFilled := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mediscan",
			Subsystem: "backfill",
			Name:      "sweep_labels_filled_total",
			Help:      "Labels attached to existing records by sweeps.",
		},
		[]string{"service"},
	)

	registry.MustRegister(eventTotal, eventDuration, eventInFlight, sweepTotal, sweepFilled)

	return &WorkerMetrics{
		registry:      registry,
		eventTotal:    eventTotal,
		eventDuration: eventDuration,
		eventInFlight: eventInFlight,
		sweepTotal:    sweepTotal,
		sweepFilled:   sweepFilled,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartEvent() {
	m.eventInFlight.Inc()
}

func (m *WorkerMetrics) FinishEvent(service string, duration time.Duration, err error) {
	m.eventInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.eventTotal.WithLabelValues(service, status).Inc()
	m.eventDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) FinishSweep(service string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.sweepTotal.WithLabelValues(service, status).Inc()
}

func (m *WorkerMetrics) AddSweepFilled(service string, n int) {
	if n <= 0 {
		return
	}
	m.sweepFilled.WithLabelValues(service).Add(float64(n))
}
