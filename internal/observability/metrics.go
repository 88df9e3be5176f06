package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is a no-op.
type Metrics struct {
	registry           *prometheus.Registry
	requestCount       *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	errorCount         *prometheus.CounterVec
	sideEffectFailures *prometheus.CounterVec
	transitions        *prometheus.CounterVec
	technicianJobs     *prometheus.GaugeVec
	baysOccupied       prometheus.Gauge
}

// NewMetrics registers collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"path", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errorCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "HTTP errors by route, method and error code.",
		}, []string{"path", "method", "code"}),
		sideEffectFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "side_effect_failures_total",
			Help: "Best-effort downstream calls that failed and were swallowed.",
		}, []string{"effect"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "service_request_transitions_total",
			Help: "Service request state transitions by resulting status.",
		}, []string{"status"}),
		technicianJobs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "technician_active_jobs",
			Help: "Active jobs per technician recomputed from ticket state.",
		}, []string{"technician_id"}),
		baysOccupied: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bays_occupied",
			Help: "Bays held by active service requests at last reconciliation.",
		}),
	}
	m.registry.MustRegister(
		m.requestCount,
		m.requestDuration,
		m.errorCount,
		m.sideEffectFailures,
		m.transitions,
		m.technicianJobs,
		m.baysOccupied,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry exposes the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestCount.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errorCount.WithLabelValues(path, method, code).Inc()
}

// RecordSideEffectFailure counts a swallowed best-effort failure.
func (m *Metrics) RecordSideEffectFailure(effect string) {
	if m == nil {
		return
	}
	m.sideEffectFailures.WithLabelValues(effect).Inc()
}

// RecordTransition counts a committed state transition.
func (m *Metrics) RecordTransition(status string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(status).Inc()
}

// SetWorkload replaces the technician gauge with a fresh snapshot.
func (m *Metrics) SetWorkload(jobs map[string]int, occupiedBays int) {
	if m == nil {
		return
	}
	m.technicianJobs.Reset()
	for technicianID, count := range jobs {
		m.technicianJobs.WithLabelValues(technicianID).Set(float64(count))
	}
	m.baysOccupied.Set(float64(occupiedBays))
}
