package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Ingestion metrics
	VisitsTrackedTotal  *prometheus.CounterVec
	VisitUpdatesTotal   *prometheus.CounterVec
	SessionUpdatedTotal prometheus.Counter

	// Retention metrics
	CleanupRunsTotal    *prometheus.CounterVec
	CleanupDeletedTotal *prometheus.CounterVec
	VisitsRemaining     prometheus.Gauge
}

// New creates all collectors and registers them on registry.
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "footprint_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "footprint_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		VisitsTrackedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "footprint_visits_tracked_total",
				Help: "Track events by outcome (created or merged)",
			},
			[]string{"result"},
		),
		VisitUpdatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "footprint_visit_updates_total",
				Help: "Explicit visit updates by status",
			},
			[]string{"status"},
		),
		SessionUpdatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "footprint_session_time_records_updated_total",
				Help: "Records touched by session time broadcasts",
			},
		),
		CleanupRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "footprint_cleanup_runs_total",
				Help: "Retention runs by status",
			},
			[]string{"status"},
		),
		CleanupDeletedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "footprint_cleanup_deleted_total",
				Help: "Records deleted by retention, per pass",
			},
			[]string{"pass"},
		),
		VisitsRemaining: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "footprint_visits_remaining",
				Help: "Records left after the last retention run",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.VisitsTrackedTotal,
		m.VisitUpdatesTotal,
		m.SessionUpdatedTotal,
		m.CleanupRunsTotal,
		m.CleanupDeletedTotal,
		m.VisitsRemaining,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) VisitTracked(result string) {
	if m == nil {
		return
	}
	m.VisitsTrackedTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) VisitUpdated(status string) {
	if m == nil {
		return
	}
	m.VisitUpdatesTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) SessionTimeBroadcast(updated int64) {
	if m == nil || updated <= 0 {
		return
	}
	m.SessionUpdatedTotal.Add(float64(updated))
}

// CleanupFinished records one retention run.
func (m *Metrics) CleanupFinished(status string, oldDeleted, duplicatesDeleted, remaining int64) {
	if m == nil {
		return
	}
	m.CleanupRunsTotal.WithLabelValues(status).Inc()
	m.CleanupDeletedTotal.WithLabelValues("stale").Add(float64(oldDeleted))
	m.CleanupDeletedTotal.WithLabelValues("duplicate").Add(float64(duplicatesDeleted))
	if status == "ok" {
		m.VisitsRemaining.Set(float64(remaining))
	}
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, path, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(seconds)
}
