package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics of the API.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Access pipeline
	RejectionsTotal *prometheus.CounterVec

	// Store metrics, sampled by StatUpdater
	DBConnectionsOpen  prometheus.Gauge
	DBConnectionsInUse prometheus.Gauge
	DBConnectionsIdle  prometheus.Gauge
	UsersTotal         prometheus.Gauge
	LeaguesTotal       prometheus.Gauge
	EventsTotal        prometheus.Gauge
}

// NewMetrics creates the metrics and registers them with a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leagues_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "leagues_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leagues_access_rejections_total",
				Help: "Requests rejected by the access pipeline",
			},
			[]string{"stage", "status"},
		),
		DBConnectionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "leagues_db_connections_open",
			Help: "Open database connections",
		}),
		DBConnectionsInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "leagues_db_connections_in_use",
			Help: "Database connections in use",
		}),
		DBConnectionsIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "leagues_db_connections_idle",
			Help: "Idle database connections",
		}),
		UsersTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "leagues_users_total",
			Help: "Registered users",
		}),
		LeaguesTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "leagues_leagues_total",
			Help: "Leagues across all apps",
		}),
		EventsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "leagues_events_total",
			Help: "League events across all apps",
		}),
	}

	m.registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.RejectionsTotal,
		m.DBConnectionsOpen,
		m.DBConnectionsInUse,
		m.DBConnectionsIdle,
		m.UsersTotal,
		m.LeaguesTotal,
		m.EventsTotal,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format. Response
// compression is left to the router.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{DisableCompression: true})
}

// RecordRejection counts a request stopped by an access stage.
func (m *Metrics) RecordRejection(stage string, status int) {
	m.RejectionsTotal.WithLabelValues(stage, strconv.Itoa(status)).Inc()
}

// Instrument records request counts and latency labelled by the matched chi
// route pattern, so path parameters do not explode cardinality.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
