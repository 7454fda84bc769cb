package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Refresh outcomes recorded by SnapshotRefreshes
const (
	RefreshCreated   = "created"
	RefreshTooRecent = "too_recent"
	RefreshError     = "error"
)

// Metrics holds the Prometheus collectors exported on /metrics
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	SnapshotRefreshes *prometheus.CounterVec
	AnalyticsRequests *prometheus.CounterVec
}

// NewMetrics creates the collectors on a private registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portfolio_http_requests_total",
				Help: "Total number of HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portfolio_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"method", "route"},
		),

		SnapshotRefreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portfolio_snapshot_refreshes_total",
				Help: "Snapshot refresh attempts by outcome",
			},
			[]string{"outcome"},
		),

		AnalyticsRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portfolio_analytics_requests_total",
				Help: "Analytics requests by view",
			},
			[]string{"view"},
		),
	}

	m.registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.SnapshotRefreshes,
		m.AnalyticsRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry so other collectors can join it
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRefresh counts one refresh attempt
func (m *Metrics) RecordRefresh(outcome string) {
	m.SnapshotRefreshes.WithLabelValues(outcome).Inc()
}

// Middleware records request counts and latencies by route template
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		route := routeTemplate(r)
		m.RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// routeTemplate keeps label cardinality bounded by using the route pattern, not the path
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}
