// Package metrics exposes filedock coordinator events and HTTP traffic as
// Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sagarc03/filedock"
)

// Metrics holds every collector registered by New.
type Metrics struct {
	registry *prometheus.Registry

	Events          *prometheus.CounterVec   // filedock_coordinator_events_total{event}
	ConfirmedBytes  prometheus.Counter       // filedock_confirmed_bytes_total
	RequestsTotal   *prometheus.CounterVec   // filedock_http_requests_total{method,route,status}
	RequestDuration *prometheus.HistogramVec // filedock_http_request_duration_seconds{method,route}
}

var _ filedock.EventRecorder = (*Metrics)(nil)

// New registers the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		Events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "filedock_coordinator_events_total",
			Help: "Upload and download coordinator events by type",
		}, []string{"event"}),

		ConfirmedBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "filedock_confirmed_bytes_total",
			Help: "Total bytes of uploads confirmed",
		}),

		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "filedock_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "filedock_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Record implements filedock.EventRecorder.
func (m *Metrics) Record(event filedock.Event, bytes int64) {
	m.Events.WithLabelValues(string(event)).Inc()
	if event == filedock.EventUploadConfirmed && bytes > 0 {
		m.ConfirmedBytes.Add(float64(bytes))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request counts and latency labelled by the chi route
// pattern, so path parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
