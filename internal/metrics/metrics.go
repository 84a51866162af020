// Package metrics provides Prometheus metrics for the catalog gateway.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector exported by the gateway. Each instance owns
// its registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	UpstreamRequestsTotal   *prometheus.CounterVec
	UpstreamRequestDuration *prometheus.HistogramVec

	CacheLookupsTotal  *prometheus.CounterVec
	ValidationFailures *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_http_requests_total",
			Help: "Total number of gateway HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_http_request_duration_seconds",
			Help:    "Duration of gateway HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	m.UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_upstream_requests_total",
			Help: "Total number of requests sent to the OpenPecha API",
		},
		[]string{"resource", "method", "status"},
	)
	m.UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_upstream_request_duration_seconds",
			Help:    "Duration of OpenPecha API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"resource", "method"},
	)
	m.CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_lookups_total",
			Help: "Upstream response cache lookups by result",
		},
		[]string{"result"},
	)
	m.ValidationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_validation_failures_total",
			Help: "Create requests rejected before reaching upstream",
		},
		[]string{"resource"},
	)

	m.registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.UpstreamRequestsTotal,
		m.UpstreamRequestDuration,
		m.CacheLookupsTotal,
		m.ValidationFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Gauge registers a gauge whose value is read from fn at scrape time.
func (m *Metrics) Gauge(name, help string, fn func() float64) {
	if m == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, fn))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveUpstream records one upstream call. status is 0 for transport errors.
func (m *Metrics) ObserveUpstream(resource, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.UpstreamRequestsTotal.WithLabelValues(resource, method, label).Inc()
	m.UpstreamRequestDuration.WithLabelValues(resource, method).Observe(d.Seconds())
}

// ObserveCache records a cache hit or miss.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheLookupsTotal.WithLabelValues("hit").Inc()
		return
	}
	m.CacheLookupsTotal.WithLabelValues("miss").Inc()
}

// ObserveValidationFailure counts a rejected create request.
func (m *Metrics) ObserveValidationFailure(resource string) {
	if m == nil {
		return
	}
	m.ValidationFailures.WithLabelValues(resource).Inc()
}

// Middleware records request counts and latency labelled by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
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
		m.HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
