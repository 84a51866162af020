package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveUpstream(t *testing.T) {
	m := New()
	m.ObserveUpstream("texts", http.MethodGet, 200, 10*time.Millisecond)
	m.ObserveUpstream("texts", http.MethodGet, 0, time.Millisecond)

	if got := testutil.ToFloat64(m.UpstreamRequestsTotal.WithLabelValues("texts", "GET", "200")); got != 1 {
		t.Errorf("200 count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.UpstreamRequestsTotal.WithLabelValues("texts", "GET", "error")); got != 1 {
		t.Errorf("error count = %v, want 1", got)
	}
}

func TestGaugeReadsAtScrape(t *testing.T) {
	m := New()
	n := 3
	m.Gauge("catalog_sse_clients", "Connected event stream clients", func() float64 { return float64(n) })
	n = 7

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), "catalog_sse_clients 7") {
		t.Errorf("gauge not exported with current value:\n%s", w.Body.String())
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveUpstream("texts", "GET", 200, time.Millisecond)
	m.ObserveCache(true)
	m.ObserveValidationFailure("text")
	m.Gauge("x", "x", func() float64 { return 0 })
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/text/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/text/T1", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	if got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("/text/{id}", "GET", "404")); got != 1 {
		t.Errorf("count = %v, want 1", got)
	}

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), "catalog_http_requests_total") {
		t.Error("exposition missing catalog_http_requests_total")
	}
}
