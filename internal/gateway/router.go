package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/openpecha/catalog/internal/catalog"
	"github.com/openpecha/catalog/internal/metrics"
)

// Options configures the gateway router.
type Options struct {
	AuthEnabled bool
	Token       string
	CORSOrigins []string
	// Events, if non-nil, is mounted at GET /events inside the auth group.
	Events  http.Handler
	Metrics *metrics.Metrics
	Limiter *RateLimiter
}

// NewRouter creates a chi router with the catalog routes mounted.
func NewRouter(svc *catalog.Service, opts Options) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(opts.AuthEnabled, opts.Token))
	r.Use(opts.Limiter.Middleware)

	// Texts.
	r.Get("/text", h.ListTexts)
	r.Post("/text", h.CreateText)
	r.Get("/text/{id}", h.GetText)
	r.Get("/text/{id}/instances", h.ListTextInstances)
	r.Post("/text/{id}/instances", h.CreateTextInstance)

	// Instances; the /text prefixed path is kept for older clients.
	r.Get("/instances/{id}", h.GetInstance)
	r.Get("/text/instances/{id}", h.GetInstance)

	// Persons.
	r.Get("/person", h.ListPersons)
	r.Post("/person", h.CreatePerson)
	r.Get("/person/{id}", h.GetPerson)

	// Search over the local index.
	r.Get("/search", h.Search)

	if opts.Events != nil {
		r.Get("/events", opts.Events.ServeHTTP)
	}

	return r
}

// NewServer wraps the catalog routes with the shared middleware stack and
// the unauthenticated health, metrics and API document endpoints.
func NewServer(svc *catalog.Service, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}
	r.Use(CORS(opts.CORSOrigins))

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := svc.Ready(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/openapi.yaml", OpenAPIYAML)
	r.Get("/openapi.json", OpenAPIJSON)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Mount("/", NewRouter(svc, opts))
	return r
}
