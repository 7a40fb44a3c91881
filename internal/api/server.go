// Package api provides the HTTP server for the extension gallery.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/BuckysMyHero/openvsx/internal/api/common"
	"github.com/BuckysMyHero/openvsx/internal/api/gallery"
	"github.com/BuckysMyHero/openvsx/internal/api/health"
	"github.com/BuckysMyHero/openvsx/internal/service"
)

// ServerOption configures the gallery API server
type ServerOption func(*serverConfig)

type serverConfig struct {
	middlewares    []func(http.Handler) http.Handler
	galleryOptions []gallery.RouteOption
	metricsHandler http.Handler
}

// WithMiddlewares adds middleware to the server
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithGalleryOptions passes options through to the gallery routes
func WithGalleryOptions(opts ...gallery.RouteOption) ServerOption {
	return func(cfg *serverConfig) {
		cfg.galleryOptions = append(cfg.galleryOptions, opts...)
	}
}

// WithMetricsHandler serves the given handler on GET /metrics. A nil handler
// leaves the route unregistered.
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.metricsHandler = h
	}
}

// NewServer assembles the gallery router: probe endpoints at the root, the
// marketplace-compatible surface under /vscode and the registry-style
// endpoints (publish, unpkg, public key) under /api.
func NewServer(svc service.GalleryService, opts ...ServerOption) *chi.Mux {
	var cfg serverConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	r := chi.NewRouter()
	r.Use(cfg.middlewares...)

	r.Mount("/", health.Router(svc))
	r.Get("/openapi.json", openAPIHandler)
	if cfg.metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.metricsHandler)
	}

	routes := gallery.NewRoutes(svc, cfg.galleryOptions...)
	r.Mount("/vscode", routes.VSCodeRouter())
	r.Mount("/api", routes.RegistryRouter())

	return r
}

// LoggingMiddleware emits a debug log per request with status and timing.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		slog.DebugContext(r.Context(), "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// openAPIHandler answers 501 until OpenAPI document generation lands.
func openAPIHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteErrorResponse(w, "OpenAPI specification not yet implemented", http.StatusNotImplemented)
}
