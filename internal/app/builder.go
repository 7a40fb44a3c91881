package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/BuckysMyHero/openvsx/internal/api"
	"github.com/BuckysMyHero/openvsx/internal/api/gallery"
	"github.com/BuckysMyHero/openvsx/internal/app/storage"
	"github.com/BuckysMyHero/openvsx/internal/config"
	"github.com/BuckysMyHero/openvsx/internal/service"
	"github.com/BuckysMyHero/openvsx/internal/telemetry"
	"github.com/BuckysMyHero/openvsx/internal/upstream"
)

const (
	defaultRequestTimeout = 60 * time.Second
	// Package uploads and asset downloads can be large, so the socket
	// timeouts are far above typical API values.
	defaultReadTimeout  = 5 * time.Minute
	defaultWriteTimeout = 5 * time.Minute
	defaultIdleTimeout  = 60 * time.Second
)

// GalleryAppOptions is a function that configures the gallery app builder
type GalleryAppOptions func(*galleryAppConfig) error

// serverTimeouts groups the HTTP server timeout knobs.
type serverTimeouts struct {
	request time.Duration
	read    time.Duration
	write   time.Duration
	idle    time.Duration
}

// galleryAppConfig collects everything NewGalleryApp needs before assembly.
// Component overrides exist mainly so tests can inject fakes.
type galleryAppConfig struct {
	config         *config.Config
	storageFactory storage.Factory

	// Listener and middleware knobs
	listenAddr  string
	middlewares []func(http.Handler) http.Handler
	timeouts    serverTimeouts

	// Seed packages for the in-memory backend
	seedDir string

	// Optional observability providers
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	metricsHandler http.Handler
}

// NewGalleryApp applies the options and assembles a ready-to-start
// application.
func NewGalleryApp(
	ctx context.Context,
	opts ...GalleryAppOptions,
) (*GalleryApp, error) {
	cfg := &galleryAppConfig{
		timeouts: serverTimeouts{
			request: defaultRequestTimeout,
			read:    defaultReadTimeout,
			write:   defaultWriteTimeout,
			idle:    defaultIdleTimeout,
		},
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("failed to build base configuration: %w", err)
		}
	}

	if cfg.config == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	return cfg.build(ctx)
}

func (b *galleryAppConfig) build(ctx context.Context) (*GalleryApp, error) {
	// The listen address defaults to the configured host and port
	if b.listenAddr == "" {
		b.listenAddr = fmt.Sprintf("%s:%d", b.config.Server.Host, b.config.Server.GetPort())
	}

	// The storage factory is the single decision point for DB vs in-memory
	if b.storageFactory == nil {
		var err error
		b.storageFactory, err = storage.NewStorageFactory(ctx, b.config, b.seedDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage factory: %w", err)
		}
	}

	// Storage is released here on any failure; once the app owns it the
	// flag flips and Stop takes over.
	built := false
	defer func() {
		if !built {
			b.storageFactory.Cleanup()
		}
	}()

	slog.Info("Initializing service components")
	svc, err := b.storageFactory.CreateGalleryService(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build service components: %w", err)
	}

	// Bootstrap the signing key pair when a database is available
	conn := b.storageFactory.Connection()
	if conn != nil {
		if err := InitializeSigningKeyPair(ctx, b.config, conn.Pool); err != nil {
			return nil, fmt.Errorf("failed to initialize signing key pair: %w", err)
		}
	}

	var metrics *telemetry.GalleryMetrics
	if b.meterProvider != nil {
		metrics, err = telemetry.NewGalleryMetrics(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create gallery metrics: %w", err)
		}
	}

	srv, err := b.buildHTTPServer(svc, metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP server: %w", err)
	}

	appCtx, cancel := context.WithCancel(ctx)
	built = true

	return &GalleryApp{
		config: b.config,
		components: &AppComponents{
			GalleryService: svc,
			Database:       conn,
			Metrics:        metrics,
		},
		httpServer: srv,
		ctx:        appCtx,
		cancelFunc: func() {
			b.storageFactory.Cleanup()
			cancel()
		},
	}, nil
}

// WithConfig supplies the application configuration. It is mandatory.
func WithConfig(c *config.Config) GalleryAppOptions {
	return func(cfg *galleryAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithAddress overrides the listen address from the configuration.
func WithAddress(addr string) GalleryAppOptions {
	return func(cfg *galleryAppConfig) error {
		if err := validateHostPort(addr); err != nil {
			return err
		}
		cfg.listenAddr = addr
		return nil
	}
}

// validateHostPort checks that addr parses as an IP-and-port pair. Host
// shorthands netip does not understand (empty host, localhost) are mapped
// to addresses for validation only; the server binds the original addr.
func validateHostPort(addr string) error {
	host, port, ok := strings.Cut(addr, ":")
	if !ok {
		return fmt.Errorf("address is missing a port: %s", addr)
	}
	if port == "" {
		return fmt.Errorf("address is not a valid port: %s", addr)
	}

	switch host {
	case "localhost":
		host = "127.0.0.1"
	case "":
		host = "0.0.0.0"
	}
	if _, err := netip.ParseAddrPort(host + ":" + port); err != nil {
		return fmt.Errorf("address is not a valid port: %w", err)
	}
	return nil
}

// WithMiddlewares sets custom HTTP middlewares
func WithMiddlewares(mw ...func(http.Handler) http.Handler) GalleryAppOptions {
	return func(cfg *galleryAppConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithSeedDirectory sets a directory of .vsix packages published into the
// in-memory backend at startup
func WithSeedDirectory(dir string) GalleryAppOptions {
	return func(cfg *galleryAppConfig) error {
		cfg.seedDir = dir
		return nil
	}
}

// WithStorageFactory allows injecting a custom storage factory (for testing)
func WithStorageFactory(f storage.Factory) GalleryAppOptions {
	return func(cfg *galleryAppConfig) error {
		cfg.storageFactory = f
		return nil
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider for HTTP and
// gallery metrics
func WithMeterProvider(mp metric.MeterProvider) GalleryAppOptions {
	return func(cfg *galleryAppConfig) error {
		cfg.meterProvider = mp
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider for HTTP
// request tracing
func WithTracerProvider(tp trace.TracerProvider) GalleryAppOptions {
	return func(cfg *galleryAppConfig) error {
		cfg.tracerProvider = tp
		return nil
	}
}

// WithMetricsHandler exposes the given Prometheus scrape handler on
// GET /metrics. A nil handler leaves the route unregistered.
func WithMetricsHandler(h http.Handler) GalleryAppOptions {
	return func(cfg *galleryAppConfig) error {
		cfg.metricsHandler = h
		return nil
	}
}

func (b *galleryAppConfig) buildHTTPServer(
	svc service.GalleryService,
	metrics *telemetry.GalleryMetrics,
) (*http.Server, error) {
	slog.Info("Initializing HTTP server")

	chain, err := b.middlewareChain()
	if err != nil {
		return nil, err
	}

	galleryOpts, err := galleryOptions(b.config, metrics)
	if err != nil {
		return nil, err
	}

	serverOpts := []api.ServerOption{
		api.WithMiddlewares(chain...),
		api.WithGalleryOptions(galleryOpts...),
	}
	if b.metricsHandler != nil {
		serverOpts = append(serverOpts, api.WithMetricsHandler(b.metricsHandler))
		slog.Info("Prometheus metrics endpoint enabled")
	}

	server := &http.Server{
		Addr:         b.listenAddr,
		Handler:      api.NewServer(svc, serverOpts...),
		ReadTimeout:  b.timeouts.read,
		WriteTimeout: b.timeouts.write,
		IdleTimeout:  b.timeouts.idle,
	}

	slog.Info("HTTP server configured", "address", b.listenAddr)
	return server, nil
}

// middlewareChain assembles the middleware stack, outermost first: tracing,
// then metrics, then the standard chi chain. Metrics are recorded inside
// the request span, and every request is counted even when something later
// in the chain rejects it.
func (b *galleryAppConfig) middlewareChain() ([]func(http.Handler) http.Handler, error) {
	chain := b.middlewares
	if chain == nil {
		chain = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(b.timeouts.request),
			api.LoggingMiddleware,
		}
	}

	if b.meterProvider != nil {
		mw, err := telemetry.MetricsMiddleware(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics middleware: %w", err)
		}
		if mw != nil {
			chain = append([]func(http.Handler) http.Handler{mw}, chain...)
			slog.Info("HTTP metrics middleware enabled")
		}
	}

	if b.tracerProvider != nil {
		tracing := telemetry.TracingMiddleware(b.tracerProvider)
		chain = append([]func(http.Handler) http.Handler{tracing}, chain...)
		slog.Info("HTTP tracing middleware enabled")
	}

	return chain, nil
}

// galleryOptions maps the application configuration onto gallery route
// options.
func galleryOptions(cfg *config.Config, metrics *telemetry.GalleryMetrics) ([]gallery.RouteOption, error) {
	tokens, err := cfg.Publish.GetTokens()
	if err != nil {
		return nil, fmt.Errorf("failed to load publish tokens: %w", err)
	}

	opts := []gallery.RouteOption{
		gallery.WithBaseURL(cfg.Server.BaseURL),
		gallery.WithWebUI(cfg.Server.WebUIURL),
		gallery.WithBuiltinNamespaces(cfg.Gallery.GetBuiltinNamespaces()),
		gallery.WithPublishTokens(tokens),
		gallery.WithMetrics(metrics),
	}

	if cfg.Gallery.UpstreamURL != "" {
		opts = append(opts, gallery.WithUpstream(upstream.NewDefaultClient(cfg.Gallery.UpstreamURL, 0)))
		slog.Info("Upstream gallery fallback enabled", "upstream", cfg.Gallery.UpstreamURL)
	}

	return opts, nil
}
