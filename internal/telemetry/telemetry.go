package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry owns the tracer and meter providers for the process and their
// shutdown.
type Telemetry struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	metricsHandler http.Handler

	// One entry per SDK provider that was actually built; no-op
	// providers register nothing.
	shutdowns []func(context.Context) error
}

// New initializes telemetry from the configuration. A nil or disabled
// configuration yields no-op providers, so callers never need to branch.
// The caller is responsible for Shutdown when the application exits.
func New(ctx context.Context, cfg *Config) (*Telemetry, error) {
	if cfg == nil || !cfg.Enabled {
		slog.Debug("Telemetry disabled")
		return newDisabledTelemetry(ctx)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry configuration: %w", err)
	}

	settings := settingsFromConfig(cfg)
	slog.Info("Initializing telemetry",
		"service_name", settings.ServiceName,
		"service_version", settings.ServiceVersion,
	)

	tracerProvider, err := NewTracerProvider(ctx, cfg.Tracing, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer provider: %w", err)
	}

	// When metrics are on, a Prometheus registry doubles the instruments up
	// as a scrape endpoint next to the OTLP push.
	var registry *prometheus.Registry
	var scrape http.Handler
	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		scrape = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}

	meterProvider, err := NewMeterProvider(ctx, cfg.Metrics, settings, registry)
	if err != nil {
		// Unwind the tracer provider so a half-initialized stack does not
		// leak its exporter.
		if tp, ok := tracerProvider.(*sdktrace.TracerProvider); ok {
			_ = tp.Shutdown(ctx)
		}
		return nil, fmt.Errorf("failed to create meter provider: %w", err)
	}

	slog.Info("Telemetry initialized successfully")
	return newTelemetry(tracerProvider, meterProvider, scrape), nil
}

func newDisabledTelemetry(ctx context.Context) (*Telemetry, error) {
	tracerProvider, err := NewTracerProvider(ctx, nil, ExporterSettings{})
	if err != nil {
		return nil, fmt.Errorf("failed to create no-op tracer provider: %w", err)
	}
	meterProvider, err := NewMeterProvider(ctx, nil, ExporterSettings{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create no-op meter provider: %w", err)
	}
	return newTelemetry(tracerProvider, meterProvider, nil), nil
}

// newTelemetry wires the shutdown hooks for whichever providers turned out
// to be real SDK implementations.
func newTelemetry(tp trace.TracerProvider, mp metric.MeterProvider, scrape http.Handler) *Telemetry {
	t := &Telemetry{
		tracerProvider: tp,
		meterProvider:  mp,
		metricsHandler: scrape,
	}
	if sdkTP, ok := tp.(*sdktrace.TracerProvider); ok {
		t.shutdowns = append(t.shutdowns, wrapShutdown("tracer provider", sdkTP.Shutdown))
	}
	if sdkMP, ok := mp.(*sdkmetric.MeterProvider); ok {
		t.shutdowns = append(t.shutdowns, wrapShutdown("meter provider", sdkMP.Shutdown))
	}
	return t
}

func wrapShutdown(what string, stop func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := stop(ctx); err != nil {
			return fmt.Errorf("failed to shutdown %s: %w", what, err)
		}
		return nil
	}
}

// TracerProvider returns the provider HTTP middleware and services create
// spans from.
func (t *Telemetry) TracerProvider() trace.TracerProvider {
	return t.tracerProvider
}

// MeterProvider returns the provider instruments are registered on.
func (t *Telemetry) MeterProvider() metric.MeterProvider {
	return t.meterProvider
}

// MetricsHandler returns the Prometheus scrape handler, or nil when metrics
// are disabled.
func (t *Telemetry) MetricsHandler() http.Handler {
	return t.metricsHandler
}

// Tracer is shorthand for TracerProvider().Tracer.
func (t *Telemetry) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	return t.tracerProvider.Tracer(name, opts...)
}

// Meter is shorthand for MeterProvider().Meter.
func (t *Telemetry) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	return t.meterProvider.Meter(name, opts...)
}

// Shutdown flushes and stops whichever SDK providers were built. Disabled
// telemetry has nothing to stop. Safe to call more than once.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down telemetry")

	var errs []error
	for _, stop := range t.shutdowns {
		errs = append(errs, stop(ctx))
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	slog.Info("Telemetry shutdown complete")
	return nil
}
