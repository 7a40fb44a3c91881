package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NewTracerProvider builds the trace side of the telemetry stack and installs
// it as the global provider. A nil or disabled tracing config yields a no-op
// provider. The caller owns Shutdown on the returned provider.
func NewTracerProvider(ctx context.Context, cfg *TracingConfig, settings ExporterSettings) (trace.TracerProvider, error) {
	if cfg == nil || !cfg.Enabled {
		slog.Info("Tracing disabled, using no-op tracer provider")
		return noop.NewTracerProvider(), nil
	}

	settings = settings.withDefaults()

	res, err := newResource(ctx, settings.ServiceName, settings.ServiceVersion)
	if err != nil {
		return nil, err
	}

	exporterOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(settings.Endpoint)}
	if settings.Insecure {
		exporterOpts = append(exporterOpts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	// Asset and download traffic dominates the request mix, so spans are
	// sampled at the configured ratio rather than exported wholesale.
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.GetSampling())),
	)
	otel.SetTracerProvider(tp)

	// W3C Trace Context propagation
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if settings.Insecure {
		slog.Warn("Tracing exports over unencrypted HTTP; use only in development")
	}
	slog.Info("Tracing initialized",
		"endpoint", settings.Endpoint,
		"sampling_ratio", cfg.GetSampling(),
		"insecure", settings.Insecure,
	)

	return tp, nil
}
