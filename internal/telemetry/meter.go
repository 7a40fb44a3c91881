package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// DefaultMetricsInterval is how often the periodic reader pushes metrics to
// the collector.
const DefaultMetricsInterval = 60 * time.Second

// NewMeterProvider builds the metric side of the telemetry stack and installs
// it as the global provider. A nil or disabled metrics config yields a no-op
// provider. With a non-nil registry the same instruments are additionally
// exposed for Prometheus scraping. The caller owns Shutdown on the returned
// provider.
func NewMeterProvider(ctx context.Context, cfg *MetricsConfig, settings ExporterSettings, registry *prometheus.Registry) (metric.MeterProvider, error) {
	if cfg == nil || !cfg.Enabled {
		slog.Info("Metrics disabled, using no-op meter provider")
		return noop.NewMeterProvider(), nil
	}

	settings = settings.withDefaults()

	res, err := newResource(ctx, settings.ServiceName, settings.ServiceVersion)
	if err != nil {
		return nil, err
	}

	exporterOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(settings.Endpoint)}
	if settings.Insecure {
		exporterOpts = append(exporterOpts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}

	providerOpts := []sdkmetric.Option{
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(DefaultMetricsInterval)),
		),
	}

	// A Prometheus reader serves the same metrics to scrapers.
	if registry != nil {
		promExporter, err := otelprom.New(otelprom.WithRegisterer(registry))
		if err != nil {
			return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		providerOpts = append(providerOpts, sdkmetric.WithReader(promExporter))
	}

	mp := sdkmetric.NewMeterProvider(providerOpts...)
	otel.SetMeterProvider(mp)

	slog.Info("Metrics initialized", "endpoint", settings.Endpoint, "insecure", settings.Insecure)

	return mp, nil
}
