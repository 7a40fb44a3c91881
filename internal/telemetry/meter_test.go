package telemetry

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func TestNewMeterProvider_Disabled(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	for name, cfg := range map[string]*MetricsConfig{
		"nil config":      nil,
		"disabled config": {Enabled: false},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			mp, err := NewMeterProvider(ctx, cfg, ExporterSettings{}, nil)
			require.NoError(t, err)

			_, ok := mp.(noop.MeterProvider)
			assert.True(t, ok, "expected no-op meter provider")
		})
	}
}

func TestNewMeterProvider_Enabled(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	settings := ExporterSettings{ServiceName: "gallery", Insecure: true}

	mp, err := NewMeterProvider(ctx, &MetricsConfig{Enabled: true}, settings, nil)
	require.NoError(t, err)

	sdkMP, ok := mp.(*sdkmetric.MeterProvider)
	require.True(t, ok, "expected SDK meter provider")

	// Shutdown flushes to the OTLP endpoint, which is not running in
	// tests, so the error is ignored.
	_ = sdkMP.Shutdown(ctx)
}

func TestNewMeterProvider_PrometheusRegistry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	registry := prometheus.NewRegistry()

	mp, err := NewMeterProvider(ctx, &MetricsConfig{Enabled: true},
		ExporterSettings{Insecure: true}, registry)
	require.NoError(t, err)

	sdkMP, ok := mp.(*sdkmetric.MeterProvider)
	require.True(t, ok, "expected SDK meter provider")
	defer func() { _ = sdkMP.Shutdown(ctx) }()

	counter, err := mp.Meter("gallery-test").Int64Counter("gallery_test_downloads")
	require.NoError(t, err)
	counter.Add(ctx, 3)

	// Instruments recorded through the provider must be visible to a
	// Prometheus scrape of the same registry.
	families, err := registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
