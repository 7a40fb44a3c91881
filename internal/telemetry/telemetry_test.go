package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// newOTLPStub starts an HTTP server that accepts any OTLP export request,
// so SDK providers can flush cleanly during shutdown.
func newOTLPStub(t *testing.T) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return strings.TrimPrefix(server.URL, "http://")
}

// requireNoOp asserts that both providers are the no-op implementations.
func requireNoOp(t *testing.T, tel *Telemetry) {
	t.Helper()
	_, okTracer := tel.TracerProvider().(tracenoop.TracerProvider)
	assert.True(t, okTracer, "expected no-op tracer provider")
	_, okMeter := tel.MeterProvider().(noop.MeterProvider)
	assert.True(t, okMeter, "expected no-op meter provider")
}

func TestNew_DisabledVariants(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	variants := map[string]*Config{
		"nil config":        nil,
		"disabled globally": {Enabled: false},
		"enabled with both signals off": {
			Enabled: true,
			Tracing: &TracingConfig{Enabled: false},
			Metrics: &MetricsConfig{Enabled: false},
		},
	}

	for name, cfg := range variants {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			tel, err := New(ctx, cfg)
			require.NoError(t, err)
			requireNoOp(t, tel)
			require.NoError(t, tel.Shutdown(ctx))
		})
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), &Config{
		Enabled: true,
		Tracing: &TracingConfig{Enabled: true, Sampling: 1.5},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid telemetry configuration")
}

func TestNew_EnabledSignals(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("tracing only", func(t *testing.T) {
		t.Parallel()

		tel, err := New(ctx, &Config{
			Enabled:  true,
			Endpoint: newOTLPStub(t),
			Insecure: true,
			Tracing:  &TracingConfig{Enabled: true, Sampling: 1.0},
			Metrics:  &MetricsConfig{Enabled: false},
		})
		require.NoError(t, err)

		_, okTracer := tel.TracerProvider().(*sdktrace.TracerProvider)
		assert.True(t, okTracer, "expected SDK tracer provider")
		_, okMeter := tel.MeterProvider().(noop.MeterProvider)
		assert.True(t, okMeter, "expected no-op meter provider")

		require.NoError(t, tel.Shutdown(ctx))
	})

	t.Run("metrics only", func(t *testing.T) {
		t.Parallel()

		tel, err := New(ctx, &Config{
			Enabled:  true,
			Endpoint: newOTLPStub(t),
			Insecure: true,
			Tracing:  &TracingConfig{Enabled: false},
			Metrics:  &MetricsConfig{Enabled: true},
		})
		require.NoError(t, err)

		_, okMeter := tel.MeterProvider().(*sdkmetric.MeterProvider)
		assert.True(t, okMeter, "expected SDK meter provider")

		require.NoError(t, tel.Shutdown(ctx))
	})

	t.Run("both signals", func(t *testing.T) {
		t.Parallel()

		tel, err := New(ctx, &Config{
			Enabled:  true,
			Endpoint: newOTLPStub(t),
			Insecure: true,
			Tracing:  &TracingConfig{Enabled: true, Sampling: 1.0},
			Metrics:  &MetricsConfig{Enabled: true},
		})
		require.NoError(t, err)

		_, okTracer := tel.TracerProvider().(*sdktrace.TracerProvider)
		assert.True(t, okTracer, "expected SDK tracer provider")
		_, okMeter := tel.MeterProvider().(*sdkmetric.MeterProvider)
		assert.True(t, okMeter, "expected SDK meter provider")

		require.NoError(t, tel.Shutdown(ctx))
	})
}

func TestTelemetry_Accessors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tel, err := New(ctx, nil)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, tel.Shutdown(ctx))
	}()

	require.NotNil(t, tel.TracerProvider())
	require.NotNil(t, tel.MeterProvider())
	require.NotNil(t, tel.Tracer("gallery-test"))
	require.NotNil(t, tel.Meter("gallery-test"))
}

func TestTelemetry_MetricsHandler(t *testing.T) {
	t.Parallel()

	t.Run("nil when telemetry disabled", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()

		tel, err := New(ctx, nil)
		require.NoError(t, err)
		defer func() { require.NoError(t, tel.Shutdown(ctx)) }()

		assert.Nil(t, tel.MetricsHandler())
	})

	t.Run("nil when metrics disabled", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()

		tel, err := New(ctx, &Config{
			Enabled: true,
			Metrics: &MetricsConfig{Enabled: false},
		})
		require.NoError(t, err)
		defer func() { require.NoError(t, tel.Shutdown(ctx)) }()

		assert.Nil(t, tel.MetricsHandler())
	})

	t.Run("serves a scrape when metrics enabled", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()

		tel, err := New(ctx, &Config{
			Enabled:  true,
			Endpoint: newOTLPStub(t),
			Insecure: true,
			Metrics:  &MetricsConfig{Enabled: true},
		})
		require.NoError(t, err)
		defer func() { require.NoError(t, tel.Shutdown(ctx)) }()

		handler := tel.MetricsHandler()
		require.NotNil(t, handler)

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestTelemetry_ShutdownIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tel, err := New(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, tel.Shutdown(ctx))
	require.NoError(t, tel.Shutdown(ctx))
}

func TestNewDisabledTelemetry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tel, err := newDisabledTelemetry(ctx)
	require.NoError(t, err)
	require.NotNil(t, tel)

	requireNoOp(t, tel)
	assert.Empty(t, tel.shutdowns)
	require.NoError(t, tel.Shutdown(ctx))
}
