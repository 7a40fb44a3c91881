package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// startSpanRecorder builds a tracer provider that keeps finished spans in
// memory for inspection. It is shut down when the test completes.
func startSpanRecorder(t *testing.T) (*tracetest.InMemoryExporter, *sdktrace.TracerProvider) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return exporter, tp
}

// attrMap flattens a recorded span's attributes for assertion.
func attrMap(span tracetest.SpanStub) map[attribute.Key]attribute.Value {
	attrs := make(map[attribute.Key]attribute.Value, len(span.Attributes))
	for _, kv := range span.Attributes {
		attrs[kv.Key] = kv.Value
	}
	return attrs
}

func TestTracingMiddleware_NilProviderPassesThrough(t *testing.T) {
	t.Parallel()

	middleware := TracingMiddleware(nil)
	require.NotNil(t, middleware)

	handlerCalled := false
	wrapped := middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		handlerCalled = true
		w.Header().Set("X-Custom-Header", "test-value")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("response body"))
	}))

	rr := httptest.NewRecorder()
	wrapped.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/-/publish", nil))

	assert.True(t, handlerCalled)
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "test-value", rr.Header().Get("X-Custom-Header"))
	assert.Equal(t, "response body", rr.Body.String())
}

func TestTracingMiddleware_RecordsServerSpan(t *testing.T) {
	t.Parallel()

	exporter, tp := startSpanRecorder(t)

	r := chi.NewRouter()
	r.Use(TracingMiddleware(tp))
	r.Get("/gallery/extensionquery", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/gallery/extensionquery", nil)
	req.Header.Set("User-Agent", "VSCode 1.93.0 (Code)")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	attrs := attrMap(spans[0])
	assert.Equal(t, http.MethodGet, attrs[semconv.HTTPRequestMethodKey].AsString())
	assert.Equal(t, "/gallery/extensionquery", attrs[semconv.URLPathKey].AsString())
	assert.Equal(t, "VSCode 1.93.0 (Code)", attrs[semconv.UserAgentOriginalKey].AsString())
	assert.Equal(t, int64(http.StatusOK), attrs[semconv.HTTPResponseStatusCodeKey].AsInt64())
	assert.Equal(t, "/gallery/extensionquery", attrs[semconv.HTTPRouteKey].AsString())
}

func TestTracingMiddleware_StatusMapping(t *testing.T) {
	t.Parallel()

	// 2xx maps to Ok, 4xx stays Unset, 5xx becomes Error.
	cases := []struct {
		statusCode int
		spanStatus codes.Code
		statusDesc string
	}{
		{http.StatusOK, codes.Ok, ""},
		{http.StatusNotFound, codes.Unset, ""},
		{http.StatusInternalServerError, codes.Error, http.StatusText(http.StatusInternalServerError)},
	}

	for _, tc := range cases {
		t.Run(http.StatusText(tc.statusCode), func(t *testing.T) {
			t.Parallel()

			exporter, tp := startSpanRecorder(t)
			wrapped := TracingMiddleware(tp)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.statusCode)
			}))

			rr := httptest.NewRecorder()
			wrapped.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/item", nil))

			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			assert.Equal(t, tc.spanStatus, spans[0].Status.Code)
			assert.Equal(t, tc.statusDesc, spans[0].Status.Description)
			assert.Equal(t, int64(tc.statusCode),
				attrMap(spans[0])[semconv.HTTPResponseStatusCodeKey].AsInt64())
		})
	}
}

func TestTracingMiddleware_ContinuesRemoteTrace(t *testing.T) {
	t.Parallel()

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	exporter, tp := startSpanRecorder(t)
	wrapped := TracingMiddleware(tp)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	const remoteTraceID = "0af7651916cd43dd8448eb211c80319c"
	req := httptest.NewRequest(http.MethodGet, "/item", nil)
	req.Header.Set("traceparent", "00-"+remoteTraceID+"-b7ad6b7169203331-01")

	rr := httptest.NewRecorder()
	wrapped.ServeHTTP(rr, req)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, remoteTraceID, spans[0].SpanContext.TraceID().String(),
		"span should continue the trace from the traceparent header")
}

func TestTracingMiddleware_RouteNaming(t *testing.T) {
	t.Parallel()

	t.Run("span named by chi route pattern", func(t *testing.T) {
		t.Parallel()

		exporter, tp := startSpanRecorder(t)

		r := chi.NewRouter()
		r.Use(TracingMiddleware(tp))
		r.Get("/namespaces/{namespace}", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/namespaces/redhat", nil))

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, "GET /namespaces/{namespace}", spans[0].Name)
		assert.Equal(t, "/namespaces/{namespace}",
			attrMap(spans[0])[semconv.HTTPRouteKey].AsString())
	})

	t.Run("unrouted requests share the unknown_route name", func(t *testing.T) {
		t.Parallel()

		exporter, tp := startSpanRecorder(t)
		wrapped := TracingMiddleware(tp)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		rr := httptest.NewRecorder()
		wrapped.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/some/path", nil))

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, "GET unknown_route", spans[0].Name)
		assert.Equal(t, "unknown_route", attrMap(spans[0])[semconv.HTTPRouteKey].AsString())
	})
}

func TestTracingMiddleware_SkipsProbeEndpoints(t *testing.T) {
	t.Parallel()

	for path := range untracedPaths {
		t.Run(path, func(t *testing.T) {
			t.Parallel()

			exporter, tp := startSpanRecorder(t)

			handlerCalled := false
			wrapped := TracingMiddleware(tp)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				handlerCalled = true
				w.WriteHeader(http.StatusOK)
			}))

			rr := httptest.NewRecorder()
			wrapped.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))

			// The request is served normally, just not traced.
			assert.True(t, handlerCalled)
			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Empty(t, exporter.GetSpans())
		})
	}
}

func TestTruncateUserAgent(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Mozilla/5.0", truncateUserAgent("Mozilla/5.0"))

	exact := strings.Repeat("a", MaxUserAgentLength)
	assert.Equal(t, exact, truncateUserAgent(exact))
	assert.Equal(t, exact, truncateUserAgent(exact+"overflow"))
}
