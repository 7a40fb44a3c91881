package database

import (
	"context"

	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// ServiceTracerName is the instrumentation scope for database service spans.
const ServiceTracerName = "github.com/BuckysMyHero/openvsx/service/db"

// startSpan opens a span for a store operation, stamping it with the
// db.system attribute the OTel database conventions expect. Without a tracer
// it hands back whatever span is already on the context, which keeps call
// sites free of nil checks.
func (s *dbService) startSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	opts = append([]trace.SpanStartOption{
		trace.WithAttributes(semconv.DBSystemPostgreSQL),
	}, opts...)
	return s.tracer.Start(ctx, name, opts...)
}
