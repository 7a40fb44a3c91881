// Package otel carries the tracing helpers and attribute keys shared across
// the gallery server.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for the gallery domain. Spans across packages use these so
// a namespace or extension filter matches every span that mentions one.
const (
	AttrNamespace      = attribute.Key("extension.namespace")
	AttrExtension      = attribute.Key("extension.name")
	AttrVersion        = attribute.Key("extension.version")
	AttrTargetPlatform = attribute.Key("extension.target_platform")
	AttrFileName       = attribute.Key("file.name")
	AttrPageSize       = attribute.Key("pagination.limit")
	AttrResultCount    = attribute.Key("result.count")
)

// StartSpan opens a span on the given tracer. A nil tracer yields the span
// already on the context, so instrumented code runs unchanged with tracing
// off.
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError marks the span failed and attaches err as an event. Nil spans
// and nil errors are ignored. The status description stays generic; error
// text can carry SQL fragments or connection strings, and those belong in
// span events, not in the status line backends index.
func RecordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
	}
}
