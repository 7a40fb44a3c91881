package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// GalleryMetricsMeterName is the name used for the gallery metrics meter
	GalleryMetricsMeterName = "github.com/BuckysMyHero/openvsx/gallery"
)

// GalleryMetrics holds the OpenTelemetry instruments for gallery metrics
type GalleryMetrics struct {
	extensionsTotal metric.Int64Gauge
	downloadsTotal  metric.Int64Counter
	publishDuration metric.Float64Histogram
}

// NewGalleryMetrics creates a new GalleryMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewGalleryMetrics(provider metric.MeterProvider) (*GalleryMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(GalleryMetricsMeterName)

	extensionsTotal, err := meter.Int64Gauge(
		"openvsx_extensions_total",
		metric.WithDescription("Number of active extensions in the gallery"),
		metric.WithUnit("{extension}"),
	)
	if err != nil {
		return nil, err
	}

	downloadsTotal, err := meter.Int64Counter(
		"openvsx_downloads_total",
		metric.WithDescription("Total number of extension package downloads served"),
		metric.WithUnit("{download}"),
	)
	if err != nil {
		return nil, err
	}

	publishDuration, err := meter.Float64Histogram(
		"openvsx_publish_duration_seconds",
		metric.WithDescription("Duration of publish operations in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60),
	)
	if err != nil {
		return nil, err
	}

	return &GalleryMetrics{
		extensionsTotal: extensionsTotal,
		downloadsTotal:  downloadsTotal,
		publishDuration: publishDuration,
	}, nil
}

// RecordExtensionsTotal records the current number of active extensions
func (m *GalleryMetrics) RecordExtensionsTotal(ctx context.Context, count int64) {
	if m == nil || m.extensionsTotal == nil {
		return
	}

	m.extensionsTotal.Record(ctx, count)
}

// RecordDownload counts one served package download
func (m *GalleryMetrics) RecordDownload(ctx context.Context, namespace, extension string) {
	if m == nil || m.downloadsTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("namespace", namespace),
		attribute.String("extension", extension),
	}

	m.downloadsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPublish records the duration and outcome of a publish operation
func (m *GalleryMetrics) RecordPublish(ctx context.Context, duration time.Duration, success bool) {
	if m == nil || m.publishDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.Bool("success", success),
	}

	m.publishDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
