// Package telemetry wires OpenTelemetry tracing and metrics into the gallery
// server. Both signals export over OTLP/HTTP; metrics can additionally be
// bridged to a Prometheus scrape endpoint.
package telemetry

import (
	"errors"
	"fmt"
)

const (
	// DefaultServiceName identifies the gallery server in telemetry backends.
	DefaultServiceName = "openvsx-server"

	// DefaultEndpoint is where the OTLP collector is expected when no
	// endpoint is configured.
	DefaultEndpoint = "localhost:4318"

	// DefaultSampling keeps 5% of traces. Asset and download traffic
	// dominates the request mix, so sampling everything would be mostly
	// noise.
	DefaultSampling = 0.05
)

// Config is the telemetry section of the server configuration.
type Config struct {
	// Enabled turns telemetry on. When false nothing is initialized and
	// the rest of the section is ignored.
	Enabled bool `yaml:"enabled"`

	// ServiceName overrides the service name reported to the collector.
	ServiceName string `yaml:"serviceName,omitempty"`

	// ServiceVersion overrides the reported service version.
	ServiceVersion string `yaml:"serviceVersion,omitempty"`

	// Endpoint is the OTLP collector address as "host:port". The HTTP
	// exporter appends the /v1/traces and /v1/metrics paths itself.
	Endpoint string `yaml:"endpoint,omitempty"`

	// Insecure sends telemetry over plain HTTP. Only for development.
	Insecure bool `yaml:"insecure,omitempty"`

	// Tracing configures the trace signal.
	Tracing *TracingConfig `yaml:"tracing,omitempty"`

	// Metrics configures the metric signal.
	Metrics *MetricsConfig `yaml:"metrics,omitempty"`
}

// TracingConfig configures the trace signal.
type TracingConfig struct {
	// Enabled turns tracing on when telemetry is enabled globally.
	Enabled bool `yaml:"enabled"`

	// Sampling is the fraction of traces to keep, between 0.0 and 1.0.
	Sampling float64 `yaml:"sampling,omitempty"`
}

// MetricsConfig configures the metric signal.
type MetricsConfig struct {
	// Enabled turns metrics on when telemetry is enabled globally.
	Enabled bool `yaml:"enabled"`
}

// GetServiceName returns the configured service name or the default.
func (c *Config) GetServiceName() string {
	return orDefault(c.ServiceName, DefaultServiceName)
}

// GetServiceVersion returns the configured service version, or "unknown".
func (c *Config) GetServiceVersion() string {
	return orDefault(c.ServiceVersion, "unknown")
}

// GetEndpoint returns the configured collector endpoint or the default.
func (c *Config) GetEndpoint() string {
	return orDefault(c.Endpoint, DefaultEndpoint)
}

// GetInsecure reports whether telemetry may use plain HTTP.
func (c *Config) GetInsecure() bool {
	return c.Insecure
}

// GetSampling returns the sampling ratio to use. A zero value means unset
// and yields DefaultSampling; YAML cannot distinguish an explicit 0 from an
// absent key, so "sample nothing" is expressed by disabling tracing instead.
func (c *TracingConfig) GetSampling() float64 {
	if c.Sampling == 0.0 {
		return DefaultSampling
	}
	return c.Sampling
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// Validate checks the telemetry section. A nil or disabled section is valid,
// since either simply turns telemetry off.
func (c *Config) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}

	var errs []error
	if err := c.Tracing.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("tracing: %w", err))
	}
	if err := c.Metrics.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("metrics: %w", err))
	}
	return errors.Join(errs...)
}

// Validate checks the tracing section.
func (c *TracingConfig) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}
	if c.Sampling < 0 || c.Sampling > 1.0 {
		return fmt.Errorf("sampling must be between 0.0 and 1.0, got %f", c.Sampling)
	}
	return nil
}

// Validate checks the metrics section. There is nothing to check for the
// OTLP-only exporter yet, but callers treat all sections uniformly.
func (c *MetricsConfig) Validate() error {
	return nil
}
