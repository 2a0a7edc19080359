// Package telemetry provides OpenTelemetry instrumentation for spatial anchor sessions.
//
// Sessions report anchor lifecycle, frame timing and asset load outcomes as
// metrics, pushed over OTLP or scraped from the status server through a
// Prometheus handler. Session runs and asset fetches are traced over OTLP.
// Every recorder is nil-safe, so components take them as optional collaborators.
package telemetry

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultServiceName identifies the simulator in exported resources
	DefaultServiceName = "anchor-sim"

	// DefaultEndpoint is the OTLP HTTP collector address
	DefaultEndpoint = "localhost:4318"

	// DefaultSampling samples 5% of session and asset traces
	DefaultSampling = 0.05

	// DefaultMetricsInterval is how often OTLP metrics are pushed
	DefaultMetricsInterval = 15 * time.Second

	unknownVersion = "unknown"
)

const (
	// ExporterOTLP pushes metrics to an OTLP collector
	ExporterOTLP = "otlp"

	// ExporterPrometheus exposes metrics for scraping through the status server
	ExporterPrometheus = "prometheus"
)

// Config is the telemetry block of the session configuration
type Config struct {
	// Enabled switches every provider on or off
	Enabled bool `yaml:"enabled"`

	ServiceName    string `yaml:"serviceName,omitempty"`
	ServiceVersion string `yaml:"serviceVersion,omitempty"`

	// Device names the headset or simulator host. It is exported as the
	// device.id resource attribute so sessions of different devices can be told apart.
	Device string `yaml:"device,omitempty"`

	// Endpoint is the OTLP collector address ("host:port")
	Endpoint string `yaml:"endpoint,omitempty"`

	// Insecure sends OTLP data over plain HTTP
	Insecure bool `yaml:"insecure,omitempty"`

	Tracing *TracingConfig `yaml:"tracing,omitempty"`
	Metrics *MetricsConfig `yaml:"metrics,omitempty"`
}

// TracingConfig controls the session and asset spans
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`

	// Sampling is the ratio of traces kept, between 0.0 and 1.0
	Sampling float64 `yaml:"sampling,omitempty"`
}

// MetricsConfig controls the anchor, frame and asset instruments
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`

	// Exporter selects "otlp" (default) or "prometheus"
	Exporter string `yaml:"exporter,omitempty"`

	// Interval is the OTLP push interval, ignored by the Prometheus exporter
	Interval string `yaml:"interval,omitempty"`
}

func orDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

// GetServiceName returns the service name or DefaultServiceName
func (c *Config) GetServiceName() string {
	return orDefault(c.ServiceName, DefaultServiceName)
}

// GetServiceVersion returns the service version or "unknown"
func (c *Config) GetServiceVersion() string {
	return orDefault(c.ServiceVersion, unknownVersion)
}

// GetEndpoint returns the collector endpoint or DefaultEndpoint
func (c *Config) GetEndpoint() string {
	return orDefault(c.Endpoint, DefaultEndpoint)
}

// TracingEnabled reports whether spans are exported
func (c *Config) TracingEnabled() bool {
	return c != nil && c.Enabled && c.Tracing != nil && c.Tracing.Enabled
}

// MetricsEnabled reports whether instruments are exported
func (c *Config) MetricsEnabled() bool {
	return c != nil && c.Enabled && c.Metrics != nil && c.Metrics.Enabled
}

// GetSampling returns the sampling ratio, or DefaultSampling when unset
func (c *TracingConfig) GetSampling() float64 {
	if c == nil {
		return DefaultSampling
	}
	return orDefault(c.Sampling, DefaultSampling)
}

// GetExporter returns the metrics exporter name, defaulting to OTLP
func (c *MetricsConfig) GetExporter() string {
	if c == nil {
		return ExporterOTLP
	}
	return orDefault(c.Exporter, ExporterOTLP)
}

// GetInterval returns the OTLP push interval. Invalid values are rejected by Validate.
func (c *MetricsConfig) GetInterval() time.Duration {
	if c == nil || c.Interval == "" {
		return DefaultMetricsInterval
	}
	d, err := time.ParseDuration(c.Interval)
	if err != nil || d <= 0 {
		return DefaultMetricsInterval
	}
	return d
}

// Validate checks the enabled sections of the configuration
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

// Validate checks the sampling ratio
func (c *TracingConfig) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}
	if c.Sampling < 0 || c.Sampling > 1.0 {
		return fmt.Errorf("sampling must be between 0.0 and 1.0, got %f", c.Sampling)
	}
	return nil
}

// Validate checks the exporter name and push interval
func (c *MetricsConfig) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}

	var errs []error
	switch c.GetExporter() {
	case ExporterOTLP, ExporterPrometheus:
	default:
		errs = append(errs, fmt.Errorf("exporter must be %q or %q, got %q", ExporterOTLP, ExporterPrometheus, c.Exporter))
	}
	if c.Interval != "" {
		if d, err := time.ParseDuration(c.Interval); err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("interval must be a positive duration, got %q", c.Interval))
		}
	}
	return errors.Join(errs...)
}
