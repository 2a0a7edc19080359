package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Telemetry owns the providers of one simulator process
type Telemetry struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	// scrape is set when metrics are exported through Prometheus
	scrape *prometheus.Registry

	shutdowns []func(context.Context) error
}

// Option configures New
type Option func(*options)

type options struct {
	config *Config
}

// WithTelemetryConfig sets the telemetry block of the session configuration
func WithTelemetryConfig(cfg *Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// New builds the providers enabled by the configuration. Disabled providers
// are no-ops, so callers always get usable tracers and meters.
// The caller is responsible for calling Shutdown when the process exits.
func New(ctx context.Context, opts ...Option) (*Telemetry, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	cfg := o.config

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry configuration: %w", err)
	}

	t := &Telemetry{
		tracerProvider: tracenoop.NewTracerProvider(),
		meterProvider:  metricnoop.NewMeterProvider(),
	}
	if !cfg.TracingEnabled() && !cfg.MetricsEnabled() {
		slog.Debug("Telemetry disabled")
		return t, nil
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.TracingEnabled() {
		tp, err := newTracerProvider(ctx, cfg, res)
		if err != nil {
			return nil, err
		}
		t.tracerProvider = tp
		t.shutdowns = append(t.shutdowns, tp.Shutdown)
	}

	if cfg.MetricsEnabled() {
		var scrape *prometheus.Registry
		if cfg.Metrics.GetExporter() == ExporterPrometheus {
			scrape = prometheus.NewRegistry()
		}
		mp, err := newMeterProvider(ctx, cfg, res, scrape)
		if err != nil {
			_ = t.Shutdown(ctx)
			return nil, err
		}
		t.meterProvider = mp
		t.scrape = scrape
		t.shutdowns = append(t.shutdowns, mp.Shutdown)
	}

	slog.Info("Telemetry initialized",
		"service_name", cfg.GetServiceName(),
		"service_version", cfg.GetServiceVersion(),
		"device", cfg.Device,
		"tracing", cfg.TracingEnabled(),
		"metrics", cfg.MetricsEnabled(),
	)
	return t, nil
}

// newResource describes the simulator process and, when configured, the device it stands in for
func newResource(ctx context.Context, cfg *Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.GetServiceName()),
		semconv.ServiceVersion(cfg.GetServiceVersion()),
	}
	if cfg.Device != "" {
		attrs = append(attrs, semconv.DeviceID(cfg.Device))
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(attrs...),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// TracerProvider returns the configured tracer provider
func (t *Telemetry) TracerProvider() trace.TracerProvider {
	return t.tracerProvider
}

// MeterProvider returns the configured meter provider
func (t *Telemetry) MeterProvider() metric.MeterProvider {
	return t.meterProvider
}

// Tracer returns the tracer of session and asset spans
func (t *Telemetry) Tracer() trace.Tracer {
	return t.tracerProvider.Tracer(TracerName)
}

// MetricsHandler returns the Prometheus scrape handler, or nil when metrics
// are not exported through Prometheus
func (t *Telemetry) MetricsHandler() http.Handler {
	if t.scrape == nil {
		return nil
	}
	return promhttp.HandlerFor(t.scrape, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the SDK providers, metrics first
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if len(t.shutdowns) == 0 {
		return nil
	}
	slog.Info("Shutting down telemetry")

	var errs []error
	for i := len(t.shutdowns) - 1; i >= 0; i-- {
		if err := t.shutdowns[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	t.shutdowns = nil
	if len(errs) > 0 {
		return fmt.Errorf("failed to shutdown telemetry: %w", errors.Join(errs...))
	}
	return nil
}
