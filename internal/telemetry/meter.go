package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// newMeterProvider builds the SDK meter provider for the configured exporter.
// scrape receives the Prometheus collector and must be set for that exporter.
func newMeterProvider(
	ctx context.Context, cfg *Config, res *resource.Resource, scrape *prometheus.Registry,
) (*sdkmetric.MeterProvider, error) {
	reader, err := newMetricsReader(ctx, cfg, scrape)
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)
	return mp, nil
}

func newMetricsReader(ctx context.Context, cfg *Config, scrape *prometheus.Registry) (sdkmetric.Reader, error) {
	switch exporter := cfg.Metrics.GetExporter(); exporter {
	case ExporterPrometheus:
		if scrape == nil {
			return nil, fmt.Errorf("prometheus exporter needs a registry")
		}
		reader, err := otelprom.New(otelprom.WithRegisterer(scrape))
		if err != nil {
			return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		slog.Info("Metrics initialized", "exporter", exporter)
		return reader, nil

	default:
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.GetEndpoint())}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		push, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
		}

		interval := cfg.Metrics.GetInterval()
		slog.Info("Metrics initialized",
			"exporter", exporter,
			"endpoint", cfg.GetEndpoint(),
			"interval", interval,
			"insecure", cfg.Insecure,
		)
		return sdkmetric.NewPeriodicReader(push, sdkmetric.WithInterval(interval)), nil
	}
}
