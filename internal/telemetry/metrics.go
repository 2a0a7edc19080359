package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// AnchorMetricsMeterName is the name used for the anchor metrics meter
	AnchorMetricsMeterName = "github.com/stacklok/spatial-anchors/anchors"

	// AssetMetricsMeterName is the name used for the asset loader metrics meter
	AssetMetricsMeterName = "github.com/stacklok/spatial-anchors/assets"

	// FrameMetricsMeterName is the name used for the frame loop metrics meter
	FrameMetricsMeterName = "github.com/stacklok/spatial-anchors/frame"
)

// Anchor origins recorded on anchor metrics
const (
	OriginCreated  = "created"
	OriginRestored = "restored"
)

// AnchorMetrics holds the instruments for the anchor coordinator
type AnchorMetrics struct {
	added    metric.Int64Counter
	deleted  metric.Int64Counter
	failures metric.Int64Counter
	live     metric.Int64Gauge
}

// NewAnchorMetrics creates anchor instruments. A nil provider yields nil (no-op) metrics.
func NewAnchorMetrics(provider metric.MeterProvider) (*AnchorMetrics, error) {
	if provider == nil {
		return nil, nil
	}
	meter := provider.Meter(AnchorMetricsMeterName)

	added, err := meter.Int64Counter(
		"anchors_added_total",
		metric.WithDescription("Anchors added to the live set, by origin"),
		metric.WithUnit("{anchor}"),
	)
	if err != nil {
		return nil, err
	}
	deleted, err := meter.Int64Counter(
		"anchors_deleted_total",
		metric.WithDescription("Anchors deleted from the live set"),
		metric.WithUnit("{anchor}"),
	)
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter(
		"anchors_tracking_failures_total",
		metric.WithDescription("Anchor creations or restorations rejected by the tracking subsystem"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}
	live, err := meter.Int64Gauge(
		"anchors_live",
		metric.WithDescription("Anchors currently in the live set"),
		metric.WithUnit("{anchor}"),
	)
	if err != nil {
		return nil, err
	}

	return &AnchorMetrics{added: added, deleted: deleted, failures: failures, live: live}, nil
}

// RecordAdded records an anchor joining the live set
func (m *AnchorMetrics) RecordAdded(ctx context.Context, origin string, liveCount int) {
	if m == nil {
		return
	}
	m.added.Add(ctx, 1, metric.WithAttributes(attribute.String("origin", origin)))
	m.live.Record(ctx, int64(liveCount))
}

// RecordDeleted records deleted anchors
func (m *AnchorMetrics) RecordDeleted(ctx context.Context, count int, liveCount int) {
	if m == nil {
		return
	}
	m.deleted.Add(ctx, int64(count))
	m.live.Record(ctx, int64(liveCount))
}

// RecordFailure records a rejected creation or restoration
func (m *AnchorMetrics) RecordFailure(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}

// AssetMetrics holds the instruments for the retrying asset loader
type AssetMetrics struct {
	attempts     metric.Int64Counter
	loadDuration metric.Float64Histogram
}

// NewAssetMetrics creates asset loader instruments. A nil provider yields nil (no-op) metrics.
func NewAssetMetrics(provider metric.MeterProvider) (*AssetMetrics, error) {
	if provider == nil {
		return nil, nil
	}
	meter := provider.Meter(AssetMetricsMeterName)

	attempts, err := meter.Int64Counter(
		"assets_load_attempts_total",
		metric.WithDescription("Asset load attempts, including retries"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}
	loadDuration, err := meter.Float64Histogram(
		"assets_load_duration_seconds",
		metric.WithDescription("Duration of complete asset loads, retries included"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	if err != nil {
		return nil, err
	}

	return &AssetMetrics{attempts: attempts, loadDuration: loadDuration}, nil
}

// RecordAttempt records one resolution-plus-load attempt
func (m *AssetMetrics) RecordAttempt(ctx context.Context, assetType string) {
	if m == nil {
		return
	}
	m.attempts.Add(ctx, 1, metric.WithAttributes(attribute.String("asset_type", assetType)))
}

// RecordLoad records the outcome of a complete load
func (m *AssetMetrics) RecordLoad(ctx context.Context, assetType, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.loadDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("asset_type", assetType),
		attribute.String("outcome", outcome),
	))
}

// FrameMetrics holds the instruments for the frame synchronizer
type FrameMetrics struct {
	tickDuration metric.Float64Histogram
	stagePanics  metric.Int64Counter
}

// NewFrameMetrics creates frame loop instruments. A nil provider yields nil (no-op) metrics.
func NewFrameMetrics(provider metric.MeterProvider) (*FrameMetrics, error) {
	if provider == nil {
		return nil, nil
	}
	meter := provider.Meter(FrameMetricsMeterName)

	tickDuration, err := meter.Float64Histogram(
		"frame_tick_duration_seconds",
		metric.WithDescription("Time spent in one frame tick"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.002, 0.004, 0.008, 0.011, 0.014, 0.02, 0.05),
	)
	if err != nil {
		return nil, err
	}
	stagePanics, err := meter.Int64Counter(
		"frame_stage_panics_total",
		metric.WithDescription("Panics recovered inside frame stages"),
		metric.WithUnit("{panic}"),
	)
	if err != nil {
		return nil, err
	}

	return &FrameMetrics{tickDuration: tickDuration, stagePanics: stagePanics}, nil
}

// RecordTick records the duration of a frame tick
func (m *FrameMetrics) RecordTick(ctx context.Context, duration time.Duration) {
	if m == nil {
		return
	}
	m.tickDuration.Record(ctx, duration.Seconds())
}

// RecordStagePanic records a recovered panic in the named stage
func (m *FrameMetrics) RecordStagePanic(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	m.stagePanics.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}
