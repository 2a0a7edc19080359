// Package otel provides tracing helpers shared by the session runner and the asset loader.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Attribute keys used on session and asset spans
const (
	AttrSessionID   = attribute.Key("session.id")
	AttrFrameCount  = attribute.Key("session.frames")
	AttrAnchorCount = attribute.Key("session.anchors")
	AttrAssetType   = attribute.Key("asset.type")
	AttrAssetKey    = attribute.Key("asset.key")
	AttrAttempts    = attribute.Key("asset.attempts")
)

// StartSpan starts a span on tracer. A nil tracer yields ctx unchanged and a no-op span.
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, noop.Span{}
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError marks span as failed. The status description stays generic since
// errors may carry pre-signed URLs; the full error is kept on the exception event.
func RecordError(span trace.Span, err error) {
	if err == nil || span == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "operation failed")
}

// Finish records err, if any, and ends span
func Finish(span trace.Span, err error) {
	if span == nil {
		return
	}
	RecordError(span, err)
	span.End()
}
