package telemetry

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// StatusMeterName is the instrumentation scope of the status server metrics
const StatusMeterName = "github.com/stacklok/spatial-anchors/status"

// StatusMetrics records the requests served by the status server of one session
type StatusMetrics struct {
	latency  metric.Float64Histogram
	requests metric.Int64Counter
	inFlight metric.Int64UpDownCounter
	session  attribute.KeyValue
}

// NewStatusMetrics creates the status server instruments. Every series carries
// the session ID. A nil provider yields nil, whose Middleware passes requests through.
func NewStatusMetrics(provider metric.MeterProvider, sessionID string) (*StatusMetrics, error) {
	if provider == nil {
		return nil, nil
	}
	meter := provider.Meter(StatusMeterName)

	latency, errLatency := meter.Float64Histogram(
		"status_http_request_duration_seconds",
		metric.WithDescription("Time spent serving status requests"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25),
	)
	requests, errRequests := meter.Int64Counter(
		"status_http_requests_total",
		metric.WithDescription("Status requests by route and status class"),
		metric.WithUnit("{request}"),
	)
	inFlight, errInFlight := meter.Int64UpDownCounter(
		"status_http_active_requests",
		metric.WithDescription("Status requests being served"),
		metric.WithUnit("{request}"),
	)
	if err := errors.Join(errLatency, errRequests, errInFlight); err != nil {
		return nil, fmt.Errorf("failed to create status metrics: %w", err)
	}

	return &StatusMetrics{
		latency:  latency,
		requests: requests,
		inFlight: inFlight,
		session:  attribute.String("session_id", sessionID),
	}, nil
}

// Middleware records latency and outcome of every request
func (m *StatusMetrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		live := metric.WithAttributes(m.session)
		m.inFlight.Add(ctx, 1, live)
		defer m.inFlight.Add(ctx, -1, live)

		next.ServeHTTP(ww, r)

		attrs := metric.WithAttributes(
			m.session,
			attribute.String("method", r.Method),
			attribute.String("route", routePattern(r)),
			attribute.String("status_class", statusClass(ww.Status())),
		)
		m.latency.Record(ctx, time.Since(start).Seconds(), attrs)
		m.requests.Add(ctx, 1, attrs)
	})
}

// routePattern returns the matched chi pattern, e.g. "/v1/anchors", or "unmatched"
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// statusClass maps a status code to "2xx", "4xx" and so on. Handlers that
// never write a header answered 200.
func statusClass(code int) string {
	if code == 0 {
		code = http.StatusOK
	}
	return fmt.Sprintf("%dxx", code/100)
}
