package assets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/stacklok/spatial-anchors/internal/httpclient"
	"github.com/stacklok/spatial-anchors/internal/loop"
	"github.com/stacklok/spatial-anchors/internal/otel"
	"github.com/stacklok/spatial-anchors/internal/telemetry"
)

// DefaultMaxRetries is the number of retries after the first failed attempt
const DefaultMaxRetries = 3

// Outcomes recorded on asset metrics
const (
	outcomeSucceeded = "succeeded"
	outcomeExhausted = "exhausted"
	outcomeFailed    = "failed"
)

// Option configures a RetryingLoader
type Option func(*RetryingLoader)

// WithMaxRetries sets the number of retries after the first failed attempt
func WithMaxRetries(n int) Option {
	return func(l *RetryingLoader) {
		if n >= 0 {
			l.maxRetries = n
		}
	}
}

// WithBackOff sets the factory for the backoff policy of each load
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(l *RetryingLoader) {
		l.newBackOff = newBackOff
	}
}

// WithExponentialBackOff waits initial, then grows the wait by multiplier up to maxInterval
func WithExponentialBackOff(initial, maxInterval time.Duration, multiplier float64) Option {
	return WithBackOff(func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = initial
		b.MaxInterval = maxInterval
		b.Multiplier = multiplier
		return b
	})
}

// WithUploader sets the client used by Upload
func WithUploader(c httpclient.Client) Option {
	return func(l *RetryingLoader) {
		l.uploader = c
	}
}

// WithMetrics records attempts and load outcomes
func WithMetrics(m *telemetry.AssetMetrics) Option {
	return func(l *RetryingLoader) {
		l.metrics = m
	}
}

// WithTracer traces every Fetch
func WithTracer(t trace.Tracer) Option {
	return func(l *RetryingLoader) {
		l.tracer = t
	}
}

// RetryingLoader resolves asset keys, dispatches to the loader registered for
// the asset type and retries failed attempts. Concurrent loads of the same
// type and key share one attempt sequence.
type RetryingLoader struct {
	loop       *loop.Loop
	resolver   Resolver
	registry   Registry
	uploader   httpclient.Client
	maxRetries int
	newBackOff func() backoff.BackOff
	metrics    *telemetry.AssetMetrics
	tracer     trace.Tracer

	group singleflight.Group

	mu       sync.Mutex
	statuses map[string]Status
}

// NewRetryingLoader creates a loader. Decoded assets are delivered on l.
func NewRetryingLoader(l *loop.Loop, resolver Resolver, registry Registry, opts ...Option) *RetryingLoader {
	r := &RetryingLoader{
		loop:       l,
		resolver:   resolver,
		registry:   registry,
		maxRetries: DefaultMaxRetries,
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		statuses:   make(map[string]Status),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func statusKey(assetType, key string) string {
	return assetType + "\x00" + key
}

// LoadAsset loads the asset in the background and calls onDecoded with the
// decoded value on the session loop. Failures are logged and never reach
// onDecoded. An asset type without a loader fails immediately.
func (r *RetryingLoader) LoadAsset(ctx context.Context, assetType, key string, onDecoded func(any)) {
	if _, ok := r.registry.Lookup(assetType); !ok {
		err := r.unknownType(ctx, assetType, key)
		slog.Error("Asset load failed", "type", assetType, "key", key, "error", err)
		return
	}

	loop.Await(r.loop, ctx,
		func(ctx context.Context) (any, error) {
			return r.Fetch(ctx, assetType, key)
		},
		func(v any, err error) {
			if err != nil {
				slog.Error("Asset load failed", "type", assetType, "key", key, "error", err)
				return
			}
			if onDecoded != nil {
				onDecoded(v)
			}
		},
	)
}

// Fetch loads an asset and blocks until it is decoded, the load failed
// terminally, or ctx is done. It returns a *LoadError when the load failed and
// ctx.Err() when the caller gave up first. A shared attempt sequence keeps
// running for the other callers when one of them gives up.
func (r *RetryingLoader) Fetch(ctx context.Context, assetType, key string) (_ any, err error) {
	ctx, span := otel.StartSpan(ctx, r.tracer, "assets.Fetch",
		trace.WithAttributes(otel.AttrAssetType.String(assetType), otel.AttrAssetKey.String(key)))
	defer func() { otel.Finish(span, err) }()

	loader, ok := r.registry.Lookup(assetType)
	if !ok {
		return nil, r.unknownType(ctx, assetType, key)
	}

	seqCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(statusKey(assetType, key), func() (any, error) {
		return r.load(seqCtx, loader, assetType, key)
	})

	select {
	case <-ctx.Done():
		slog.Debug("Caller stopped waiting for asset load", "type", assetType, "key", key)
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			slog.Debug("Joined in-flight asset load", "type", assetType, "key", key)
		}
		out, _ := res.Val.(loadResult)
		span.SetAttributes(otel.AttrAttempts.Int(out.attempts))
		return out.value, res.Err
	}
}

// loadResult is the outcome of one attempt sequence, shared by every caller that joined it
type loadResult struct {
	value    any
	attempts int
}

func (r *RetryingLoader) unknownType(ctx context.Context, assetType, key string) error {
	r.setStatus(statusKey(assetType, key), Status{Phase: PhaseFailed, Message: ErrUnknownAssetType.Error()})
	r.metrics.RecordLoad(ctx, assetType, outcomeFailed, 0)
	return &LoadError{Kind: ErrUnknownAssetType, AssetType: assetType, AssetKey: key}
}

// load runs the bounded attempt sequence. Each attempt resolves a fresh URL
// because resolved URLs expire. Content the loader rejects as unsupported is
// not fetched again.
func (r *RetryingLoader) load(ctx context.Context, loader Loader, assetType, key string) (loadResult, error) {
	id := statusKey(assetType, key)
	start := time.Now()
	attempt := 0

	operation := func() (any, error) {
		attempt++
		now := r.loop.Clock().Now()
		r.setStatus(id, Status{Phase: PhaseAttempting, Attempt: attempt, LastAttempt: &now})
		r.metrics.RecordAttempt(ctx, assetType)

		url, err := r.resolver.ResolveURL(ctx, key, MethodGet)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve URL: %w", err)
		}
		v, err := loader.Load(ctx, url, progressLogger(assetType, key))
		if errors.Is(err, ErrUnsupportedFormat) {
			return nil, backoff.Permanent(fmt.Errorf("failed to decode asset: %w", err))
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load asset: %w", err)
		}
		return v, nil
	}

	v, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(r.newBackOff()),
		backoff.WithMaxTries(uint(r.maxRetries+1)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.Warn("Asset load attempt failed, retrying",
				"type", assetType,
				"key", key,
				"attempt", attempt,
				"max_attempts", r.maxRetries+1,
				"retry_in", next,
				"error", err)
		}),
	)
	res := loadResult{value: v, attempts: attempt}

	switch {
	case errors.Is(err, ErrUnsupportedFormat):
		r.setStatus(id, Status{Phase: PhaseFailed, Attempt: attempt, Message: err.Error()})
		r.metrics.RecordLoad(ctx, assetType, outcomeFailed, time.Since(start))
		return res, &LoadError{Kind: ErrUnsupportedFormat, AssetType: assetType, AssetKey: key, Attempts: attempt, Err: err}
	case err != nil:
		r.setStatus(id, Status{Phase: PhaseExhausted, Attempt: attempt, Message: err.Error()})
		r.metrics.RecordLoad(ctx, assetType, outcomeExhausted, time.Since(start))
		return res, &LoadError{Kind: ErrRetriesExhausted, AssetType: assetType, AssetKey: key, Attempts: attempt, Err: err}
	}

	r.setStatus(id, Status{Phase: PhaseSucceeded, Attempt: attempt})
	r.metrics.RecordLoad(ctx, assetType, outcomeSucceeded, time.Since(start))
	slog.Info("Asset loaded", "type", assetType, "key", key, "attempts", attempt)
	return res, nil
}

// Status returns the state of the most recent load of an asset
func (r *RetryingLoader) Status(assetType, key string) Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.statuses[statusKey(assetType, key)]; ok {
		return s
	}
	return Status{Phase: PhaseIdle}
}

func (r *RetryingLoader) setStatus(id string, s Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[id] = s
}

// Upload resolves a write URL for key and uploads body, retrying like a load
func (r *RetryingLoader) Upload(ctx context.Context, key, contentType string, body []byte) error {
	if r.uploader == nil {
		return errors.New("no uploader configured")
	}

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		url, err := r.resolver.ResolveURL(ctx, key, MethodPut)
		if err != nil {
			return struct{}{}, fmt.Errorf("failed to resolve upload URL: %w", err)
		}
		return struct{}{}, r.uploader.Put(ctx, url, contentType, body)
	},
		backoff.WithBackOff(r.newBackOff()),
		backoff.WithMaxTries(uint(r.maxRetries+1)),
		backoff.WithMaxElapsedTime(0),
	)
	if err != nil {
		return fmt.Errorf("failed to upload %q after %d attempt(s): %w", key, attempt, err)
	}
	slog.Info("Asset uploaded", "key", key, "bytes", len(body), "attempts", attempt)
	return nil
}

// ListURLs returns read URLs for every object stored under key
func (r *RetryingLoader) ListURLs(ctx context.Context, key string) ([]string, error) {
	urls, err := r.resolver.ResolveAllURLs(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to list URLs for %q: %w", key, err)
	}
	return urls, nil
}

// progressLogger logs download progress at quarter steps
func progressLogger(assetType, key string) httpclient.ProgressFunc {
	next := int64(25)
	return func(read, total int64) {
		if total <= 0 {
			return
		}
		pct := read * 100 / total
		if pct < next {
			return
		}
		slog.Debug("Asset download progress", "type", assetType, "key", key, "percent", pct)
		next = (pct/25 + 1) * 25
	}
}
