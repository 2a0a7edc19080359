package assets

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/stacklok/spatial-anchors/internal/assets/mocks"
	"github.com/stacklok/spatial-anchors/internal/httpclient"
	httpmocks "github.com/stacklok/spatial-anchors/internal/httpclient/mocks"
	"github.com/stacklok/spatial-anchors/internal/loop"
	"github.com/stacklok/spatial-anchors/internal/otel"
	"github.com/stacklok/spatial-anchors/internal/telemetry"
)

var errTransient = errors.New("connection reset by peer")

func zeroBackOff() backoff.BackOff {
	return &backoff.ZeroBackOff{}
}

type loaderFixture struct {
	loader   *RetryingLoader
	resolver *mocks.MockResolver
	audio    *mocks.MockLoader
	loop     *loop.Loop
	ctrl     *gomock.Controller
}

func newLoaderFixture(t *testing.T, opts ...Option) *loaderFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	resolver := mocks.NewMockResolver(ctrl)
	audio := mocks.NewMockLoader(ctrl)
	l := loop.New()
	opts = append([]Option{WithBackOff(zeroBackOff)}, opts...)
	return &loaderFixture{
		loader:   NewRetryingLoader(l, resolver, Registry{"audio": audio}, opts...),
		resolver: resolver,
		audio:    audio,
		loop:     l,
		ctrl:     ctrl,
	}
}

func TestLoadAsset_DeliversDecodedValueOnLoop(t *testing.T) {
	t.Parallel()

	f := newLoaderFixture(t)
	f.resolver.EXPECT().ResolveURL(gomock.Any(), "k", MethodGet).Return("https://cdn/k?sig=1", nil)
	f.audio.EXPECT().Load(gomock.Any(), "https://cdn/k?sig=1", gomock.Any()).Return("decoded", nil)

	var got []any
	f.loader.LoadAsset(context.Background(), "audio", "k", func(v any) { got = append(got, v) })
	f.loop.Settle()

	assert.Equal(t, []any{"decoded"}, got)
	status := f.loader.Status("audio", "k")
	assert.Equal(t, PhaseSucceeded, status.Phase)
	assert.Equal(t, 1, status.Attempt)
	assert.True(t, status.Terminal())
}

func TestLoadAsset_UnknownTypeNeverLoadsOrRetries(t *testing.T) {
	t.Parallel()

	// No expectations: any resolver or loader call fails the test
	f := newLoaderFixture(t)

	called := false
	f.loader.LoadAsset(context.Background(), "unknown-type", "k", func(any) { called = true })
	f.loop.Settle()

	assert.False(t, called)
	assert.Equal(t, PhaseFailed, f.loader.Status("unknown-type", "k").Phase)

	_, err := f.loader.Fetch(context.Background(), "unknown-type", "k")
	require.ErrorIs(t, err, ErrUnknownAssetType)
	assert.NotErrorIs(t, err, ErrRetriesExhausted)
}

func TestLoadAsset_ExhaustsAfterFourAttempts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(ctx) }()
	metrics, err := telemetry.NewAssetMetrics(mp)
	require.NoError(t, err)

	f := newLoaderFixture(t, WithMetrics(metrics))

	f.resolver.EXPECT().ResolveURL(gomock.Any(), "k", MethodGet).Return("https://cdn/k", nil).Times(4)
	f.audio.EXPECT().Load(gomock.Any(), "https://cdn/k", gomock.Any()).Return(nil, errTransient).Times(4)

	called := false
	f.loader.LoadAsset(ctx, "audio", "k", func(any) { called = true })
	f.loop.Settle()

	assert.False(t, called)
	status := f.loader.Status("audio", "k")
	assert.Equal(t, PhaseExhausted, status.Phase)
	assert.Equal(t, 4, status.Attempt)
	assert.Contains(t, status.Message, errTransient.Error())

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	var attempts int64
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok && m.Name == "assets_load_attempts_total" {
				for _, dp := range sum.DataPoints {
					attempts += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(4), attempts)
}

func TestFetch_ResolvesFreshURLEachAttempt(t *testing.T) {
	t.Parallel()

	f := newLoaderFixture(t)

	n := 0
	f.resolver.EXPECT().ResolveURL(gomock.Any(), "k", MethodGet).
		DoAndReturn(func(context.Context, string, string) (string, error) {
			n++
			return fmt.Sprintf("https://cdn/k?sig=%d", n), nil
		}).Times(3)
	gomock.InOrder(
		f.audio.EXPECT().Load(gomock.Any(), "https://cdn/k?sig=1", gomock.Any()).Return(nil, errTransient),
		f.audio.EXPECT().Load(gomock.Any(), "https://cdn/k?sig=2", gomock.Any()).Return(nil, errTransient),
		f.audio.EXPECT().Load(gomock.Any(), "https://cdn/k?sig=3", gomock.Any()).Return([]byte("pcm"), nil),
	)

	v, err := f.loader.Fetch(context.Background(), "audio", "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("pcm"), v)
	assert.Equal(t, 3, f.loader.Status("audio", "k").Attempt)
}

func TestFetch_ResolverFailuresAreRetried(t *testing.T) {
	t.Parallel()

	f := newLoaderFixture(t, WithMaxRetries(1))
	f.resolver.EXPECT().ResolveURL(gomock.Any(), "k", MethodGet).Return("", errTransient).Times(2)

	_, err := f.loader.Fetch(context.Background(), "audio", "k")
	require.ErrorIs(t, err, ErrRetriesExhausted)
	require.ErrorIs(t, err, errTransient)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, 2, loadErr.Attempts)
	assert.Equal(t, "audio", loadErr.AssetType)
}

func TestFetch_ZeroRetries(t *testing.T) {
	t.Parallel()

	f := newLoaderFixture(t, WithMaxRetries(0))
	f.resolver.EXPECT().ResolveURL(gomock.Any(), "k", MethodGet).Return("u", nil).Times(1)
	f.audio.EXPECT().Load(gomock.Any(), "u", gomock.Any()).Return(nil, errTransient).Times(1)

	_, err := f.loader.Fetch(context.Background(), "audio", "k")
	require.ErrorIs(t, err, ErrRetriesExhausted)
}

func TestLoadAsset_ConcurrentLoadsOfSameKeyShareAttempts(t *testing.T) {
	t.Parallel()

	f := newLoaderFixture(t)
	started := make(chan struct{})
	release := make(chan struct{})

	f.resolver.EXPECT().ResolveURL(gomock.Any(), "k", MethodGet).Return("u", nil).Times(1)
	f.audio.EXPECT().Load(gomock.Any(), "u", gomock.Any()).
		DoAndReturn(func(context.Context, string, httpclient.ProgressFunc) (any, error) {
			close(started)
			<-release
			return "shared", nil
		}).Times(1)

	var got []any
	f.loader.LoadAsset(context.Background(), "audio", "k", func(v any) { got = append(got, v) })
	<-started
	f.loader.LoadAsset(context.Background(), "audio", "k", func(v any) { got = append(got, v) })

	// Give the second load time to join the in-flight one
	time.Sleep(50 * time.Millisecond)
	close(release)
	f.loop.Settle()

	assert.Equal(t, []any{"shared", "shared"}, got)
}

func TestFetch_CancelledCallerLeavesSharedLoadRunning(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	f := newLoaderFixture(t, WithTracer(tp.Tracer("test")))
	started := make(chan struct{})
	release := make(chan struct{})

	f.resolver.EXPECT().ResolveURL(gomock.Any(), "k", MethodGet).Return("u", nil).Times(1)
	f.audio.EXPECT().Load(gomock.Any(), "u", gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ string, _ httpclient.ProgressFunc) (any, error) {
			close(started)
			<-release
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return "shared", nil
		}).Times(1)

	firstCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	firstErr := make(chan error, 1)
	go func() {
		_, err := f.loader.Fetch(firstCtx, "audio", "k")
		firstErr <- err
	}()
	<-started

	type result struct {
		v   any
		err error
	}
	second := make(chan result, 1)
	go func() {
		v, err := f.loader.Fetch(context.Background(), "audio", "k")
		second <- result{v: v, err: err}
	}()

	// Give the second fetch time to join the in-flight one
	time.Sleep(50 * time.Millisecond)
	cancel()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, "shared", got.v)
	assert.Equal(t, PhaseSucceeded, f.loader.Status("audio", "k").Phase)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	var joined sdktrace.ReadOnlySpan
	for _, s := range spans.Snapshots() {
		if s.Status().Code != codes.Error {
			joined = s
		}
	}
	require.NotNil(t, joined)
	assert.Contains(t, joined.Attributes(), otel.AttrAttempts.Int(1))
}

func TestFetch_UnsupportedFormatIsNotRetried(t *testing.T) {
	t.Parallel()

	f := newLoaderFixture(t)
	f.resolver.EXPECT().ResolveURL(gomock.Any(), "m.gltf", MethodGet).Return("u", nil).Times(1)
	f.audio.EXPECT().Load(gomock.Any(), "u", gomock.Any()).
		Return(nil, fmt.Errorf("%w: glTF version 1.0.0", ErrUnsupportedFormat)).Times(1)

	_, err := f.loader.Fetch(context.Background(), "audio", "m.gltf")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.NotErrorIs(t, err, ErrRetriesExhausted)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, 1, loadErr.Attempts)

	status := f.loader.Status("audio", "m.gltf")
	assert.Equal(t, PhaseFailed, status.Phase)
	assert.Equal(t, 1, status.Attempt)
}

func TestUpload(t *testing.T) {
	t.Parallel()

	f := newLoaderFixture(t)
	uploader := httpmocks.NewMockClient(f.ctrl)
	loader := NewRetryingLoader(f.loop, f.resolver, nil, WithBackOff(zeroBackOff), WithUploader(uploader))

	gomock.InOrder(
		f.resolver.EXPECT().ResolveURL(gomock.Any(), "rec.webm", MethodPut).Return("https://up/1", nil),
		uploader.EXPECT().Put(gomock.Any(), "https://up/1", "audio/webm", []byte("data")).Return(errTransient),
		f.resolver.EXPECT().ResolveURL(gomock.Any(), "rec.webm", MethodPut).Return("https://up/2", nil),
		uploader.EXPECT().Put(gomock.Any(), "https://up/2", "audio/webm", []byte("data")).Return(nil),
	)

	require.NoError(t, loader.Upload(context.Background(), "rec.webm", "audio/webm", []byte("data")))
}

func TestUpload_WithoutUploader(t *testing.T) {
	t.Parallel()

	f := newLoaderFixture(t)
	err := f.loader.Upload(context.Background(), "k", "audio/webm", nil)
	require.Error(t, err)
}

func TestListURLs(t *testing.T) {
	t.Parallel()

	f := newLoaderFixture(t)
	f.resolver.EXPECT().ResolveAllURLs(gomock.Any(), "shared").Return([]string{"a", "b"}, nil)
	f.resolver.EXPECT().ResolveAllURLs(gomock.Any(), "missing").Return(nil, errTransient)

	urls, err := f.loader.ListURLs(context.Background(), "shared")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, urls)

	_, err = f.loader.ListURLs(context.Background(), "missing")
	require.ErrorIs(t, err, errTransient)
}

func TestStatus_IdleByDefault(t *testing.T) {
	t.Parallel()

	f := newLoaderFixture(t)
	s := f.loader.Status("audio", "never")
	assert.Equal(t, PhaseIdle, s.Phase)
	assert.False(t, s.Terminal())
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	noop := LoaderFunc(func(context.Context, string, httpclient.ProgressFunc) (any, error) { return nil, nil })
	r := Registry{"gltf": noop, "audio": noop, "broken": nil}

	assert.Equal(t, []string{"audio", "broken", "gltf"}, r.Types())
	_, ok := r.Lookup("gltf")
	assert.True(t, ok)
	_, ok = r.Lookup("broken")
	assert.False(t, ok, "nil loaders are not usable")
	_, ok = r.Lookup("video")
	assert.False(t, ok)
}

func TestLoadError(t *testing.T) {
	t.Parallel()

	err := &LoadError{Kind: ErrUnknownAssetType, AssetType: "video", AssetKey: "k"}
	assert.Equal(t, `unknown asset type: type "video", key "k"`, err.Error())

	wrapped := &LoadError{Kind: ErrRetriesExhausted, AssetType: "audio", AssetKey: "k", Attempts: 4, Err: errTransient}
	assert.Contains(t, wrapped.Error(), "after 4 attempt(s)")
	assert.ErrorIs(t, wrapped, errTransient)
}

func TestFetch_Traced(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	f := newLoaderFixture(t, WithMaxRetries(1), WithTracer(tp.Tracer("test")))
	f.resolver.EXPECT().ResolveURL(gomock.Any(), "k", MethodGet).Return("https://cdn/k?sig=1", nil).Times(2)
	f.audio.EXPECT().Load(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errTransient).Times(2)

	_, err := f.loader.Fetch(context.Background(), "audio", "k")
	require.Error(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "assets.Fetch", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Contains(t, spans[0].Attributes, otel.AttrAssetType.String("audio"))
	assert.Contains(t, spans[0].Attributes, otel.AttrAttempts.Int(2))
}
