// Package frame drives the per-frame update of a session in a fixed order.
package frame

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/stacklok/spatial-anchors/internal/telemetry"
	"github.com/stacklok/spatial-anchors/internal/tracking"
)

// Stage names, in execution order
const (
	StageFlush    = "flush"
	StageTracking = "tracking"
	StageLabels   = "labels"
	StageUI       = "ui"
	StageRender   = "render"
)

// Frame describes one rendered frame
type Frame struct {
	// Number is the monotonically increasing frame counter
	Number uint64

	// Viewer is the camera pose for this frame, nil when the viewer is not tracked
	Viewer *tracking.Pose

	// Time is the host timestamp of the frame
	Time time.Time
}

// AnchorFlusher turns the pending anchor request into a creation
//
//go:generate mockgen -destination=mocks/mock_stages.go -package=mocks -source=synchronizer.go AnchorFlusher,Updater,LabelUpdater,UIUpdater,Renderer
type AnchorFlusher interface {
	FlushPendingAnchor(ctx context.Context)
}

// Updater advances the tracking subsystem once per frame
type Updater interface {
	Update()
}

// LabelUpdater reorients per-surface labels towards the viewer
type LabelUpdater interface {
	FaceCamera(viewer tracking.Pose)
}

// UIUpdater moves camera-relative UI to follow the viewer
type UIUpdater interface {
	Follow(viewer tracking.Pose)
}

// Renderer draws the frame
type Renderer interface {
	Render(ctx context.Context, frame Frame)
}

// Option configures a Synchronizer
type Option func(*Synchronizer)

// WithLabels sets the label stage
func WithLabels(labels LabelUpdater) Option {
	return func(s *Synchronizer) {
		s.labels = labels
	}
}

// WithUI sets the camera-relative UI stage
func WithUI(ui UIUpdater) Option {
	return func(s *Synchronizer) {
		s.ui = ui
	}
}

// WithRenderer sets the render stage
func WithRenderer(r Renderer) Option {
	return func(s *Synchronizer) {
		s.renderer = r
	}
}

// WithMetrics records tick durations and stage panics
func WithMetrics(m *telemetry.FrameMetrics) Option {
	return func(s *Synchronizer) {
		s.metrics = m
	}
}

// Synchronizer runs the stages of a frame. Tick must be called on the session loop.
type Synchronizer struct {
	anchors  AnchorFlusher
	tracker  Updater
	labels   LabelUpdater
	ui       UIUpdater
	renderer Renderer
	metrics  *telemetry.FrameMetrics

	last uint64
}

// NewSynchronizer creates a synchronizer. Label, UI and render stages are optional.
func NewSynchronizer(anchors AnchorFlusher, tracker Updater, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		anchors: anchors,
		tracker: tracker,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tick runs one frame: flush the pending anchor, advance tracking, update
// labels, update UI, render. The flush runs before tracking advances so a new
// anchor is created against the same tracking snapshot the frame renders. A
// panicking stage is logged and the remaining stages still run.
func (s *Synchronizer) Tick(ctx context.Context, f Frame) {
	start := time.Now()
	if f.Number != 0 && f.Number <= s.last {
		slog.Debug("Frame number did not advance", "frame", f.Number, "last", s.last)
	}
	s.last = f.Number

	s.stage(ctx, StageFlush, func() { s.anchors.FlushPendingAnchor(ctx) })
	s.stage(ctx, StageTracking, s.tracker.Update)

	if f.Viewer != nil {
		viewer := *f.Viewer
		if s.labels != nil {
			s.stage(ctx, StageLabels, func() { s.labels.FaceCamera(viewer) })
		}
		if s.ui != nil {
			s.stage(ctx, StageUI, func() { s.ui.Follow(viewer) })
		}
	}

	if s.renderer != nil {
		s.stage(ctx, StageRender, func() { s.renderer.Render(ctx, f) })
	}

	s.metrics.RecordTick(ctx, time.Since(start))
}

// LastFrame returns the number of the most recent frame
func (s *Synchronizer) LastFrame() uint64 {
	return s.last
}

func (s *Synchronizer) stage(ctx context.Context, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Recovered panic in frame stage",
				"stage", name,
				"frame", s.last,
				"panic", r,
				"stack", string(debug.Stack()))
			s.metrics.RecordStagePanic(ctx, name)
		}
	}()
	fn()
}
