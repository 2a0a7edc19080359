// Package session wires the anchor, hit-test and frame components of one AR
// session together and exposes the controller and session event handlers.
//
// A Session replaces process-wide scene state: everything a handler touches
// hangs off the Session value. Handlers and Tick must run on the session loop;
// hosts deliver input by posting closures with loop.Post.
package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/stacklok/spatial-anchors/internal/anchors"
	"github.com/stacklok/spatial-anchors/internal/frame"
	"github.com/stacklok/spatial-anchors/internal/hittest"
	"github.com/stacklok/spatial-anchors/internal/loop"
	"github.com/stacklok/spatial-anchors/internal/surfaces"
	"github.com/stacklok/spatial-anchors/internal/telemetry"
	"github.com/stacklok/spatial-anchors/internal/tracking"
)

// ErrAlreadyStarted is returned by Start on a running session
var ErrAlreadyStarted = errors.New("session already started")

// Option configures a Session
type Option func(*Session)

// WithRestoreDelay sets the settling delay before persisted anchors are restored
func WithRestoreDelay(d time.Duration) Option {
	return func(s *Session) {
		s.restoreDelay = d
	}
}

// WithRoomCaptureDelay sets the delay before checking for detected planes. Zero disables the check.
func WithRoomCaptureDelay(d time.Duration) Option {
	return func(s *Session) {
		s.roomCaptureDelay = d
	}
}

// WithSurfaces sets the source of plane and mesh detections
func WithSurfaces(src tracking.SurfaceSource) Option {
	return func(s *Session) {
		s.surfaceSource = src
	}
}

// WithVisualizer sets the collaborator shown each anchor that joins the live set
func WithVisualizer(v anchors.Visualizer) Option {
	return func(s *Session) {
		s.visualizer = v
	}
}

// WithMarkers sets the factory of hit-test markers
func WithMarkers(m hittest.MarkerFactory) Option {
	return func(s *Session) {
		s.markers = m
	}
}

// WithRenderer sets the last frame stage
func WithRenderer(r frame.Renderer) Option {
	return func(s *Session) {
		s.renderer = r
	}
}

// WithAnchorMetrics records anchor lifecycle metrics
func WithAnchorMetrics(m *telemetry.AnchorMetrics) Option {
	return func(s *Session) {
		s.anchorMetrics = m
	}
}

// WithFrameMetrics records frame metrics
func WithFrameMetrics(m *telemetry.FrameMetrics) Option {
	return func(s *Session) {
		s.frameMetrics = m
	}
}

// Session is the context object of one AR session
type Session struct {
	id   string
	loop *loop.Loop

	tracker       tracking.Tracker
	surfaceSource tracking.SurfaceSource

	restoreDelay     time.Duration
	roomCaptureDelay time.Duration

	visualizer    anchors.Visualizer
	markers       hittest.MarkerFactory
	renderer      frame.Renderer
	anchorMetrics *telemetry.AnchorMetrics
	frameMetrics  *telemetry.FrameMetrics

	hitTest *hittest.Tracker
	anchors *anchors.Coordinator
	board   *surfaces.Board
	ui      *surfaces.UIGroup
	frames  *frame.Synchronizer

	running bool
	cancel  context.CancelFunc
	timers  []func() bool
}

// New creates a session that is not yet started
func New(l *loop.Loop, tracker tracking.Tracker, opts ...Option) *Session {
	s := &Session{
		id:               uuid.NewString(),
		loop:             l,
		tracker:          tracker,
		restoreDelay:     time.Second,
		roomCaptureDelay: 5 * time.Second,
		visualizer:       LogVisualizer{},
		markers:          LogMarkers{},
		board:            surfaces.NewBoard(),
		ui:               surfaces.NewUIGroup(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.hitTest = hittest.New(l, tracker, s.markers)
	s.anchors = anchors.New(l, tracker, s.visualizer, anchors.WithMetrics(s.anchorMetrics))

	frameOpts := []frame.Option{
		frame.WithLabels(s.board),
		frame.WithUI(s.ui),
		frame.WithMetrics(s.frameMetrics),
	}
	if s.renderer != nil {
		frameOpts = append(frameOpts, frame.WithRenderer(s.renderer))
	}
	s.frames = frame.NewSynchronizer(s.anchors, tracker, frameOpts...)

	if s.surfaceSource != nil {
		s.surfaceSource.Observe(s.board)
	}
	return s
}

// ID returns the random identifier of the session
func (s *Session) ID() string {
	return s.id
}

// Running reports whether Start was called without a matching End
func (s *Session) Running() bool {
	return s.running
}

// Start begins the session: persisted anchors are restored after the restore
// delay, and a room capture is requested after the room capture delay if no
// plane was detected by then
func (s *Session) Start(ctx context.Context) error {
	if s.running {
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel

	slog.Info("Session started",
		"session", s.id,
		"restore_delay", s.restoreDelay,
		"room_capture_delay", s.roomCaptureDelay)

	s.timers = append(s.timers, s.anchors.ScheduleRestore(ctx, s.restoreDelay))

	if s.surfaceSource != nil && s.roomCaptureDelay > 0 {
		s.timers = append(s.timers, s.loop.After(s.roomCaptureDelay, func() {
			s.checkRoomCapture(ctx)
		}))
	}
	return nil
}

func (s *Session) checkRoomCapture(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	planes := s.surfaceSource.PlaneCount()
	if planes > 0 {
		slog.Debug("Planes detected, room capture not needed", "planes", planes)
		return
	}

	slog.Info("No planes detected, initiating room capture", "session", s.id)
	loop.Await(s.loop, ctx,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.surfaceSource.InitiateRoomCapture(ctx)
		},
		func(_ struct{}, err error) {
			if err != nil {
				slog.Warn("Room capture failed", "session", s.id, "error", err)
			}
		},
	)
}

// End stops the session. Pending timers are cancelled and every hit-test target is released.
func (s *Session) End() {
	if !s.running {
		return
	}
	for _, cancel := range s.timers {
		cancel()
	}
	s.timers = nil
	s.cancel()
	s.hitTest.ReleaseAll()
	s.running = false
	slog.Info("Session ended", "session", s.id, "anchors", s.anchors.Len())
}

// ControllerConnected requests a hit-test target for the controller
func (s *Session) ControllerConnected(ctx context.Context, handedness tracking.Handedness) error {
	if err := s.hitTest.OnControllerConnected(ctx, handedness); err != nil {
		slog.Warn("Controller connect ignored", "handedness", handedness, "error", err)
		return err
	}
	return nil
}

// ControllerDisconnected releases the target of the controller
func (s *Session) ControllerDisconnected(handedness tracking.Handedness) {
	s.hitTest.OnControllerDisconnected(handedness)
}

// SelectStart requests an anchor where the controller ray hits the scene. It
// reports whether a request was recorded, which needs an Active target.
func (s *Session) SelectStart(handedness tracking.Handedness) bool {
	target, ok := s.hitTest.Target(handedness)
	if !ok {
		slog.Debug("Select ignored, no active hit-test target",
			"handedness", handedness,
			"state", s.hitTest.State(handedness))
		return false
	}
	s.anchors.RequestAnchorAt(target.Pose)
	return true
}

// SqueezeStart deletes every live anchor
func (s *Session) SqueezeStart(handedness tracking.Handedness) {
	slog.Debug("Squeeze", "handedness", handedness)
	s.anchors.DeleteAll()
}

// Tick runs one frame
func (s *Session) Tick(ctx context.Context, f frame.Frame) {
	s.frames.Tick(ctx, f)
}

// Anchors returns the live anchors in the order they joined
func (s *Session) Anchors() []anchors.Live {
	return s.anchors.Anchors()
}

// HitTestState returns the hit-test slot state of a controller
func (s *Session) HitTestState(handedness tracking.Handedness) hittest.State {
	return s.hitTest.State(handedness)
}

// Labels returns the semantic labels placed on detected meshes
func (s *Session) Labels() []surfaces.Label {
	return s.board.Labels()
}

// UIPose returns the pose of the camera-relative UI group
func (s *Session) UIPose() tracking.Pose {
	return s.ui.Pose()
}
