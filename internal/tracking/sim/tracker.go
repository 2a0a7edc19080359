// Package sim provides an in-process tracking subsystem for running sessions
// without an AR runtime.
//
// Hit-test targets follow scripted poses set with SetHitPose. Anchors are
// assigned random IDs, and persistent anchors are written to an AnchorStore
// so a later session can restore them. Surfaces are queued with AddPlane and
// AddMesh and reported to the observer on the next Update, the same way a
// runtime reports detections during its frame callback.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"github.com/stacklok/spatial-anchors/internal/tracking"
)

// Option configures a Tracker
type Option func(*Tracker)

// WithLatency delays every creation and restoration by d
func WithLatency(d time.Duration) Option {
	return func(t *Tracker) {
		t.latency = d
	}
}

// WithClock sets the clock latency is measured with
func WithClock(c clock.Clock) Option {
	return func(t *Tracker) {
		t.clock = c
	}
}

// WithStore sets the store persistent anchors are kept in
func WithStore(s AnchorStore) Option {
	return func(t *Tracker) {
		t.store = s
	}
}

// WithRoom sets the surfaces reported after a room capture is initiated
func WithRoom(planes []tracking.Plane, meshes []tracking.Mesh) Option {
	return func(t *Tracker) {
		t.roomPlanes = planes
		t.roomMeshes = meshes
	}
}

// Tracker is a simulated tracking subsystem. It is safe for concurrent use.
type Tracker struct {
	clock   clock.Clock
	latency time.Duration
	store   AnchorStore

	roomPlanes []tracking.Plane
	roomMeshes []tracking.Mesh

	mu           sync.Mutex
	hitPoses     map[tracking.Handedness]tracking.Pose
	targets      map[string]*tracking.HitTestTarget
	anchors      map[string]*tracking.Anchor
	queuedPlanes []tracking.Plane
	queuedMeshes []tracking.Mesh
	observer     tracking.SurfaceObserver
	planes       int
	captures     int
	failures     int
	updates      uint64
}

var (
	_ tracking.Tracker       = (*Tracker)(nil)
	_ tracking.SurfaceSource = (*Tracker)(nil)
)

// New creates a simulated tracker with an in-memory store
func New(opts ...Option) *Tracker {
	t := &Tracker{
		clock:    clock.RealClock{},
		store:    NewMemoryStore(),
		hitPoses: make(map[tracking.Handedness]tracking.Pose),
		targets:  make(map[string]*tracking.HitTestTarget),
		anchors:  make(map[string]*tracking.Anchor),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SetHitPose sets where the ray of a controller hits the scene. Targets pick it up on the next Update.
func (t *Tracker) SetHitPose(handedness tracking.Handedness, pose tracking.Pose) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hitPoses[handedness] = pose
}

// FailNext makes the next n creations fail with tracking.ErrCreationFailed
func (t *Tracker) FailNext(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures = n
}

// AddPlane queues a plane detection
func (t *Tracker) AddPlane(plane tracking.Plane) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queuedPlanes = append(t.queuedPlanes, plane)
}

// AddMesh queues a mesh detection
func (t *Tracker) AddMesh(mesh tracking.Mesh) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queuedMeshes = append(t.queuedMeshes, mesh)
}

func (t *Tracker) wait(ctx context.Context) error {
	if t.latency <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.clock.After(t.latency):
		return nil
	}
}

// takeFailure consumes one scripted failure
func (t *Tracker) takeFailure() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failures == 0 {
		return false
	}
	t.failures--
	return true
}

// CreateHitTestTarget creates a target at the current hit pose of the controller
func (t *Tracker) CreateHitTestTarget(ctx context.Context, handedness tracking.Handedness) (*tracking.HitTestTarget, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	if t.takeFailure() {
		return nil, fmt.Errorf("%w: hit-test source for %s unavailable", tracking.ErrCreationFailed, handedness)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	target := &tracking.HitTestTarget{
		ID:         uuid.NewString(),
		Handedness: handedness,
		Pose:       t.hitPose(handedness),
	}
	t.targets[target.ID] = target
	return target, nil
}

func (t *Tracker) hitPose(handedness tracking.Handedness) tracking.Pose {
	if pose, ok := t.hitPoses[handedness]; ok {
		return pose
	}
	return tracking.Pose{Orientation: tracking.IdentityQuat}
}

// DeleteHitTestTarget releases a target
func (t *Tracker) DeleteHitTestTarget(target *tracking.HitTestTarget) {
	if target == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.targets, target.ID)
}

// Targets returns the number of live hit-test targets
func (t *Tracker) Targets() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.targets)
}

// CreateAnchor creates an anchor and stores it when persistent
func (t *Tracker) CreateAnchor(ctx context.Context, pose tracking.Pose, persistent bool) (*tracking.Anchor, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	if t.takeFailure() {
		return nil, fmt.Errorf("%w: anchor at %s rejected", tracking.ErrCreationFailed, pose.Position)
	}

	anchor := &tracking.Anchor{
		ID:         uuid.NewString(),
		Pose:       pose,
		Persistent: persistent,
	}
	if persistent {
		if err := t.store.Put(ctx, *anchor); err != nil {
			return nil, fmt.Errorf("%w: %w", tracking.ErrCreationFailed, err)
		}
	}

	t.mu.Lock()
	t.anchors[anchor.ID] = anchor
	t.mu.Unlock()
	return anchor, nil
}

// DeleteAnchor destroys an anchor and forgets it in the store
func (t *Tracker) DeleteAnchor(anchor *tracking.Anchor) {
	if anchor == nil {
		return
	}
	t.mu.Lock()
	delete(t.anchors, anchor.ID)
	t.mu.Unlock()

	if !anchor.Persistent {
		return
	}
	if err := t.store.Remove(context.Background(), anchor.ID); err != nil {
		slog.Warn("Failed to forget persistent anchor", "anchor", anchor.ID, "error", err)
	}
}

// RestorePersistentAnchors returns every stored anchor
func (t *Tracker) RestorePersistentAnchors(ctx context.Context) ([]*tracking.Anchor, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	stored, err := t.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load persistent anchors: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	restored := make([]*tracking.Anchor, 0, len(stored))
	for i := range stored {
		anchor := stored[i]
		anchor.Persistent = true
		t.anchors[anchor.ID] = &anchor
		restored = append(restored, &anchor)
	}
	return restored, nil
}

// Anchors returns the number of anchors created or restored and not deleted
func (t *Tracker) Anchors() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.anchors)
}

// Update refreshes target poses and reports queued surfaces to the observer
func (t *Tracker) Update() {
	t.mu.Lock()
	t.updates++
	for _, target := range t.targets {
		target.Pose = t.hitPose(target.Handedness)
	}
	planes, meshes := t.queuedPlanes, t.queuedMeshes
	t.queuedPlanes, t.queuedMeshes = nil, nil
	t.planes += len(planes)
	observer := t.observer
	t.mu.Unlock()

	if observer == nil {
		return
	}
	for _, p := range planes {
		observer.PlaneAdded(p)
	}
	for _, m := range meshes {
		observer.MeshAdded(m)
	}
}

// Updates returns how many times Update ran
func (t *Tracker) Updates() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.updates
}

// Observe registers the surface observer
func (t *Tracker) Observe(observer tracking.SurfaceObserver) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observer = observer
}

// PlaneCount returns the number of planes reported so far
func (t *Tracker) PlaneCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.planes
}

// InitiateRoomCapture queues the configured room surfaces
func (t *Tracker) InitiateRoomCapture(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.captures++
	t.queuedPlanes = append(t.queuedPlanes, t.roomPlanes...)
	t.queuedMeshes = append(t.queuedMeshes, t.roomMeshes...)
	slog.Info("Room capture initiated", "planes", len(t.roomPlanes), "meshes", len(t.roomMeshes))
	return nil
}

// RoomCaptures returns how many room captures were initiated
func (t *Tracker) RoomCaptures() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.captures
}
