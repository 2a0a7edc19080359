// Package hittest owns the per-controller hit-test targets of a session.
//
// Each handedness has one slot that moves through Absent → Pending → Active →
// Absent. Target creation is asynchronous; a controller that disconnects while
// its target is still Pending moves the slot straight back to Absent, and the
// target that resolves afterwards is released instead of stored.
//
// All methods must be called on the session loop.
package hittest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stacklok/spatial-anchors/internal/loop"
	"github.com/stacklok/spatial-anchors/internal/tracking"
)

// State is the lifecycle state of a handedness slot
type State string

const (
	// StateAbsent means no target exists or is being created
	StateAbsent State = "Absent"

	// StatePending means a target has been requested but has not resolved
	StatePending State = "Pending"

	// StateActive means the target is live and carries a marker
	StateActive State = "Active"
)

// ErrTargetExists is returned when a controller connects while its slot is not Absent
var ErrTargetExists = errors.New("hit-test target already exists for handedness")

// Marker is the opaque visual handle owned by a hit-test target
type Marker any

// MarkerFactory creates and releases hit-test markers
type MarkerFactory interface {
	// AttachMarker creates the marker shown at the target pose
	AttachMarker(target *tracking.HitTestTarget) Marker
	// ReleaseMarker destroys a marker created by AttachMarker
	ReleaseMarker(marker Marker)
}

type slot struct {
	state      State
	generation uint64
	target     *tracking.HitTestTarget
	marker     Marker
}

// Tracker holds at most one hit-test target per handedness
type Tracker struct {
	loop      *loop.Loop
	hitTester tracking.HitTester
	markers   MarkerFactory

	slots      map[tracking.Handedness]*slot
	generation uint64
}

// New creates a tracker with every slot Absent
func New(l *loop.Loop, hitTester tracking.HitTester, markers MarkerFactory) *Tracker {
	return &Tracker{
		loop:      l,
		hitTester: hitTester,
		markers:   markers,
		slots:     make(map[tracking.Handedness]*slot),
	}
}

// OnControllerConnected requests a hit-test target for the controller. The
// target becomes Active once the tracking subsystem resolves it.
func (t *Tracker) OnControllerConnected(ctx context.Context, handedness tracking.Handedness) error {
	if _, err := tracking.ParseHandedness(string(handedness)); err != nil {
		return err
	}
	if s, ok := t.slots[handedness]; ok && s.state != StateAbsent {
		return fmt.Errorf("%w: %s is %s", ErrTargetExists, handedness, s.state)
	}

	t.generation++
	generation := t.generation
	t.slots[handedness] = &slot{state: StatePending, generation: generation}

	slog.Debug("Requesting hit-test target", "handedness", handedness, "generation", generation)

	loop.Await(t.loop, ctx,
		func(ctx context.Context) (*tracking.HitTestTarget, error) {
			return t.hitTester.CreateHitTestTarget(ctx, handedness)
		},
		func(target *tracking.HitTestTarget, err error) {
			t.resolve(handedness, generation, target, err)
		},
	)
	return nil
}

// resolve applies the result of a target creation, releasing it when the slot moved on
func (t *Tracker) resolve(handedness tracking.Handedness, generation uint64, target *tracking.HitTestTarget, err error) {
	current, ok := t.slots[handedness]
	live := ok && current.state == StatePending && current.generation == generation

	if err != nil {
		if live {
			delete(t.slots, handedness)
		}
		slog.Warn("Hit-test target creation failed",
			"handedness", handedness,
			"error", err)
		return
	}
	if target == nil {
		if live {
			delete(t.slots, handedness)
		}
		slog.Warn("Tracking subsystem resolved an empty hit-test target", "handedness", handedness)
		return
	}

	if !live {
		slog.Debug("Releasing hit-test target resolved after disconnect",
			"handedness", handedness,
			"target", target.ID)
		t.hitTester.DeleteHitTestTarget(target)
		return
	}

	current.target = target
	current.marker = t.markers.AttachMarker(target)
	current.state = StateActive
	slog.Info("Hit-test target active", "handedness", handedness, "target", target.ID)
}

// OnControllerDisconnected deletes the controller's target, or cancels a pending
// creation. It is a no-op when the slot is Absent.
func (t *Tracker) OnControllerDisconnected(handedness tracking.Handedness) {
	s, ok := t.slots[handedness]
	if !ok {
		return
	}
	delete(t.slots, handedness)

	switch s.state {
	case StatePending:
		slog.Debug("Controller disconnected before hit-test target resolved", "handedness", handedness)
	case StateActive:
		t.hitTester.DeleteHitTestTarget(s.target)
		t.markers.ReleaseMarker(s.marker)
		slog.Info("Hit-test target deleted", "handedness", handedness, "target", s.target.ID)
	}
}

// State returns the slot state for a handedness
func (t *Tracker) State(handedness tracking.Handedness) State {
	if s, ok := t.slots[handedness]; ok {
		return s.state
	}
	return StateAbsent
}

// Target returns the Active target for a handedness
func (t *Tracker) Target(handedness tracking.Handedness) (*tracking.HitTestTarget, bool) {
	s, ok := t.slots[handedness]
	if !ok || s.state != StateActive {
		return nil, false
	}
	return s.target, true
}

// ReleaseAll disconnects every handedness
func (t *Tracker) ReleaseAll() {
	for _, h := range tracking.Handednesses {
		t.OnControllerDisconnected(h)
	}
}
