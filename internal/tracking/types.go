package tracking

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Handedness identifies which physical controller an event or target belongs to
type Handedness string

const (
	// Left is the left-hand controller
	Left Handedness = "left"

	// Right is the right-hand controller
	Right Handedness = "right"
)

// Handednesses lists every supported handedness in a stable order
var Handednesses = []Handedness{Left, Right}

// ParseHandedness converts a string into a Handedness
func ParseHandedness(s string) (Handedness, error) {
	switch Handedness(strings.ToLower(strings.TrimSpace(s))) {
	case Left:
		return Left, nil
	case Right:
		return Right, nil
	default:
		return "", fmt.Errorf("unknown handedness %q: must be %q or %q", s, Left, Right)
	}
}

// String returns the handedness as a string
func (h Handedness) String() string {
	return string(h)
}

// ErrCreationFailed is returned by a tracking subsystem that rejected the
// creation of an anchor or hit-test target
var ErrCreationFailed = errors.New("tracking creation failed")

// Anchor is a tracked real-world pose. Its pose and persistence are fixed at creation.
type Anchor struct {
	// ID is the opaque identifier assigned by the tracking subsystem
	ID string `yaml:"id"`

	// Pose is the anchor pose in the session reference space
	Pose Pose `yaml:"pose"`

	// Persistent reports whether the tracking subsystem stores the anchor beyond the session
	Persistent bool `yaml:"persistent"`
}

// HitTestTarget is a live estimate of where a controller ray intersects
// detected real-world geometry. Pose is refreshed by the tracking subsystem
// during Update.
type HitTestTarget struct {
	ID         string
	Handedness Handedness
	Pose       Pose
}

// Plane is a detected planar surface
type Plane struct {
	ID          string
	Orientation string
	Pose        Pose
}

// Mesh is a detected surface mesh carrying a semantic label such as "table" or "wall"
type Mesh struct {
	ID            string
	SemanticLabel string
	Pose          Pose
	Bounds        Bounds
}

// Bounds is an axis-aligned bounding box in the mesh local space
type Bounds struct {
	Min Vec3 `yaml:"min"`
	Max Vec3 `yaml:"max"`
}

// HitTester creates and releases per-controller hit-test targets
type HitTester interface {
	// CreateHitTestTarget requests a hit-test target driven by the controller space of the given handedness
	CreateHitTestTarget(ctx context.Context, handedness Handedness) (*HitTestTarget, error)
	// DeleteHitTestTarget releases a target. Releasing an unknown target is a no-op.
	DeleteHitTestTarget(target *HitTestTarget)
}

// AnchorProvider creates, deletes and restores anchors
type AnchorProvider interface {
	// CreateAnchor creates an anchor at the given pose
	CreateAnchor(ctx context.Context, pose Pose, persistent bool) (*Anchor, error)
	// DeleteAnchor destroys an anchor. This is terminal; persistent anchors are forgotten.
	DeleteAnchor(anchor *Anchor)
	// RestorePersistentAnchors returns every anchor persisted by earlier sessions
	RestorePersistentAnchors(ctx context.Context) ([]*Anchor, error)
}

// Tracker is the full tracking subsystem capability set consumed by a session
//
//go:generate mockgen -destination=mocks/mock_tracker.go -package=mocks github.com/stacklok/spatial-anchors/internal/tracking Tracker,SurfaceSource
type Tracker interface {
	HitTester
	AnchorProvider
	// Update advances internal tracking state. Called once per frame.
	Update()
}

// SurfaceObserver receives surfaces detected by the tracking subsystem
type SurfaceObserver interface {
	PlaneAdded(plane Plane)
	MeshAdded(mesh Mesh)
}

// SurfaceSource reports detected surfaces and can ask the runtime to scan the room
type SurfaceSource interface {
	// Observe registers the observer notified during Update for new surfaces
	Observe(observer SurfaceObserver)
	// PlaneCount returns the number of planes detected so far
	PlaneCount() int
	// InitiateRoomCapture asks the runtime to start a room capture flow
	InitiateRoomCapture(ctx context.Context) error
}
