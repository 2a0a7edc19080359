package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/stacklok/spatial-anchors/internal/session"
	"github.com/stacklok/spatial-anchors/internal/tracking"
	"github.com/stacklok/spatial-anchors/internal/tracking/sim"
	"github.com/stacklok/spatial-anchors/internal/validators"
)

// Action is a scripted input event
type Action string

// Scripted actions
const (
	ActionAim        Action = "aim"
	ActionConnect    Action = "connect"
	ActionDisconnect Action = "disconnect"
	ActionSelect     Action = "select"
	ActionSqueeze    Action = "squeeze"
	ActionPlane      Action = "plane"
	ActionMesh       Action = "mesh"
	ActionEnd        Action = "end"
)

// Script is a simulated session: controller input and detections keyed by frame number
type Script struct {
	// Frames stops the session after this many frames. Zero runs until interrupted.
	Frames uint64 `yaml:"frames,omitempty"`

	// Viewer is the head position. Defaults to standing eye height at the origin.
	Viewer *tracking.Vec3 `yaml:"viewer,omitempty"`

	// Room is what a room capture discovers
	Room Room `yaml:"room,omitempty"`

	Events []Event `yaml:"events"`
}

// Room lists the surfaces reported after a room capture
type Room struct {
	Planes []Surface `yaml:"planes,omitempty"`
	Meshes []Surface `yaml:"meshes,omitempty"`
}

// Surface describes a scripted plane or mesh
type Surface struct {
	ID          string        `yaml:"id"`
	Label       string        `yaml:"label,omitempty"`
	Orientation string        `yaml:"orientation,omitempty"`
	Position    tracking.Vec3 `yaml:"position"`
	Height      float64       `yaml:"height,omitempty"`
}

// Event is one scripted input
type Event struct {
	Frame    uint64              `yaml:"frame"`
	Action   Action              `yaml:"action"`
	Hand     tracking.Handedness `yaml:"hand,omitempty"`
	Position *tracking.Vec3      `yaml:"position,omitempty"`
	Surface  *Surface            `yaml:"surface,omitempty"`
}

// LoadScript reads and validates a script file
func LoadScript(path string) (*Script, error) {
	// #nosec G304 -- path is provided by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return ParseScript(data)
}

// ParseScript decodes and validates script content
func ParseScript(data []byte) (*Script, error) {
	if err := validators.ValidateScript(data); err != nil {
		return nil, fmt.Errorf("invalid script: %w", err)
	}

	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	if err := script.validate(); err != nil {
		return nil, fmt.Errorf("invalid script: %w", err)
	}
	return &script, nil
}

// validate checks the rules the schema cannot express and normalizes handedness
func (s *Script) validate() error {
	var errs []error
	for i, ev := range s.Events {
		switch ev.Action {
		case ActionAim:
			if ev.Position == nil {
				errs = append(errs, fmt.Errorf("events[%d]: aim needs a position", i))
			}
			fallthrough
		case ActionConnect, ActionDisconnect, ActionSelect:
			hand, err := tracking.ParseHandedness(string(ev.Hand))
			if err != nil {
				errs = append(errs, fmt.Errorf("events[%d]: %w", i, err))
			}
			s.Events[i].Hand = hand
		case ActionPlane, ActionMesh:
			if ev.Surface == nil || ev.Surface.ID == "" {
				errs = append(errs, fmt.Errorf("events[%d]: %s needs a surface with an id", i, ev.Action))
			}
		}
	}
	return errors.Join(errs...)
}

// ViewerPose returns the head pose used for every frame
func (s *Script) ViewerPose() tracking.Pose {
	if s.Viewer == nil {
		return tracking.NewPose(0, 1.6, 0)
	}
	return tracking.Pose{Position: *s.Viewer, Orientation: tracking.IdentityQuat}
}

// SimOptions returns the tracker options describing the scripted room
func (s *Script) SimOptions() []sim.Option {
	planes := make([]tracking.Plane, 0, len(s.Room.Planes))
	for _, p := range s.Room.Planes {
		planes = append(planes, p.plane())
	}
	meshes := make([]tracking.Mesh, 0, len(s.Room.Meshes))
	for _, m := range s.Room.Meshes {
		meshes = append(meshes, m.mesh())
	}
	return []sim.Option{sim.WithRoom(planes, meshes)}
}

func (s Surface) pose() tracking.Pose {
	return tracking.Pose{Position: s.Position, Orientation: tracking.IdentityQuat}
}

func (s Surface) plane() tracking.Plane {
	return tracking.Plane{ID: s.ID, Orientation: s.Orientation, Pose: s.pose()}
}

func (s Surface) mesh() tracking.Mesh {
	return tracking.Mesh{
		ID:            s.ID,
		SemanticLabel: s.Label,
		Pose:          s.pose(),
		Bounds:        tracking.Bounds{Max: tracking.Vec3{Y: s.Height}},
	}
}

// Driver feeds scripted events into a session. It must be used on the session loop.
type Driver struct {
	session *session.Session
	tracker *sim.Tracker
	events  map[uint64][]Event
}

// NewDriver indexes the script events by frame, keeping file order within a frame
func NewDriver(script *Script, sess *session.Session, tracker *sim.Tracker) *Driver {
	events := make(map[uint64][]Event)
	for _, ev := range script.Events {
		events[ev.Frame] = append(events[ev.Frame], ev)
	}
	return &Driver{session: sess, tracker: tracker, events: events}
}

// Apply delivers the events of a frame. It reports whether the script ended the session.
func (d *Driver) Apply(ctx context.Context, frame uint64) (ended bool) {
	for _, ev := range d.events[frame] {
		slog.Debug("Scripted event", "frame", frame, "action", ev.Action, "hand", ev.Hand)
		switch ev.Action {
		case ActionAim:
			d.tracker.SetHitPose(ev.Hand, tracking.Pose{Position: *ev.Position, Orientation: tracking.IdentityQuat})
		case ActionConnect:
			_ = d.session.ControllerConnected(ctx, ev.Hand)
		case ActionDisconnect:
			d.session.ControllerDisconnected(ev.Hand)
		case ActionSelect:
			d.session.SelectStart(ev.Hand)
		case ActionSqueeze:
			d.session.SqueezeStart(ev.Hand)
		case ActionPlane:
			d.tracker.AddPlane(ev.Surface.plane())
		case ActionMesh:
			d.tracker.AddMesh(ev.Surface.mesh())
		case ActionEnd:
			ended = true
		}
	}
	return ended
}
