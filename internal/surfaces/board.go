// Package surfaces keeps track of detected real-world surfaces and the
// semantic labels shown on them.
package surfaces

import (
	"log/slog"

	"github.com/stacklok/spatial-anchors/internal/tracking"
)

// Label is a semantic label floating on top of a detected mesh
type Label struct {
	MeshID string
	Text   string

	// Position is the label position in the session reference space
	Position tracking.Vec3

	// Orientation turns the label towards the viewer. It is updated every frame.
	Orientation tracking.Quat
}

// Board records detected planes and meshes. It implements tracking.SurfaceObserver
// and must only be used from the session loop.
type Board struct {
	planes map[string]tracking.Plane
	labels map[string]*Label
	order  []string
}

var _ tracking.SurfaceObserver = (*Board)(nil)

// NewBoard creates an empty board
func NewBoard() *Board {
	return &Board{
		planes: make(map[string]tracking.Plane),
		labels: make(map[string]*Label),
	}
}

// PlaneAdded records a detected plane
func (b *Board) PlaneAdded(plane tracking.Plane) {
	if _, ok := b.planes[plane.ID]; ok {
		return
	}
	b.planes[plane.ID] = plane
	slog.Debug("Plane detected", "id", plane.ID, "orientation", plane.Orientation)
}

// MeshAdded creates the semantic label of a detected mesh. The label sits on
// the top of the mesh bounding box.
func (b *Board) MeshAdded(mesh tracking.Mesh) {
	if _, ok := b.labels[mesh.ID]; ok {
		return
	}
	position := mesh.Pose.Position.Add(tracking.Vec3{Y: mesh.Bounds.Max.Y})
	b.labels[mesh.ID] = &Label{
		MeshID:      mesh.ID,
		Text:        mesh.SemanticLabel,
		Position:    position,
		Orientation: tracking.IdentityQuat,
	}
	b.order = append(b.order, mesh.ID)
	slog.Debug("Mesh detected", "id", mesh.ID, "label", mesh.SemanticLabel, "position", position)
}

// FaceCamera turns every label towards the viewer
func (b *Board) FaceCamera(viewer tracking.Pose) {
	for _, id := range b.order {
		l := b.labels[id]
		l.Orientation = tracking.YawTowards(l.Position, viewer.Position)
	}
}

// PlaneCount returns the number of detected planes
func (b *Board) PlaneCount() int {
	return len(b.planes)
}

// Labels returns a copy of the labels in detection order
func (b *Board) Labels() []Label {
	out := make([]Label, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, *b.labels[id])
	}
	return out
}
