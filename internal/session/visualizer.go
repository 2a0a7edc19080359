package session

import (
	"log/slog"

	"github.com/stacklok/spatial-anchors/internal/anchors"
	"github.com/stacklok/spatial-anchors/internal/hittest"
	"github.com/stacklok/spatial-anchors/internal/tracking"
)

// LogVisualizer shows anchors by logging them
type LogVisualizer struct{}

var _ anchors.Visualizer = LogVisualizer{}

// ShowAnchor logs the anchor
func (LogVisualizer) ShowAnchor(anchor *tracking.Anchor, recovered bool) {
	slog.Info("Anchor visualized",
		"anchor", anchor.ID,
		"persistent", anchor.Persistent,
		"recovered", recovered,
		"position", anchor.Pose.Position.String())
}

// LogMarkers is a marker factory whose markers are the target IDs
type LogMarkers struct{}

var _ hittest.MarkerFactory = LogMarkers{}

// AttachMarker returns the target ID as marker
func (LogMarkers) AttachMarker(target *tracking.HitTestTarget) hittest.Marker {
	slog.Debug("Hit-test marker attached", "target", target.ID, "handedness", target.Handedness)
	return target.ID
}

// ReleaseMarker logs the release
func (LogMarkers) ReleaseMarker(marker hittest.Marker) {
	slog.Debug("Hit-test marker released", "marker", marker)
}
