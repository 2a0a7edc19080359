package surfaces

import "github.com/stacklok/spatial-anchors/internal/tracking"

// UIGroup is the camera-relative toolbar. It takes the viewer pose every frame.
type UIGroup struct {
	pose    tracking.Pose
	updates uint64
}

// NewUIGroup creates a UI group at the origin
func NewUIGroup() *UIGroup {
	return &UIGroup{pose: tracking.Pose{Orientation: tracking.IdentityQuat}}
}

// Follow moves the group to the viewer pose
func (u *UIGroup) Follow(viewer tracking.Pose) {
	u.pose = viewer
	u.updates++
}

// Pose returns the current group pose
func (u *UIGroup) Pose() tracking.Pose {
	return u.pose
}

// Updates returns how many frames moved the group
func (u *UIGroup) Updates() uint64 {
	return u.updates
}
