package tracking

import (
	"fmt"
	"math"
)

// Vec3 is a position or direction in meters
type Vec3 struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	Z float64 `yaml:"z" json:"z"`
}

// Quat is a unit quaternion orientation
type Quat struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	Z float64 `yaml:"z" json:"z"`
	W float64 `yaml:"w" json:"w"`
}

// Pose is a position plus orientation
type Pose struct {
	Position    Vec3 `yaml:"position"`
	Orientation Quat `yaml:"orientation"`
}

// IdentityQuat is the orientation with no rotation
var IdentityQuat = Quat{W: 1}

// NewPose returns a pose at the given position with identity orientation
func NewPose(x, y, z float64) Pose {
	return Pose{Position: Vec3{X: x, Y: y, Z: z}, Orientation: IdentityQuat}
}

// Add returns v + o
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Sub returns v - o
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// String formats the vector for logs
func (v Vec3) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z)
}

// YawTowards returns the rotation about the Y axis that turns the +Z axis at
// from to face to. When the two points share X and Z the identity is returned.
func YawTowards(from, to Vec3) Quat {
	d := to.Sub(from)
	if d.X == 0 && d.Z == 0 {
		return IdentityQuat
	}
	yaw := math.Atan2(d.X, d.Z)
	return Quat{Y: math.Sin(yaw / 2), W: math.Cos(yaw / 2)}
}
