// Package camera implements the perspective camera used to view and pick a
// warehouse scene, and the orbit controls that move it.
//
// A [Camera] is a pose (position, target, up) plus a vertical field of view
// and aspect ratio. It converts normalized device coordinates into world
// rays for picking ([Camera.RayFromNDC]) and world points into normalized
// device coordinates ([Camera.Project]).
//
// [Controls] accumulate drag and wheel input between frames and apply it
// in [Controls.Update], once per frame, orbiting around the target.
package camera

import (
	"math"

	"github.com/matzehuels/depotview/pkg/errors"
	"github.com/matzehuels/depotview/pkg/geom"
)

// Defaults for the scene camera.
const (
	DefaultFOV  = 75.0 // vertical field of view in degrees
	DefaultNear = 0.1
	DefaultFar  = 1000.0
)

// DefaultPosition is where the camera starts, looking down at the origin.
var DefaultPosition = geom.V3(0, 32, 20)

// Camera is a perspective camera.
type Camera struct {
	Position geom.Vec3 `json:"position"`
	Target   geom.Vec3 `json:"target"`
	Up       geom.Vec3 `json:"up"`
	FOV      float64   `json:"fov"`
	Aspect   float64   `json:"aspect"`
	Near     float64   `json:"near"`
	Far      float64   `json:"far"`
}

// New returns a camera at DefaultPosition looking at the origin with the
// given aspect ratio (width / height).
func New(aspect float64) *Camera {
	return &Camera{
		Position: DefaultPosition,
		Target:   geom.Zero,
		Up:       geom.UnitY,
		FOV:      DefaultFOV,
		Aspect:   aspect,
		Near:     DefaultNear,
		Far:      DefaultFar,
	}
}

// Validate checks that the camera can produce rays.
func (c *Camera) Validate() error {
	switch {
	case !(c.FOV > 0 && c.FOV < 180):
		return errors.Config("camera fov must be in (0, 180), got %v", c.FOV)
	case !(c.Aspect > 0) || math.IsInf(c.Aspect, 0):
		return errors.Config("camera aspect must be positive, got %v", c.Aspect)
	case !(c.Near > 0) || !(c.Far > c.Near):
		return errors.Config("camera clip range invalid: near %v far %v", c.Near, c.Far)
	case c.Position == c.Target:
		return errors.Config("camera position equals target")
	}
	return nil
}

// LookAt points the camera at target.
func (c *Camera) LookAt(target geom.Vec3) {
	c.Target = target
}

// SetAspect updates the aspect ratio after a viewport resize.
func (c *Camera) SetAspect(width, height float64) {
	if width > 0 && height > 0 {
		c.Aspect = width / height
	}
}

// Distance returns the distance from the camera to its target.
func (c *Camera) Distance() float64 {
	return c.Position.Dist(c.Target)
}

// Basis returns the camera's right, up and forward unit vectors in world
// space. When the view direction is parallel to Up, world Z is used to
// complete the basis.
func (c *Camera) Basis() (right, up, forward geom.Vec3) {
	forward = c.Target.Sub(c.Position).Normal()
	worldUp := c.Up
	if worldUp.IsZero() {
		worldUp = geom.UnitY
	}
	right = forward.Cross(worldUp).Normal()
	if right.IsZero() {
		right = forward.Cross(geom.UnitZ).Normal()
	}
	up = right.Cross(forward)
	return right, up, forward
}

func (c *Camera) tanHalfFOV() float64 {
	return math.Tan(c.FOV * math.Pi / 360)
}

// RayFromNDC returns the world-space ray from the camera through the point
// (x, y) in normalized device coordinates, where both axes span [-1, 1]
// and +y is up.
func (c *Camera) RayFromNDC(x, y float64) geom.Ray {
	right, up, forward := c.Basis()
	th := c.tanHalfFOV()
	dir := forward.
		Add(right.Scale(x * th * c.Aspect)).
		Add(up.Scale(y * th))
	return geom.NewRay(c.Position, dir)
}

// Project maps a world point to normalized device coordinates. ok is false
// for points at or behind the near plane.
func (c *Camera) Project(p geom.Vec3) (x, y float64, ok bool) {
	right, up, forward := c.Basis()
	v := p.Sub(c.Position)
	depth := v.Dot(forward)
	if depth < c.Near {
		return 0, 0, false
	}
	th := c.tanHalfFOV()
	x = v.Dot(right) / (depth * th * c.Aspect)
	y = v.Dot(up) / (depth * th)
	return x, y, true
}
