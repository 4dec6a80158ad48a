package camera

import (
	"math"

	"github.com/matzehuels/depotview/pkg/geom"
)

// Control defaults.
const (
	DefaultRotateSpeed = 0.25  // degrees per pixel of drag
	DefaultZoomSpeed   = 0.001 // log-scale factor per wheel unit
	DefaultPanSpeed    = 0.002 // world units per pixel per unit distance
	DefaultMinDistance = 2.0
	DefaultMaxDistance = 500.0

	minPolar = 0.01
)

// Controls orbit a camera around its target. Input methods only accumulate;
// [Controls.Update] consumes the accumulated input and moves the camera.
// Controls are not safe for concurrent use: feed and update them from the
// render loop.
type Controls struct {
	RotateSpeed float64
	ZoomSpeed   float64
	PanSpeed    float64
	MinDistance float64
	MaxDistance float64

	yaw, pitch float64 // pending rotation in degrees
	zoom       float64 // pending wheel delta
	panX, panY float64 // pending pan in pixels
}

// NewControls returns controls with default speeds and limits.
func NewControls() *Controls {
	return &Controls{
		RotateSpeed: DefaultRotateSpeed,
		ZoomSpeed:   DefaultZoomSpeed,
		PanSpeed:    DefaultPanSpeed,
		MinDistance: DefaultMinDistance,
		MaxDistance: DefaultMaxDistance,
	}
}

// Drag records a rotating drag of dx, dy pixels.
func (c *Controls) Drag(dx, dy float64) {
	c.yaw += dx * c.RotateSpeed
	c.pitch += dy * c.RotateSpeed
}

// Pan records a panning drag of dx, dy pixels.
func (c *Controls) Pan(dx, dy float64) {
	c.panX += dx
	c.panY += dy
}

// Wheel records a zoom input. Positive values move away from the target.
func (c *Controls) Wheel(delta float64) {
	c.zoom += delta
}

// Pending reports whether input is waiting for the next Update.
func (c *Controls) Pending() bool {
	return c.yaw != 0 || c.pitch != 0 || c.zoom != 0 || c.panX != 0 || c.panY != 0
}

// Update applies all accumulated input to cam and clears it. It reports
// whether the camera moved.
func (c *Controls) Update(cam *Camera) bool {
	if !c.Pending() {
		return false
	}

	if c.panX != 0 || c.panY != 0 {
		right, up, _ := cam.Basis()
		k := c.PanSpeed * cam.Distance()
		delta := right.Scale(-c.panX * k).Add(up.Scale(c.panY * k))
		cam.Position = cam.Position.Add(delta)
		cam.Target = cam.Target.Add(delta)
	}

	offset := cam.Position.Sub(cam.Target)
	radius := offset.Length()
	if radius == 0 {
		offset, radius = geom.UnitZ, 1
	}
	theta := math.Atan2(offset.X, offset.Z)
	phi := math.Acos(clamp(offset.Y/radius, -1, 1))

	theta -= c.yaw * math.Pi / 180
	phi = clamp(phi-c.pitch*math.Pi/180, minPolar, math.Pi-minPolar)
	radius = clamp(radius*math.Exp(c.zoom*c.ZoomSpeed), c.MinDistance, c.MaxDistance)

	sinPhi := math.Sin(phi)
	cam.Position = cam.Target.Add(geom.V3(
		radius*sinPhi*math.Sin(theta),
		radius*math.Cos(phi),
		radius*sinPhi*math.Cos(theta),
	))

	c.yaw, c.pitch, c.zoom, c.panX, c.panY = 0, 0, 0, 0, 0
	return true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
