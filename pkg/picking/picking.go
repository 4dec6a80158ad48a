// Package picking finds the scene box under a screen point.
//
// A pick converts the pointer position to normalized device coordinates,
// casts a ray from the camera through that point, and keeps the nearest box
// whose bounding box the ray enters. Picking is a pure query: it reads the
// candidate boxes and never changes interaction state.
package picking

import (
	"math"

	"github.com/matzehuels/depotview/pkg/geom"
	"github.com/matzehuels/depotview/pkg/scene"
)

// ScreenCoord is a pointer position in pixels relative to the top-left
// corner of the viewport.
type ScreenCoord struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Viewport is the drawable area in pixels.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid reports whether the viewport has a positive area.
func (v Viewport) Valid() bool {
	return v.Width > 0 && v.Height > 0 && !math.IsInf(v.Width, 0) && !math.IsInf(v.Height, 0)
}

// Caster builds world rays from normalized device coordinates.
// *camera.Camera implements it.
type Caster interface {
	RayFromNDC(x, y float64) geom.Ray
}

// Result is the outcome of a pick. Box is nil on a miss.
type Result struct {
	Box      *scene.Box
	Distance float64
}

// Hit reports whether a box was picked.
func (r Result) Hit() bool { return r.Box != nil }

// Miss is the empty result.
var Miss = Result{}

// ToNDC converts a screen position to normalized device coordinates:
// x grows to the right and y grows upwards, both spanning [-1, 1] across
// the viewport.
func ToNDC(p ScreenCoord, vp Viewport) (x, y float64) {
	x = (p.X/vp.Width)*2 - 1
	y = -(p.Y/vp.Height)*2 + 1
	return x, y
}

// FromNDC is the inverse of ToNDC.
func FromNDC(x, y float64, vp Viewport) ScreenCoord {
	return ScreenCoord{
		X: (x + 1) / 2 * vp.Width,
		Y: (1 - y) / 2 * vp.Height,
	}
}

// Pick returns the nearest candidate under p. Candidates are tested in
// order and an equally distant later candidate does not replace an earlier
// one. A viewport without area always misses.
func Pick(p ScreenCoord, vp Viewport, cam Caster, candidates []*scene.Box) Result {
	if !vp.Valid() || cam == nil {
		return Miss
	}
	x, y := ToNDC(p, vp)
	return Cast(cam.RayFromNDC(x, y), candidates)
}

// Cast returns the nearest candidate intersected by ray.
func Cast(ray geom.Ray, candidates []*scene.Box) Result {
	best := Miss
	for _, b := range candidates {
		if b == nil {
			continue
		}
		t, ok := ray.IntersectBox(b.Bounds())
		if !ok {
			continue
		}
		if best.Box == nil || t < best.Distance {
			best = Result{Box: b, Distance: t}
		}
	}
	return best
}
