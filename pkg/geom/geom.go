// Package geom holds the 3D types the scene engine shares: vectors,
// axis-aligned boxes and rays.
//
// The arithmetic is gonum's spatial/r3. Vec3 converts to and from r3.Vec
// and only adds the JSON field names the scene export uses. Coordinates
// are right-handed with Y up.
package geom

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Vec3 is a 3D vector or point.
type Vec3 struct {
	X float64 `json:"x" toml:"x"`
	Y float64 `json:"y" toml:"y"`
	Z float64 `json:"z" toml:"z"`
}

// V3 returns a new Vec3.
func V3(x, y, z float64) Vec3 { return Vec3{x, y, z} }

// Common vectors.
var (
	Zero  = Vec3{}
	UnitX = Vec3{1, 0, 0}
	UnitY = Vec3{0, 1, 0}
	UnitZ = Vec3{0, 0, 1}
)

// R3 returns v as a gonum vector.
func (v Vec3) R3() r3.Vec { return r3.Vec(v) }

func (v Vec3) Add(o Vec3) Vec3      { return Vec3(r3.Add(r3.Vec(v), r3.Vec(o))) }
func (v Vec3) Sub(o Vec3) Vec3      { return Vec3(r3.Sub(r3.Vec(v), r3.Vec(o))) }
func (v Vec3) Scale(s float64) Vec3 { return Vec3(r3.Scale(s, r3.Vec(v))) }
func (v Vec3) Dot(o Vec3) float64   { return r3.Dot(r3.Vec(v), r3.Vec(o)) }
func (v Vec3) Cross(o Vec3) Vec3    { return Vec3(r3.Cross(r3.Vec(v), r3.Vec(o))) }
func (v Vec3) Length() float64      { return r3.Norm(r3.Vec(v)) }

// Dist returns the distance between v and o.
func (v Vec3) Dist(o Vec3) float64 { return v.Sub(o).Length() }

// Normal returns v scaled to unit length. The zero vector is returned
// unchanged rather than as NaNs.
func (v Vec3) Normal() Vec3 {
	if v.IsZero() {
		return v
	}
	return Vec3(r3.Unit(r3.Vec(v)))
}

// IsZero reports whether all components are zero.
func (v Vec3) IsZero() bool { return v == Zero }

// Rotate returns v rotated by angle radians around axis.
func (v Vec3) Rotate(axis Vec3, angle float64) Vec3 {
	if axis.IsZero() {
		return v
	}
	return Vec3(r3.Rotate(r3.Vec(v), angle, r3.Vec(axis)))
}
