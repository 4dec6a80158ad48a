package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Box3 is an axis-aligned bounding box. Unlike r3.Box, a box that is flat
// along an axis is not empty: a location with no stock is a zero-height
// box and still counts for extents and hit tests.
type Box3 struct {
	Min, Max Vec3
}

// B3 returns the box spanned by two corners, in any order.
func B3(x0, y0, z0, x1, y1, z1 float64) Box3 {
	return fromR3(r3.NewBox(x0, y0, z0, x1, y1, z1))
}

// BoxFromCenter returns the box with the given center and full size.
func BoxFromCenter(center, size Vec3) Box3 {
	half := size.Scale(0.5)
	return Box3{Min: center.Sub(half), Max: center.Add(half)}
}

// EmptyBox returns a box with Min at +Inf and Max at -Inf, ready to be
// expanded.
func EmptyBox() Box3 {
	inf := math.Inf(1)
	return Box3{Min: Vec3{inf, inf, inf}, Max: Vec3{-inf, -inf, -inf}}
}

// R3 returns b as a gonum box.
func (b Box3) R3() r3.Box { return r3.Box{Min: r3.Vec(b.Min), Max: r3.Vec(b.Max)} }

func fromR3(b r3.Box) Box3 { return Box3{Min: Vec3(b.Min), Max: Vec3(b.Max)} }

// IsEmpty reports whether max < min on any axis.
func (b Box3) IsEmpty() bool {
	return b.Max.X < b.Min.X || b.Max.Y < b.Min.Y || b.Max.Z < b.Min.Z
}

func (b Box3) Center() Vec3 { return Vec3(b.R3().Center()) }
func (b Box3) Size() Vec3   { return Vec3(b.R3().Size()) }

// ContainsPoint reports whether p lies inside or on the box.
func (b Box3) ContainsPoint(p Vec3) bool {
	return !b.IsEmpty() &&
		p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// ExpandByPoint grows the box to include p.
func (b Box3) ExpandByPoint(p Vec3) Box3 {
	return Box3{
		Min: Vec3{math.Min(b.Min.X, p.X), math.Min(b.Min.Y, p.Y), math.Min(b.Min.Z, p.Z)},
		Max: Vec3{math.Max(b.Max.X, p.X), math.Max(b.Max.Y, p.Y), math.Max(b.Max.Z, p.Z)},
	}
}

// Union returns the smallest box containing b and o. Empty boxes add
// nothing; flat ones do.
func (b Box3) Union(o Box3) Box3 {
	if o.IsEmpty() {
		return b
	}
	return b.ExpandByPoint(o.Min).ExpandByPoint(o.Max)
}
