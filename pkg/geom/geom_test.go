package geom

import (
	"math"
	"testing"
)

const eps = 1e-9

func near(a, b Vec3) bool {
	return math.Abs(a.X-b.X) < eps && math.Abs(a.Y-b.Y) < eps && math.Abs(a.Z-b.Z) < eps
}

func TestVec3Ops(t *testing.T) {
	a, b := V3(1, 2, 3), V3(4, 5, 6)

	if got := a.Add(b); got != V3(5, 7, 9) {
		t.Errorf("Add() = %v", got)
	}
	if got := b.Sub(a); got != V3(3, 3, 3) {
		t.Errorf("Sub() = %v", got)
	}
	if got := a.Dot(b); got != 32 {
		t.Errorf("Dot() = %v, want 32", got)
	}
	if got := UnitX.Cross(UnitY); got != UnitZ {
		t.Errorf("Cross() = %v, want %v", got, UnitZ)
	}
	if got := V3(3, 4, 0).Length(); got != 5 {
		t.Errorf("Length() = %v, want 5", got)
	}
	if got := V3(0, 0, 9).Normal(); got != UnitZ {
		t.Errorf("Normal() = %v, want %v", got, UnitZ)
	}
	if got := Zero.Normal(); got != Zero {
		t.Errorf("Zero.Normal() = %v", got)
	}
}

func TestVec3Rotate(t *testing.T) {
	got := UnitX.Rotate(UnitY, math.Pi/2)
	if !near(got, V3(0, 0, -1)) {
		t.Errorf("Rotate() = %v, want (0,0,-1)", got)
	}
}

func TestBoxFromCenter(t *testing.T) {
	b := BoxFromCenter(V3(-4.5, 0.25, -4.5), V3(1, 0.5, 1))
	want := B3(-5, 0, -5, -4, 0.5, -4)
	if !near(b.Min, want.Min) || !near(b.Max, want.Max) {
		t.Errorf("BoxFromCenter() = %v, want %v", b, want)
	}
	if !near(b.Center(), V3(-4.5, 0.25, -4.5)) {
		t.Errorf("Center() = %v", b.Center())
	}
	if !b.ContainsPoint(V3(-4.5, 0.1, -4.5)) {
		t.Error("ContainsPoint() = false for interior point")
	}
}

func TestEmptyBoxExpand(t *testing.T) {
	b := EmptyBox()
	if !b.IsEmpty() {
		t.Fatal("EmptyBox() not empty")
	}
	b = b.ExpandByPoint(V3(1, 2, 3)).ExpandByPoint(V3(-1, 0, 5))
	if b.Min != V3(-1, 0, 3) || b.Max != V3(1, 2, 5) {
		t.Errorf("ExpandByPoint() = %v", b)
	}
}

func TestRayIntersectBox(t *testing.T) {
	unit := B3(-0.5, -0.5, -0.5, 0.5, 0.5, 0.5)
	flat := B3(-0.5, 0, -0.5, 0.5, 0, 0.5)

	tests := []struct {
		name  string
		ray   Ray
		box   Box3
		hit   bool
		wantT float64
	}{
		{"straight on", NewRay(V3(0, 0, 10), V3(0, 0, -1)), unit, true, 9.5},
		{"from above", NewRay(V3(0, 10, 0), V3(0, -1, 0)), unit, true, 9.5},
		{"miss to the side", NewRay(V3(3, 0, 10), V3(0, 0, -1)), unit, false, 0},
		{"pointing away", NewRay(V3(0, 0, 10), V3(0, 0, 1)), unit, false, 0},
		{"origin inside", NewRay(V3(0, 0, 0), V3(1, 0, 0)), unit, true, 0},
		{"grazing edge", NewRay(V3(0.5, 0, 10), V3(0, 0, -1)), unit, true, 9.5},
		{"flat box from above", NewRay(V3(0, 5, 0), V3(0, -1, 0)), flat, true, 5},
		{"flat box edge on", NewRay(V3(0, 1, 10), V3(0, 0, -1)), flat, false, 0},
		{"diagonal", NewRay(V3(5, 5, 5), V3(-1, -1, -1)), unit, true, math.Sqrt(75) - math.Sqrt(0.75)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.ray.IntersectBox(tt.box)
			if ok != tt.hit {
				t.Fatalf("IntersectBox() hit = %v, want %v", ok, tt.hit)
			}
			if ok && math.Abs(got-tt.wantT) > 1e-9 {
				t.Errorf("IntersectBox() t = %v, want %v", got, tt.wantT)
			}
		})
	}
}

func TestRayIntersectEmptyBox(t *testing.T) {
	if _, ok := NewRay(Zero, UnitX).IntersectBox(EmptyBox()); ok {
		t.Error("IntersectBox(empty) = hit")
	}
}

func TestUnionKeepsFlatBoxes(t *testing.T) {
	flat := B3(2, 0, 2, 3, 0, 3)
	if flat.IsEmpty() {
		t.Fatal("flat box reported empty")
	}
	if !flat.R3().Empty() {
		t.Fatal("r3.Box.Empty() = false for a flat box")
	}
	got := B3(0, 0, 0, 1, 1, 1).Union(flat)
	if got.Max != V3(3, 1, 3) {
		t.Errorf("Union() = %v, want max (3,1,3)", got)
	}
	if got := EmptyBox().Union(flat); got != flat {
		t.Errorf("EmptyBox().Union() = %v, want %v", got, flat)
	}
	if got := flat.Union(EmptyBox()); got != flat {
		t.Errorf("Union(EmptyBox()) = %v, want %v", got, flat)
	}
}

func TestB3Canonical(t *testing.T) {
	b := B3(1, 2, 3, -1, 0, 5)
	if b.Min != V3(-1, 0, 3) || b.Max != V3(1, 2, 5) {
		t.Errorf("B3() = %v", b)
	}
	if got := b.Size(); got != V3(2, 2, 2) {
		t.Errorf("Size() = %v", got)
	}
	if got := b.R3().Center(); Vec3(got) != b.Center() {
		t.Errorf("R3().Center() = %v, want %v", got, b.Center())
	}
}
