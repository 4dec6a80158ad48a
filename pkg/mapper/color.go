package mapper

import (
	"encoding/json"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Palette constants for [ColorFor].
const (
	// HalfWeight is the occupancy weight that lands halfway along the hue ramp.
	HalfWeight = 5.0

	// ColdHue is the hue (degrees) of a location with zero weight.
	ColdHue = 240.0

	// Saturation is fixed for every box.
	Saturation = 0.85

	minValue = 0.55
	maxValue = 1.0
)

// Background is the scene clear color.
var Background = Color{colorful.Color{R: 0xef / 255.0, G: 0xef / 255.0, B: 0xef / 255.0}}

// Color is an RGB color with channels in [0, 1].
// It serializes to JSON as a "#rrggbb" string.
type Color struct {
	colorful.Color
}

// Hue returns the HSV hue of c in degrees.
func (c Color) Hue() float64 {
	h, _, _ := c.Hsv()
	return h
}

// MarshalJSON encodes c as a hex string.
func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Hex())
}

// UnmarshalJSON decodes a hex string.
func (c *Color) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := colorful.Hex(s)
	if err != nil {
		return err
	}
	c.Color = parsed
	return nil
}

// ColorFor returns the box color for an occupancy weight and a normalized
// height.
//
// The weight is squashed onto [0, 1) with t = w / (w + HalfWeight) and drives
// the hue from ColdHue (blue, w = 0) towards 0 (red, w → ∞). The hue is
// strictly decreasing in w, so heavier locations are always warmer. The
// height in [0, 1] drives brightness from 0.55 to 1.
//
// ColorFor is total: negative or NaN weights are treated as 0, +Inf as fully
// saturated, and heights outside [0, 1] are clamped.
func ColorFor(locWeight, height float64) Color {
	t := weightRamp(locWeight)
	h := clamp01(height)
	if math.IsNaN(height) {
		h = 0
	}
	hue := ColdHue * (1 - t)
	value := minValue + (maxValue-minValue)*h
	return Color{colorful.Hsv(hue, Saturation, value)}
}

func weightRamp(w float64) float64 {
	switch {
	case math.IsNaN(w) || w <= 0:
		return 0
	case math.IsInf(w, 1):
		return 1
	}
	return w / (w + HalfWeight)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
