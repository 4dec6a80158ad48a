// Package mapper converts raw location data into the two visual channels of
// a warehouse scene: box height and box color.
//
// All functions are pure. [HeightFor] maps a stock count in [0, MaxStock]
// linearly onto [0, 1] and clamps larger counts to 1. [ColorFor] maps an
// occupancy weight onto a blue-to-red hue ramp and uses the normalized
// height for brightness.
//
// Invalid input never produces NaN. Negative or non-finite stock and a
// degenerate normalization range are reported as DOMAIN_ERROR so callers
// can skip the offending record.
package mapper
