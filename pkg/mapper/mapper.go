package mapper

import (
	"math"

	"github.com/matzehuels/depotview/pkg/errors"
)

// MaxStock is the stock count rendered at full height. Larger counts clamp.
const MaxStock = 300

// Normalize remaps value from [inMin, inMax] onto [outMin, outMax].
//
// The remap is affine and does not clamp: values outside the input range
// land outside the output range. A degenerate input range (inMin == inMax)
// returns outMin together with a DOMAIN_ERROR, and so does any non-finite
// argument.
func Normalize(value, inMin, inMax, outMin, outMax float64) (float64, error) {
	for _, v := range [...]float64{value, inMin, inMax, outMin, outMax} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return outMin, errors.Domain("normalize: non-finite argument %v", v)
		}
	}
	if inMin == inMax {
		return outMin, errors.Domain("normalize: degenerate input range [%v, %v]", inMin, inMax)
	}
	return outMin + (value-inMin)*(outMax-outMin)/(inMax-inMin), nil
}

// HeightFor returns the normalized box height for a stock count.
//
// Stock in [0, MaxStock] maps linearly onto [0, 1]; stock above MaxStock
// clamps to 1. Negative stock indicates corrupt upstream data and is
// rejected with a DOMAIN_ERROR rather than clamped.
func HeightFor(stock float64) (float64, error) {
	if math.IsNaN(stock) || math.IsInf(stock, 0) {
		return 0, errors.Domain("stock must be finite, got %v", stock)
	}
	if stock < 0 {
		return 0, errors.Domain("stock must be non-negative, got %v", stock)
	}
	if stock >= MaxStock {
		return 1, nil
	}
	return Normalize(stock, 0, MaxStock, 0, 1)
}
