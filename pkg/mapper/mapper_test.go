package mapper

import (
	"math"
	"testing"

	"github.com/matzehuels/depotview/pkg/errors"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name                             string
		value, inMin, inMax, outMin, out float64
		want                             float64
	}{
		{"midpoint", 150, 0, 300, 0, 1, 0.5},
		{"lower bound", 0, 0, 300, 0, 1, 0},
		{"upper bound", 300, 0, 300, 0, 1, 1},
		{"shifted output", 5, 0, 10, 10, 20, 15},
		{"inverted output", 2.5, 0, 10, 1, 0, 0.75},
		{"extrapolates", 20, 0, 10, 0, 1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.value, tt.inMin, tt.inMax, tt.outMin, tt.out)
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Normalize() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeDegenerateRange(t *testing.T) {
	got, err := Normalize(3, 7, 7, 0.25, 1)
	if !errors.Is(err, errors.ErrCodeDomain) {
		t.Fatalf("Normalize() error = %v, want DOMAIN_ERROR", err)
	}
	if got != 0.25 {
		t.Errorf("Normalize() = %v, want outMin 0.25", got)
	}
}

func TestNormalizeNonFinite(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		got, err := Normalize(v, 0, 1, 0, 1)
		if !errors.Is(err, errors.ErrCodeDomain) {
			t.Errorf("Normalize(%v) error = %v, want DOMAIN_ERROR", v, err)
		}
		if math.IsNaN(got) {
			t.Errorf("Normalize(%v) returned NaN", v)
		}
	}
}

func TestHeightForRange(t *testing.T) {
	prev := -1.0
	for stock := 0.0; stock <= MaxStock; stock += 0.5 {
		h, err := HeightFor(stock)
		if err != nil {
			t.Fatalf("HeightFor(%v) error = %v", stock, err)
		}
		if h < 0 || h > 1 {
			t.Fatalf("HeightFor(%v) = %v, outside [0,1]", stock, h)
		}
		if h < prev {
			t.Fatalf("HeightFor(%v) = %v, decreased from %v", stock, h, prev)
		}
		prev = h
	}
}

func TestHeightFor(t *testing.T) {
	tests := []struct {
		name     string
		stock    float64
		want     float64
		wantCode errors.Code
	}{
		{"zero", 0, 0, ""},
		{"full", 300, 1, ""},
		{"half", 150, 0.5, ""},
		{"clamps above", 301, 1, ""},
		{"clamps far above", 1e9, 1, ""},
		{"negative", -1, 0, errors.ErrCodeDomain},
		{"nan", math.NaN(), 0, errors.ErrCodeDomain},
		{"inf", math.Inf(1), 0, errors.ErrCodeDomain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := HeightFor(tt.stock)
			if code := errors.GetCode(err); code != tt.wantCode {
				t.Fatalf("HeightFor(%v) code = %q, want %q (err %v)", tt.stock, code, tt.wantCode, err)
			}
			if tt.wantCode == "" && got != tt.want {
				t.Errorf("HeightFor(%v) = %v, want %v", tt.stock, got, tt.want)
			}
		})
	}
}
