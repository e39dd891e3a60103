// SPDX-License-Identifier: EPL-2.0

package utils

import (
	"math"
	"testing"
)

func TestCubicInterpolate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		y       [4]float32
		x       float32
		want    float32
		epsilon float64
	}{
		{"start returns y1", [4]float32{0, 1, 2, 3}, 0, 1, 1e-6},
		{"end returns y2", [4]float32{0, 1, 2, 3}, 1, 2, 1e-6},
		{"ramp stays linear", [4]float32{1, 2, 3, 4}, 0.25, 2.25, 1e-6},
		{"ramp midpoint", [4]float32{0, 1, 2, 3}, 0.5, 1.5, 1e-6},
		{"symmetric crossing", [4]float32{-1, -0.5, 0.5, 1}, 0.5, 0, 1e-6},
		{"peak overshoots neighbours", [4]float32{0, 1, 1, 0}, 0.5, 1.125, 1e-6},
		{"silence", [4]float32{}, 0.7, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := CubicInterpolate(tt.y[0], tt.y[1], tt.y[2], tt.y[3], tt.x)
			if math.Abs(float64(got-tt.want)) > tt.epsilon {
				t.Errorf("CubicInterpolate(%v, %v) = %v, want %v", tt.y, tt.x, got, tt.want)
			}
		})
	}
}

// TestCubicInterpolate_Knots checks the spline passes through y1 and y2
// exactly for arbitrary neighbours.
func TestCubicInterpolate_Knots(t *testing.T) {
	t.Parallel()

	for i := range 64 {
		v := float32(i) / 32
		y0, y1, y2, y3 := -v, v, 1-v, v*v
		if got := CubicInterpolate(y0, y1, y2, y3, 0); got != y1 {
			t.Errorf("x=0: got %v, want %v", got, y1)
		}
		if got := CubicInterpolate(y0, y1, y2, y3, 1); math.Abs(float64(got-y2)) > 1e-5 {
			t.Errorf("x=1: got %v, want %v", got, y2)
		}
	}
}

func TestCubicInterpolateFrame(t *testing.T) {
	t.Parallel()

	y0 := []float32{0, 1}
	y1 := []float32{1, 2}
	y2 := []float32{2, 3}
	y3 := []float32{3, 4}
	dst := make([]float32, 2)

	CubicInterpolateFrame(dst, y0, y1, y2, y3, 0.5)
	if dst[0] != 1.5 || dst[1] != 2.5 {
		t.Errorf("dst = %v, want [1.5 2.5]", dst)
	}
}

func BenchmarkCubicInterpolateFrame(b *testing.B) {
	// One stereo frame per call, as the resampler uses it.
	y0, y1, y2, y3 := []float32{0.1, -0.1}, []float32{0.5, -0.5}, []float32{0.3, -0.3}, []float32{-0.2, 0.2}
	dst := make([]float32, 2)

	b.ReportAllocs()

	var x float32
	for b.Loop() {
		CubicInterpolateFrame(dst, y0, y1, y2, y3, x)
		x += 0.01
		if x >= 1 {
			x = 0
		}
	}
}

func TestCubicInterpolate_ZeroAllocs(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping allocation test in short mode")
	}

	dst := make([]float32, 6)
	frame := []float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}
	allocs := testing.AllocsPerRun(1000, func() {
		CubicInterpolateFrame(dst, frame, frame, frame, frame, 0.5)
	})

	if allocs > 0 {
		t.Errorf("CubicInterpolateFrame allocated %v times, want 0", allocs)
	}
}
