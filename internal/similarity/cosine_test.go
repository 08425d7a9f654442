package similarity

import (
	"math"
	"testing"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"length mismatch", []float32{1, 2}, []float32{1}, 0},
		{"empty", []float32{}, []float32{}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cosine(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestClamp01(t *testing.T) {
	if Clamp01(-0.2) != 0 {
		t.Error("negative scores clamp to 0")
	}
	if Clamp01(1.4) != 1 {
		t.Error("scores above 1 clamp to 1")
	}
	if Clamp01(0.73) != 0.73 {
		t.Error("in-range scores pass through")
	}
}
