package renderer

import (
	"math"
	"testing"

	"github.com/df07/go-nerf/pkg/core"
)

func TestMSE(t *testing.T) {
	tests := []struct {
		name      string
		got, want []core.Vec3
		expected  float64
	}{
		{"identical", []core.Vec3{{X: 0.2, Y: 0.4, Z: 0.6}}, []core.Vec3{{X: 0.2, Y: 0.4, Z: 0.6}}, 0},
		{"one channel off", []core.Vec3{{X: 1}}, []core.Vec3{{}}, 1.0 / 3.0},
		{"averaged over pixels", []core.Vec3{{X: 1, Y: 1, Z: 1}, {}}, []core.Vec3{{}, {}}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mse, err := MSE(tt.got, tt.want)
			if err != nil {
				t.Fatalf("MSE failed: %v", err)
			}
			if math.Abs(mse-tt.expected) > 1e-12 {
				t.Errorf("Expected %f, got %f", tt.expected, mse)
			}
		})
	}

	if _, err := MSE([]core.Vec3{{}}, nil); !core.IsConfigurationError(err) {
		t.Errorf("Expected configuration error for mismatched lengths, got %v", err)
	}
	if _, err := MSE(nil, nil); err == nil {
		t.Error("Expected error for empty input")
	}
}

func TestPSNR(t *testing.T) {
	tests := []struct {
		name     string
		mse      float64
		psnrCap  float64
		expected float64
	}{
		{"perfect", 0, 0, math.Inf(1)},
		{"perfect capped", 0, 48, 48},
		{"tenth", 0.1, 0, 10},
		{"hundredth", 0.01, 0, 20},
		{"below cap", 0.01, 48, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CappedPSNR(tt.mse, tt.psnrCap)
			if math.IsInf(tt.expected, 1) {
				if !math.IsInf(got, 1) {
					t.Errorf("Expected +Inf, got %f", got)
				}
				return
			}
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("Expected %f, got %f", tt.expected, got)
			}
		})
	}
}
