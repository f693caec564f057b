package encoding

import (
	"math"
	"testing"
)

func TestFrequencyLayout(t *testing.T) {
	enc := NewFrequency(2, 1, true, true)
	x := []float64{0.5, -1, 2}
	out := enc.Encode(nil, x)

	if len(out) != enc.OutDim(3) || len(out) != 3+3*2*2 {
		t.Fatalf("Expected %d features, got %d", enc.OutDim(3), len(out))
	}
	for i := 0; i < 3; i++ {
		if out[i] != x[i] {
			t.Errorf("Expected raw input at %d, got %f", i, out[i])
		}
	}
	// second band has frequency 2: sin block starts at 3+6
	if math.Abs(out[9]-math.Sin(2*0.5)) > 1e-12 {
		t.Errorf("Expected sin(1), got %f", out[9])
	}
	if math.Abs(out[14]-math.Cos(2*2)) > 1e-12 {
		t.Errorf("Expected cos(4), got %f", out[14])
	}
}

func TestNewEmbedder(t *testing.T) {
	tests := []struct {
		name     string
		multires int
		kind     int
		wantDim  int
		wantErr  bool
	}{
		{"positions", 10, 0, 63, false},
		{"view directions", 4, 0, 27, false},
		{"identity", 10, -1, 3, false},
		{"unknown kind", 4, 2, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := New(tt.multires, tt.kind)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && enc.OutDim(3) != tt.wantDim {
				t.Errorf("Expected dim %d, got %d", tt.wantDim, enc.OutDim(3))
			}
		})
	}
}

func TestFrequencyBandsArePowersOfTwo(t *testing.T) {
	enc := NewFrequency(4, 3, true, false)
	want := []float64{1, 2, 4, 8}
	for i, b := range enc.Bands() {
		if math.Abs(b-want[i]) > 1e-12 {
			t.Errorf("band %d: got %f, want %f", i, b, want[i])
		}
	}
}
