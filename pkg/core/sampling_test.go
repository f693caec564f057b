package core

import "testing"

func TestSeededSourceIsPerRay(t *testing.T) {
	src := NewSeededSource(7)
	a := src.ForRay(3).Get1D()
	b := src.ForRay(3).Get1D()
	if a != b {
		t.Errorf("Same ray index should replay the same stream: %v != %v", a, b)
	}
	if src.ForRay(4).Get1D() == a {
		t.Error("Different ray indices should use different streams")
	}

	off := OffsetSource{Source: src, Offset: 2}
	if off.ForRay(1).Get1D() != a {
		t.Error("OffsetSource should shift ray indices")
	}
}

func TestSequenceSamplerCycles(t *testing.T) {
	s := NewSequenceSampler([]float64{0.1, 0.2}, nil)
	got := []float64{s.Get1D(), s.Get1D(), s.Get1D()}
	want := []float64{0.1, 0.2, 0.1}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("draw %d: got %v, want %v", i, got[i], want[i])
		}
	}
	if s.GetNormal() != 0 {
		t.Error("Empty normal sequence should yield 0")
	}
}
