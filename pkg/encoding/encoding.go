// Package encoding provides the fixed feature expansions applied to sample
// points and view directions before they reach a network.
package encoding

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Encoder is a deterministic, stateless feature expansion of one input row
type Encoder interface {
	// Encode appends the encoding of x to dst and returns the extended slice
	Encode(dst, x []float64) []float64
	// OutDim returns the encoded width for an input of width inDim
	OutDim(inDim int) int
}

// Identity passes inputs through unchanged
type Identity struct{}

func (Identity) Encode(dst, x []float64) []float64 { return append(dst, x...) }
func (Identity) OutDim(inDim int) int              { return inDim }

// Frequency is the sinusoidal positional encoding
// [x, sin(f0 x), cos(f0 x), sin(f1 x), cos(f1 x), ...].
type Frequency struct {
	IncludeInput bool
	bands        []float64
}

// NewFrequency builds an encoding with numFreqs bands up to 2^maxFreqLog2.
// With logSampling the bands are powers of two; otherwise they are evenly
// spaced between 1 and 2^maxFreqLog2.
func NewFrequency(numFreqs int, maxFreqLog2 float64, logSampling, includeInput bool) *Frequency {
	bands := make([]float64, numFreqs)
	switch {
	case numFreqs == 1:
		bands[0] = 1
	case numFreqs > 1 && logSampling:
		floats.Span(bands, 0, maxFreqLog2)
		for i, b := range bands {
			bands[i] = math.Exp2(b)
		}
	case numFreqs > 1:
		floats.Span(bands, 1, math.Exp2(maxFreqLog2))
	}
	return &Frequency{IncludeInput: includeInput, bands: bands}
}

// Bands returns the frequency multipliers
func (f *Frequency) Bands() []float64 {
	return f.bands
}

// Encode appends the encoding of x to dst
func (f *Frequency) Encode(dst, x []float64) []float64 {
	if f.IncludeInput {
		dst = append(dst, x...)
	}
	for _, freq := range f.bands {
		for _, v := range x {
			dst = append(dst, math.Sin(v*freq))
		}
		for _, v := range x {
			dst = append(dst, math.Cos(v*freq))
		}
	}
	return dst
}

// OutDim returns the encoded width
func (f *Frequency) OutDim(inDim int) int {
	out := inDim * 2 * len(f.bands)
	if f.IncludeInput {
		out += inDim
	}
	return out
}

// New mirrors the usual embedder switch: kind 0 is the frequency encoding with
// multires log-sampled bands, kind -1 is the identity.
func New(multires, kind int) (Encoder, error) {
	switch kind {
	case -1:
		return Identity{}, nil
	case 0:
		if multires < 0 {
			return nil, fmt.Errorf("multires must be non-negative, got %d", multires)
		}
		return NewFrequency(multires, float64(multires-1), true, true), nil
	}
	return nil, fmt.Errorf("unknown embedding kind %d", kind)
}
