package core

import (
	"math/rand/v2"
)

// Sampler provides random draws for stratified jitter, density noise and
// importance sampling. Can be swapped out for deterministic testing.
type Sampler interface {
	Get1D() float64     // uniform in [0, 1)
	GetNormal() float64 // standard normal
}

// SampleSource hands out an independent Sampler per ray. Draws depend only on
// the ray's global index, so chunk boundaries never change which values a ray sees.
type SampleSource interface {
	ForRay(index int) Sampler
}

// RandomSampler wraps a standard Go random generator
type RandomSampler struct {
	random *rand.Rand
}

// NewRandomSampler creates a sampler from a Go random generator
func NewRandomSampler(random *rand.Rand) *RandomSampler {
	return &RandomSampler{random: random}
}

// Get1D returns a random float64 in [0, 1)
func (r *RandomSampler) Get1D() float64 {
	return r.random.Float64()
}

// GetNormal returns a normally distributed float64 with mean 0 and stddev 1
func (r *RandomSampler) GetNormal() float64 {
	return r.random.NormFloat64()
}

// SeededSource derives one PCG stream per ray from a base seed
type SeededSource struct {
	Seed uint64
}

// NewSeededSource creates a source whose per-ray streams are reproducible
func NewSeededSource(seed uint64) SeededSource {
	return SeededSource{Seed: seed}
}

// ForRay returns the stream for the given global ray index
func (s SeededSource) ForRay(index int) Sampler {
	return NewRandomSampler(rand.New(rand.NewPCG(s.Seed, uint64(index))))
}

// OffsetSource shifts ray indices, letting several render calls share one
// source without reusing streams (e.g. frame i of a path uses offset i*H*W).
type OffsetSource struct {
	Source SampleSource
	Offset int
}

// ForRay returns the underlying stream for index+Offset
func (o OffsetSource) ForRay(index int) Sampler {
	return o.Source.ForRay(index + o.Offset)
}

// SequenceSampler replays fixed draws, cycling when exhausted.
// An empty sequence yields 0.5 for uniform draws and 0 for normal draws.
type SequenceSampler struct {
	uniform []float64
	normal  []float64
	ui, ni  int
}

// NewSequenceSampler creates a sampler replaying the given values
func NewSequenceSampler(uniform, normal []float64) *SequenceSampler {
	return &SequenceSampler{uniform: uniform, normal: normal}
}

// Get1D returns the next fixed uniform value
func (s *SequenceSampler) Get1D() float64 {
	if len(s.uniform) == 0 {
		return 0.5
	}
	v := s.uniform[s.ui%len(s.uniform)]
	s.ui++
	return v
}

// GetNormal returns the next fixed normal value
func (s *SequenceSampler) GetNormal() float64 {
	if len(s.normal) == 0 {
		return 0
	}
	v := s.normal[s.ni%len(s.normal)]
	s.ni++
	return v
}

// SequenceSource gives ray i the i-th row of Uniform and Normal (modulo their length)
type SequenceSource struct {
	Uniform [][]float64
	Normal  [][]float64
}

// ForRay returns a fresh replaying sampler for the ray
func (s SequenceSource) ForRay(index int) Sampler {
	var u, n []float64
	if len(s.Uniform) > 0 {
		u = s.Uniform[index%len(s.Uniform)]
	}
	if len(s.Normal) > 0 {
		n = s.Normal[index%len(s.Normal)]
	}
	return NewSequenceSampler(u, n)
}
