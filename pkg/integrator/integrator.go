package integrator

import (
	"fmt"
	"math"

	"github.com/df07/go-nerf/pkg/core"
	"github.com/df07/go-nerf/pkg/field"
)

const (
	// distSentinel closes the last interval so the final sample absorbs
	// whatever transmittance is left.
	distSentinel = 1e10
	// transmittanceEps keeps the running product away from zero at full opacity
	transmittanceEps = 1e-10
	// disparityEps guards the depth/opacity and 1/depth divisions for empty rays
	disparityEps = 1e-10
)

// Activation maps a raw density logit to a non-negative density
type Activation int

const (
	ReLU Activation = iota
	Softplus
)

// Apply evaluates the activation
func (a Activation) Apply(x float64) float64 {
	switch a {
	case Softplus:
		if x > 20 {
			return x
		}
		return math.Log1p(math.Exp(x))
	default:
		return math.Max(0, x)
	}
}

func (a Activation) String() string {
	switch a {
	case ReLU:
		return "relu"
	case Softplus:
		return "softplus"
	}
	return fmt.Sprintf("Activation(%d)", int(a))
}

// ParseActivation converts a config string into an Activation
func ParseActivation(s string) (Activation, error) {
	switch s {
	case "", "relu":
		return ReLU, nil
	case "softplus":
		return Softplus, nil
	}
	return ReLU, &core.ConfigurationError{Field: "density activation", Reason: fmt.Sprintf("unknown value %q", s)}
}

// Sigmoid squashes a color logit into [0,1]
func Sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Config controls the quadrature
type Config struct {
	RawNoiseStd       float64 // std of zero-mean noise added to raw density; 0 disables
	WhiteBackground   bool    // composite leftover transmittance as white
	DensityActivation Activation
	Precision         core.Precision
}

// Result is the composited estimate for one ray
type Result struct {
	RGB       core.Vec3
	Disparity float64
	Opacity   float64 // accumulated opacity, sum of weights
	Depth     float64 // expected depth
	Weights   []float64
}

// NonFinite lists the outputs containing NaN or Inf
func (r Result) NonFinite() []string {
	var keys []string
	if !r.RGB.IsFinite() {
		keys = append(keys, "rgb")
	}
	if !core.IsFinite(r.Disparity) {
		keys = append(keys, "disparity")
	}
	if !core.IsFinite(r.Opacity) {
		keys = append(keys, "opacity")
	}
	if !core.IsFinite(r.Depth) {
		keys = append(keys, "depth")
	}
	for _, w := range r.Weights {
		if !core.IsFinite(w) {
			keys = append(keys, "weights")
			break
		}
	}
	return keys
}

// Composite integrates one ray's samples with emission-absorption quadrature.
// zVals must be non-decreasing and len(raw) == len(zVals). direction is the
// un-normalized ray direction whose length scales depth into distance.
// sampler is only used when cfg.RawNoiseStd > 0.
func Composite(raw []field.Raw, zVals []float64, direction core.Vec3, cfg Config, sampler core.Sampler) Result {
	n := len(zVals)
	norm := direction.Length()
	p := cfg.Precision

	res := Result{Weights: make([]float64, n)}
	transmittance := 1.0
	for i := 0; i < n; i++ {
		dist := distSentinel
		if i+1 < n {
			dist = zVals[i+1] - zVals[i]
		}
		dist *= norm

		density := raw[i].Density()
		if cfg.RawNoiseStd > 0 {
			density += sampler.GetNormal() * cfg.RawNoiseStd
		}
		alpha := p.Round(1 - math.Exp(-cfg.DensityActivation.Apply(density)*dist))

		w := p.Round(alpha * transmittance)
		transmittance *= 1 - alpha + transmittanceEps
		res.Weights[i] = w

		c := raw[i].Color()
		color := core.NewVec3(Sigmoid(c.X), Sigmoid(c.Y), Sigmoid(c.Z))
		res.RGB = res.RGB.Add(color.Multiply(w))
		res.Depth += w * zVals[i]
		res.Opacity += w
	}

	res.Disparity = 1 / math.Max(disparityEps, res.Depth/math.Max(disparityEps, res.Opacity))
	if cfg.WhiteBackground {
		res.RGB = res.RGB.AddScalar(1 - res.Opacity)
	}

	res.RGB = p.RoundVec(res.RGB)
	res.Depth = p.Round(res.Depth)
	res.Opacity = p.Round(res.Opacity)
	res.Disparity = p.Round(res.Disparity)
	return res
}
