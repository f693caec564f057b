package renderer

import (
	"fmt"

	"github.com/df07/go-nerf/pkg/core"
	"github.com/df07/go-nerf/pkg/integrator"
)

// Options contains the per-call rendering configuration
type Options struct {
	NSamples          int     // Coarse samples per ray
	NImportance       int     // Additional fine samples per ray (0 = no fine stage)
	Perturb           float64 // > 0 enables stratified jitter; 0 also makes importance sampling deterministic
	LinDisp           bool    // Sample linearly in inverse depth instead of depth
	RawNoiseStd       float64 // Std of noise added to raw density (regularization)
	WhiteBackground   bool    // Composite remaining transmittance as white
	UseViewDirs       bool    // Pass unit view directions to the field
	NDC               bool    // Reproject rays into normalized device coordinates (forward-facing scenes)
	RetRaw            bool    // Keep raw field outputs of the final stage
	Chunk             int     // Max rays per pipeline run
	NetChunk          int     // Max points per field query
	Near              float64 // Near bound for rays built by Render
	Far               float64 // Far bound for rays built by Render
	Precision         core.Precision
	DensityActivation integrator.Activation
}

// DefaultOptions returns sensible default values
func DefaultOptions() Options {
	return Options{
		NSamples:          64,
		NImportance:       0,
		Perturb:           1,
		Chunk:             1024 * 32,
		NetChunk:          1024 * 64,
		Near:              0,
		Far:               1,
		Precision:         core.Float64,
		DensityActivation: integrator.ReLU,
	}
}

// ForEvaluation returns a copy with all stochastic perturbation disabled
func (o Options) ForEvaluation() Options {
	o.Perturb = 0
	o.RawNoiseStd = 0
	return o
}

// Validate rejects configurations that cannot be rendered
func (o Options) Validate() error {
	switch {
	case o.NSamples < 1:
		return &core.ConfigurationError{Field: "N_samples", Reason: fmt.Sprintf("%d must be at least 1", o.NSamples)}
	case o.NImportance < 0:
		return &core.ConfigurationError{Field: "N_importance", Reason: fmt.Sprintf("%d must not be negative", o.NImportance)}
	case o.NImportance > 0 && o.NSamples < 2:
		return &core.ConfigurationError{Field: "N_samples", Reason: "importance sampling needs at least 2 coarse samples"}
	case o.Chunk <= 0:
		return &core.ConfigurationError{Field: "chunk", Reason: fmt.Sprintf("%d must be positive", o.Chunk)}
	case o.NetChunk <= 0:
		return &core.ConfigurationError{Field: "netchunk", Reason: fmt.Sprintf("%d must be positive", o.NetChunk)}
	case o.RawNoiseStd < 0:
		return &core.ConfigurationError{Field: "raw_noise_std", Reason: fmt.Sprintf("%g must not be negative", o.RawNoiseStd)}
	case o.Perturb < 0:
		return &core.ConfigurationError{Field: "perturb", Reason: fmt.Sprintf("%g must not be negative", o.Perturb)}
	case !(o.Near < o.Far):
		return &core.ConfigurationError{Field: "near/far", Reason: fmt.Sprintf("near %g must be less than far %g", o.Near, o.Far)}
	case o.LinDisp && o.Near <= 0:
		return &core.ConfigurationError{Field: "near", Reason: "lindisp sampling needs a positive near bound"}
	}
	return nil
}

func (o Options) integratorConfig() integrator.Config {
	return integrator.Config{
		RawNoiseStd:       o.RawNoiseStd,
		WhiteBackground:   o.WhiteBackground,
		DensityActivation: o.DensityActivation,
		Precision:         o.Precision,
	}
}
