package renderer

import (
	"testing"

	"github.com/df07/go-nerf/pkg/core"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if err := opts.Validate(); err != nil {
		t.Fatalf("Default options should be valid: %v", err)
	}
	if opts.NSamples != 64 || opts.Perturb != 1 || opts.Chunk != 32768 || opts.NetChunk != 65536 {
		t.Errorf("Unexpected defaults: %+v", opts)
	}

	eval := opts.ForEvaluation()
	if eval.Perturb != 0 || eval.RawNoiseStd != 0 {
		t.Errorf("Expected evaluation options without perturbation, got %+v", eval)
	}
	if opts.Perturb != 1 {
		t.Error("ForEvaluation must not modify the receiver")
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
		field  string
	}{
		{"no samples", func(o *Options) { o.NSamples = 0 }, "N_samples"},
		{"negative importance", func(o *Options) { o.NImportance = -1 }, "N_importance"},
		{"importance needs two coarse samples", func(o *Options) { o.NSamples = 1; o.NImportance = 4 }, "N_samples"},
		{"zero chunk", func(o *Options) { o.Chunk = 0 }, "chunk"},
		{"zero netchunk", func(o *Options) { o.NetChunk = 0 }, "netchunk"},
		{"negative noise", func(o *Options) { o.RawNoiseStd = -0.1 }, "raw_noise_std"},
		{"negative perturb", func(o *Options) { o.Perturb = -1 }, "perturb"},
		{"near equals far", func(o *Options) { o.Near, o.Far = 2, 2 }, "near/far"},
		{"lindisp at zero", func(o *Options) { o.LinDisp = true; o.Near = 0 }, "near"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.modify(&opts)
			err := opts.Validate()
			ce, ok := err.(*core.ConfigurationError)
			if !ok {
				t.Fatalf("Expected *core.ConfigurationError, got %v", err)
			}
			if ce.Field != tt.field {
				t.Errorf("Expected field %q, got %q", tt.field, ce.Field)
			}
		})
	}
}
