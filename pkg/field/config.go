package field

import (
	"fmt"

	"github.com/df07/go-nerf/pkg/core"
	"github.com/df07/go-nerf/pkg/encoding"
)

// BlobConfig is the file form of a Blob
type BlobConfig struct {
	Center    [3]float64 `yaml:"center" json:"center"`
	Sigma     float64    `yaml:"sigma" json:"sigma"`
	Amplitude float64    `yaml:"amplitude" json:"amplitude"`
	Color     [3]float64 `yaml:"color" json:"color"`
}

// Config selects and parameterises a field from a scene file
type Config struct {
	Type string `yaml:"type" json:"type"` // sphere, blobs, constant or mlp

	Center  [3]float64   `yaml:"center" json:"center"`
	Radius  float64      `yaml:"radius" json:"radius"`
	Color   [3]float64   `yaml:"color" json:"color"`
	Density float64      `yaml:"density" json:"density"`
	Blobs   []BlobConfig `yaml:"blobs" json:"blobs"`

	MLP           MLPConfig `yaml:"mlp" json:"mlp"`
	Multires      int       `yaml:"multires" json:"multires"`
	MultiresViews int       `yaml:"multires_views" json:"multires_views"`
	Embed         int       `yaml:"i_embed" json:"i_embed"`
}

func vec(a [3]float64) core.Vec3 {
	return core.NewVec3(a[0], a[1], a[2])
}

// FromConfig builds the configured field. useViewDirs only affects network
// fields; closed-form fields ignore view directions.
func FromConfig(cfg Config, useViewDirs bool) (Field, error) {
	switch cfg.Type {
	case "sphere":
		if cfg.Radius <= 0 {
			return nil, fmt.Errorf("sphere radius must be positive, got %g", cfg.Radius)
		}
		return NewSphere(vec(cfg.Center), cfg.Radius, vec(cfg.Color), cfg.Density), nil
	case "blobs":
		if len(cfg.Blobs) == 0 {
			return nil, fmt.Errorf("blobs field needs at least one lobe")
		}
		lobes := make([]Blob, len(cfg.Blobs))
		for i, b := range cfg.Blobs {
			if b.Sigma <= 0 {
				return nil, fmt.Errorf("blob %d: sigma must be positive, got %g", i, b.Sigma)
			}
			lobes[i] = Blob{Center: vec(b.Center), Sigma: b.Sigma, Amplitude: b.Amplitude, Color: vec(b.Color)}
		}
		return &Blobs{Lobes: lobes}, nil
	case "constant":
		return &Constant{Color: vec(cfg.Color), Density: cfg.Density}, nil
	case "mlp":
		return newEncodedMLP(cfg, useViewDirs)
	}
	return nil, fmt.Errorf("unknown field type %q", cfg.Type)
}

func newEncodedMLP(cfg Config, useViewDirs bool) (Field, error) {
	embed, err := encoding.New(cfg.Multires, cfg.Embed)
	if err != nil {
		return nil, fmt.Errorf("position encoding: %w", err)
	}
	e := &Encoded{Embed: embed}
	inputChViews := 0
	if useViewDirs {
		e.EmbedDirs, err = encoding.New(cfg.MultiresViews, cfg.Embed)
		if err != nil {
			return nil, fmt.Errorf("view encoding: %w", err)
		}
		inputChViews = e.EmbedDirs.OutDim(3)
	}

	mlpCfg := cfg.MLP
	if mlpCfg.Depth == 0 && mlpCfg.Width == 0 {
		seed := mlpCfg.Seed
		mlpCfg = DefaultMLPConfig()
		mlpCfg.Seed = seed
	}
	mlpCfg.UseViewDirs = useViewDirs

	e.Net, err = NewMLP(mlpCfg, embed.OutDim(3), inputChViews)
	if err != nil {
		return nil, err
	}
	return e, nil
}
