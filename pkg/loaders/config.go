package loaders

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/df07/go-nerf/pkg/camera"
	"github.com/df07/go-nerf/pkg/field"
)

// RenderConfig is the file form of the renderer options
type RenderConfig struct {
	NSamples          int     `yaml:"n_samples" json:"n_samples"`
	NImportance       int     `yaml:"n_importance" json:"n_importance"`
	Perturb           float64 `yaml:"perturb" json:"perturb"`
	LinDisp           bool    `yaml:"lindisp" json:"lindisp"`
	RawNoiseStd       float64 `yaml:"raw_noise_std" json:"raw_noise_std"`
	WhiteBackground   bool    `yaml:"white_bkgd" json:"white_bkgd"`
	UseViewDirs       bool    `yaml:"use_viewdirs" json:"use_viewdirs"`
	NDC               bool    `yaml:"ndc" json:"ndc"`
	RetRaw            bool    `yaml:"retraw" json:"retraw"`
	Chunk             int     `yaml:"chunk" json:"chunk"`
	NetChunk          int     `yaml:"netchunk" json:"netchunk"`
	Near              float64 `yaml:"near" json:"near"`
	Far               float64 `yaml:"far" json:"far"`
	Precision         string  `yaml:"precision" json:"precision"`
	DensityActivation string  `yaml:"density_activation" json:"density_activation"`
	Seed              uint64  `yaml:"seed" json:"seed"`
}

// PathConfig describes the poses to render
type PathConfig struct {
	Type         string  `yaml:"type" json:"type"` // spherical or transforms
	Frames       int     `yaml:"frames" json:"frames"`
	Phi          float64 `yaml:"phi" json:"phi"`       // elevation in degrees for spherical paths
	Radius       float64 `yaml:"radius" json:"radius"` // orbit radius for spherical paths
	Transforms   string  `yaml:"transforms" json:"transforms"`
	GroundTruth  bool    `yaml:"ground_truth" json:"ground_truth"` // score against the transforms file's images
	RenderFactor int     `yaml:"render_factor" json:"render_factor"`
	Workers      int     `yaml:"workers" json:"workers"`
	PSNRCap      float64 `yaml:"psnr_cap" json:"psnr_cap"`
}

// SceneConfig describes a complete render run
type SceneConfig struct {
	Name         string        `yaml:"name" json:"name"`
	Width        int           `yaml:"width" json:"width"`
	Height       int           `yaml:"height" json:"height"`
	Focal        float64       `yaml:"focal" json:"focal"`
	CameraAngleX float64       `yaml:"camera_angle_x" json:"camera_angle_x"`
	Render       RenderConfig  `yaml:"render" json:"render"`
	Field        field.Config  `yaml:"field" json:"field"`
	FineField    *field.Config `yaml:"fine_field" json:"fine_field"`
	Path         PathConfig    `yaml:"path" json:"path"`
	OutputDir    string        `yaml:"output_dir" json:"output_dir"`
	EXR          bool          `yaml:"exr" json:"exr"`
}

// DefaultSceneConfig returns the values used for keys a scene file leaves out
func DefaultSceneConfig() SceneConfig {
	return SceneConfig{
		Name:   "scene",
		Width:  400,
		Height: 400,
		Render: RenderConfig{
			NSamples:          64,
			Perturb:           1,
			Chunk:             1024 * 32,
			NetChunk:          1024 * 64,
			Near:              2,
			Far:               6,
			Precision:         "float64",
			DensityActivation: "relu",
		},
		Path: PathConfig{
			Type:   "spherical",
			Frames: 40,
			Phi:    -30,
			Radius: 4,
		},
		OutputDir: "renders",
	}
}

// LoadSceneConfig reads a YAML or JSON scene file, chosen by extension.
// Relative paths inside the file are resolved against the file's directory.
func LoadSceneConfig(filename string) (*SceneConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene config: %w", err)
	}

	cfg := DefaultSceneConfig()
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	case ".json":
		err = json.Unmarshal(data, &cfg)
	default:
		return nil, fmt.Errorf("unsupported scene config extension %q (want .yaml, .yml or .json)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse scene config %s: %w", filename, err)
	}

	dir := filepath.Dir(filename)
	if cfg.Path.Transforms != "" && !filepath.IsAbs(cfg.Path.Transforms) {
		cfg.Path.Transforms = filepath.Join(dir, cfg.Path.Transforms)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scene config %s: %w", filename, err)
	}
	return &cfg, nil
}

// Validate checks the parts of the config the renderer does not check itself
func (c *SceneConfig) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("image size %dx%d must be positive", c.Width, c.Height)
	}
	switch c.Path.Type {
	case "spherical":
		if c.Path.Frames <= 0 {
			return fmt.Errorf("spherical path needs a positive frame count, got %d", c.Path.Frames)
		}
		if c.Focal <= 0 && c.CameraAngleX <= 0 {
			return fmt.Errorf("spherical path needs focal or camera_angle_x")
		}
	case "transforms":
		if c.Path.Transforms == "" {
			return fmt.Errorf("transforms path needs a transforms file")
		}
	default:
		return fmt.Errorf("unknown path type %q", c.Path.Type)
	}
	return nil
}

// Intrinsics returns the camera intrinsics. The focal length is taken from
// focal, then camera_angle_x, then the transforms file's camera_angle_x.
func (c *SceneConfig) Intrinsics(t *Transforms) (camera.Intrinsics, error) {
	in := camera.Intrinsics{Width: c.Width, Height: c.Height, Focal: c.Focal}
	switch {
	case in.Focal > 0:
	case c.CameraAngleX > 0:
		in.Focal = camera.FocalFromFOV(c.Width, c.CameraAngleX)
	case t != nil && t.CameraAngleX > 0:
		in.Focal = t.Focal(c.Width)
	}
	return in, in.Validate()
}
