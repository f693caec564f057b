package scene

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/df07/go-nerf/pkg/camera"
	"github.com/df07/go-nerf/pkg/core"
	"github.com/df07/go-nerf/pkg/field"
	"github.com/df07/go-nerf/pkg/integrator"
	"github.com/df07/go-nerf/pkg/loaders"
	"github.com/df07/go-nerf/pkg/renderer"
)

// RenderOptions converts the file form of the render settings
func RenderOptions(rc loaders.RenderConfig) (renderer.Options, error) {
	precision, err := core.ParsePrecision(rc.Precision)
	if err != nil {
		return renderer.Options{}, err
	}
	activation, err := integrator.ParseActivation(rc.DensityActivation)
	if err != nil {
		return renderer.Options{}, err
	}
	return renderer.Options{
		NSamples:          rc.NSamples,
		NImportance:       rc.NImportance,
		Perturb:           rc.Perturb,
		LinDisp:           rc.LinDisp,
		RawNoiseStd:       rc.RawNoiseStd,
		WhiteBackground:   rc.WhiteBackground,
		UseViewDirs:       rc.UseViewDirs,
		NDC:               rc.NDC,
		RetRaw:            rc.RetRaw,
		Chunk:             rc.Chunk,
		NetChunk:          rc.NetChunk,
		Near:              rc.Near,
		Far:               rc.Far,
		Precision:         precision,
		DensityActivation: activation,
	}, nil
}

// NewRenderer builds the coarse and optional fine fields of a scene and the
// renderer over them. A zero seed falls back to the scene's seed, and a zero
// scene seed leaves the renderer's random source in place.
func NewRenderer(cfg *loaders.SceneConfig, seed uint64, logger zerolog.Logger) (*renderer.Renderer, error) {
	opts, err := RenderOptions(cfg.Render)
	if err != nil {
		return nil, err
	}
	coarse, err := field.FromConfig(cfg.Field, opts.UseViewDirs)
	if err != nil {
		return nil, fmt.Errorf("field: %w", err)
	}

	rendererOpts := []renderer.Option{renderer.WithLogger(logger)}
	if cfg.FineField != nil {
		fine, err := field.FromConfig(*cfg.FineField, opts.UseViewDirs)
		if err != nil {
			return nil, fmt.Errorf("fine field: %w", err)
		}
		rendererOpts = append(rendererOpts, renderer.WithFineField(fine))
	}
	if seed == 0 {
		seed = cfg.Render.Seed
	}
	if seed != 0 {
		rendererOpts = append(rendererOpts, renderer.WithSampleSource(core.NewSeededSource(seed)))
	}
	return renderer.New(coarse, opts, rendererOpts...)
}

// Path holds the poses, intrinsics and optional ground truth of a scene
type Path struct {
	Poses       []camera.Pose
	Intrinsics  camera.Intrinsics
	GroundTruth []core.Image // nil unless the scene asks for ground truth
	Transforms  *loaders.Transforms
}

// BuildPath resolves the scene's render path. maxFrames > 0 truncates it.
func BuildPath(cfg *loaders.SceneConfig, maxFrames int) (Path, error) {
	var p Path
	var err error
	switch cfg.Path.Type {
	case "spherical":
		p.Poses = camera.SphericalPath(cfg.Path.Frames, cfg.Path.Phi, cfg.Path.Radius)
		p.Intrinsics, err = cfg.Intrinsics(nil)
	case "transforms":
		if p.Transforms, err = loaders.LoadTransforms(cfg.Path.Transforms); err != nil {
			return p, err
		}
		if p.Poses, err = p.Transforms.Poses(); err != nil {
			return p, err
		}
		if p.Intrinsics, err = cfg.Intrinsics(p.Transforms); err != nil {
			return p, err
		}
		if cfg.Path.GroundTruth {
			p.GroundTruth, err = p.Transforms.LoadImages(cfg.Render.WhiteBackground)
		}
	default:
		err = fmt.Errorf("unknown path type %q", cfg.Path.Type)
	}
	if err != nil {
		return p, err
	}

	if maxFrames > 0 && maxFrames < len(p.Poses) {
		p.Poses = p.Poses[:maxFrames]
		if p.GroundTruth != nil {
			p.GroundTruth = p.GroundTruth[:maxFrames]
		}
	}
	return p, nil
}
