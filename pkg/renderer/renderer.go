// Package renderer turns rays into pixel estimates by sampling a radiance field
// along each ray and compositing the samples, in a coarse and an optional fine stage.
package renderer

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/df07/go-nerf/pkg/camera"
	"github.com/df07/go-nerf/pkg/core"
	"github.com/df07/go-nerf/pkg/field"
	"github.com/df07/go-nerf/pkg/integrator"
	"github.com/df07/go-nerf/pkg/sampling"
)

// Renderer renders ray batches and images against a coarse and an optional fine field.
// A Renderer holds no mutable state and is safe for concurrent use when its fields are.
type Renderer struct {
	coarse field.Field
	fine   field.Field
	opts   Options
	source core.SampleSource
	logger zerolog.Logger
}

// Option configures a Renderer
type Option func(*Renderer)

// WithFineField sets a separate field for the fine stage. Without it the
// coarse field is queried for both stages.
func WithFineField(f field.Field) Option {
	return func(r *Renderer) {
		r.fine = f
	}
}

// WithSampleSource sets the source of jitter, noise and importance draws
func WithSampleSource(s core.SampleSource) Option {
	return func(r *Renderer) {
		r.source = s
	}
}

// WithLogger sets the logger used for anomaly and progress reports
func WithLogger(l zerolog.Logger) Option {
	return func(r *Renderer) {
		r.logger = l
	}
}

// New creates a renderer. The options are validated here, so every render
// call can assume a consistent configuration.
func New(coarse field.Field, opts Options, options ...Option) (*Renderer, error) {
	if coarse == nil {
		return nil, &core.ConfigurationError{Field: "field", Reason: "coarse field is required"}
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	r := &Renderer{
		coarse: coarse,
		opts:   opts,
		source: core.NewSeededSource(rand.Uint64()),
		logger: zerolog.Nop(),
	}
	for _, o := range options {
		o(r)
	}
	if r.fine == nil {
		r.fine = r.coarse
	}
	return r, nil
}

// Options returns the renderer's configuration
func (r *Renderer) Options() Options {
	return r.opts
}

// Evaluation returns a renderer sharing fields and randomness but with
// stochastic perturbation disabled, for test-time rendering.
func (r *Renderer) Evaluation() *Renderer {
	c := *r
	c.opts = r.opts.ForEvaluation()
	return &c
}

// withSource returns a shallow copy drawing from a different source
func (r *Renderer) withSource(s core.SampleSource) *Renderer {
	c := *r
	c.source = s
	return &c
}

// RenderRays runs the coarse and optional fine stage over a single batch.
// offset is the global index of the batch's first ray; per-ray randomness
// is keyed by it so splitting a batch never changes the draws a ray sees.
func (r *Renderer) RenderRays(batch core.RayBatch, offset int) (*Output, error) {
	if err := batch.Validate(); err != nil {
		return nil, err
	}
	return r.renderRays(batch, offset)
}

// BatchifyRays renders a batch of any size in sequential chunks of at most
// Options.Chunk rays and concatenates the results in ray order.
func (r *Renderer) BatchifyRays(batch core.RayBatch) (*Output, error) {
	if err := batch.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	out := &Output{}
	n := batch.Len()
	for lo := 0; lo < n; lo += r.opts.Chunk {
		hi := min(lo+r.opts.Chunk, n)
		chunk, err := r.renderRays(batch.Slice(lo, hi), lo)
		if err != nil {
			return nil, err
		}
		out.Append(chunk)
	}
	out.Stats.Elapsed = time.Since(start)

	r.logger.Debug().
		Int("rays", out.Stats.TotalRays).
		Int("chunks", out.Stats.Chunks).
		Float64("samples_per_ray", out.Stats.AverageSamples).
		Dur("elapsed", out.Stats.Elapsed).
		Msg("rendered ray batch")
	return out, nil
}

// Request describes a full-image render
type Request struct {
	Intrinsics camera.Intrinsics
	Pose       camera.Pose    // camera-to-world pose, used when Rays is nil
	Rays       *core.RayBatch // prebuilt rays; near/far are replaced by Options.Near/Far
	StaticPose camera.Pose    // if set, rays come from this pose while view directions come from Pose
}

// Render builds the rays for a request, renders them in chunks, and shapes
// the result as an image when the rays came from a pose.
func (r *Renderer) Render(req Request) (*Output, error) {
	var origins, directions []core.Vec3
	if req.Rays != nil {
		origins, directions = req.Rays.Origins, req.Rays.Directions
		if len(origins) != len(directions) {
			return nil, &core.ConfigurationError{Field: "rays", Reason: fmt.Sprintf("mismatched lengths: origins=%d directions=%d", len(origins), len(directions))}
		}
	} else {
		if req.Pose.IsZero() {
			return nil, &core.ConfigurationError{Field: "pose", Reason: "either a pose or a ray batch is required"}
		}
		var err error
		origins, directions, err = camera.GetRays(req.Intrinsics, req.Pose, r.opts.Precision)
		if err != nil {
			return nil, err
		}
	}
	if len(origins) == 0 {
		return nil, core.ErrNoRays
	}

	// view directions come from the main pose, before any reprojection
	viewSource := directions

	if !req.StaticPose.IsZero() {
		var err error
		origins, directions, err = camera.GetRays(req.Intrinsics, req.StaticPose, r.opts.Precision)
		if err != nil {
			return nil, err
		}
		if len(origins) != len(viewSource) {
			return nil, &core.ConfigurationError{Field: "static pose", Reason: fmt.Sprintf("%d rays for %d view directions", len(origins), len(viewSource))}
		}
	}

	if r.opts.NDC {
		if err := req.Intrinsics.Validate(); err != nil {
			return nil, err
		}
		origins, directions = camera.NDCRays(req.Intrinsics, 1.0, origins, directions, r.opts.Precision)
	}

	batch := core.NewRayBatch(origins, directions, r.opts.Near, r.opts.Far)
	if r.opts.UseViewDirs {
		batch = batch.WithViewDirs(viewSource)
	}

	out, err := r.BatchifyRays(batch)
	if err != nil {
		return nil, err
	}
	if req.Rays == nil {
		out.Height, out.Width = req.Intrinsics.Height, req.Intrinsics.Width
	}
	return out, nil
}

// renderRays assumes the batch has been validated
func (r *Renderer) renderRays(batch core.RayBatch, offset int) (*Output, error) {
	if r.opts.LinDisp {
		for i, near := range batch.Near {
			if near <= 0 {
				return nil, &core.ConfigurationError{Field: "near", Reason: fmt.Sprintf("ray %d: lindisp sampling needs a positive near bound, got %g", offset+i, near)}
			}
		}
	}

	n := batch.Len()
	samplers := make([]core.Sampler, n)
	for i := range samplers {
		samplers[i] = r.source.ForRay(offset + i)
	}

	var viewDirs []core.Vec3
	if r.opts.UseViewDirs {
		if batch.HasViewDirs() {
			viewDirs = batch.ViewDirs
		} else {
			viewDirs = batch.WithViewDirs(batch.Directions).ViewDirs
		}
	}

	out := &Output{Stats: RenderStats{TotalRays: n, Chunks: 1}}

	// coarse stage
	zVals := make([][]float64, n)
	for i := 0; i < n; i++ {
		zVals[i] = sampling.CoarseDepths(batch.Near[i], batch.Far[i], r.opts.NSamples, r.opts.LinDisp, r.opts.Perturb, samplers[i])
	}
	coarse, err := r.runStage("coarse", r.coarse, batch, zVals, viewDirs, samplers, offset, out)
	if err != nil {
		return nil, err
	}

	if r.opts.NImportance == 0 {
		out.Stage = coarse
		out.Stats.finalize()
		return out, nil
	}

	// fine stage
	det := r.opts.Perturb == 0
	merged := make([][]float64, n)
	out.ZStd = make([]float64, n)
	for i := 0; i < n; i++ {
		z := coarse.ZVals[i]
		w := coarse.Weights[i]
		mids := sampling.Midpoints(z)
		samples := sampling.SamplePDF(mids, w[1:len(w)-1], r.opts.NImportance, det, samplers[i])
		out.ZStd[i] = r.opts.Precision.Round(sampling.PopStdDev(samples))
		merged[i] = sampling.MergeSorted(z, samples)
	}
	fine, err := r.runStage("fine", r.fine, batch, merged, viewDirs, samplers, offset, out)
	if err != nil {
		return nil, err
	}

	out.Stage = fine
	out.Coarse = &coarse
	out.Stats.finalize()
	return out, nil
}

// runStage queries the field at the given depths and composites each ray
func (r *Renderer) runStage(name string, f field.Field, batch core.RayBatch, zVals [][]float64, viewDirs []core.Vec3, samplers []core.Sampler, offset int, out *Output) (Stage, error) {
	n := batch.Len()
	p := r.opts.Precision

	points := make([][]core.Vec3, n)
	for i := 0; i < n; i++ {
		ray := batch.Ray(i)
		pts := make([]core.Vec3, len(zVals[i]))
		for k, z := range zVals[i] {
			pts[k] = p.RoundVec(ray.At(z))
		}
		points[i] = pts
		out.Stats.TotalSamples += len(pts)
	}

	raw, err := field.RunNetwork(f, points, viewDirs, r.opts.NetChunk, p)
	if err != nil {
		return Stage{}, fmt.Errorf("%s stage: %w", name, err)
	}

	cfg := r.opts.integratorConfig()
	stage := newStage(n, r.opts.RetRaw)
	for i := 0; i < n; i++ {
		res := integrator.Composite(raw[i], zVals[i], batch.Directions[i], cfg, samplers[i])
		for _, key := range res.NonFinite() {
			r.reportAnomaly(out, Anomaly{Stage: name, Key: key, Ray: offset + i})
		}

		stage.RGB[i] = res.RGB
		stage.Disparity[i] = res.Disparity
		stage.Opacity[i] = res.Opacity
		stage.Depth[i] = res.Depth
		stage.ZVals[i] = zVals[i]
		stage.Weights[i] = res.Weights
		if stage.Raw != nil {
			stage.Raw[i] = raw[i]
		}
	}
	return stage, nil
}

// reportAnomaly logs a non-finite value and records it on the output
func (r *Renderer) reportAnomaly(out *Output, a Anomaly) {
	r.logger.Warn().
		Str("stage", a.Stage).
		Str("key", a.Key).
		Int("ray", a.Ray).
		Msg("numerical anomaly in composited output")
	out.Anomalies = append(out.Anomalies, a)
	out.Stats.Anomalies++
}
