package renderer

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/df07/go-nerf/pkg/camera"
	"github.com/df07/go-nerf/pkg/core"
	"github.com/df07/go-nerf/pkg/loaders"
)

// PathOptions configures path rendering behavior
type PathOptions struct {
	RenderFactor int               // Divide image size and focal by this for previews (0 or 1 = full size)
	NumWorkers   int               // Frames rendered in parallel (0 = use CPU count); fields must be safe for concurrent use
	PSNRCap      float64           // Upper bound reported for PSNR (0 = uncapped, perfect frames give +Inf)
	Sink         func(Frame) error // Called once per frame in completion order; an error stops the path
}

// Frame is one rendered pose of a path
type Frame struct {
	Index   int
	Output  *Output
	PSNR    float64 // NaN when no ground truth was supplied
	Elapsed time.Duration
}

// HasPSNR reports whether the frame was scored against ground truth
func (f Frame) HasPSNR() bool {
	return !math.IsNaN(f.PSNR)
}

// RenderPath renders one image per pose and, when groundTruth is non-empty,
// scores frame i against groundTruth[i]. Ground truth of a different size
// (e.g. with a render factor) is resampled to the rendered size first.
// Frames are returned in pose order.
func (r *Renderer) RenderPath(ctx context.Context, poses []camera.Pose, intrinsics camera.Intrinsics, groundTruth []core.Image, opts PathOptions) ([]Frame, error) {
	if len(poses) == 0 {
		return nil, &core.ConfigurationError{Field: "poses", Reason: "render path is empty"}
	}
	if len(groundTruth) > 0 && len(groundTruth) != len(poses) {
		return nil, &core.ConfigurationError{Field: "ground truth", Reason: fmt.Sprintf("%d images for %d poses", len(groundTruth), len(poses))}
	}
	for i, gt := range groundTruth {
		if err := gt.Validate(); err != nil {
			return nil, fmt.Errorf("ground truth %d: %w", i, err)
		}
	}

	if opts.RenderFactor > 1 {
		intrinsics = intrinsics.Scaled(opts.RenderFactor)
	}
	if err := intrinsics.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool := NewWorkerPool(r, intrinsics, opts.NumWorkers, len(poses))
	r.logger.Info().
		Int("frames", len(poses)).
		Int("width", intrinsics.Width).
		Int("height", intrinsics.Height).
		Int("workers", pool.GetNumWorkers()).
		Msg("rendering path")

	pool.Start(ctx)
	for i, pose := range poses {
		pool.SubmitTask(FrameTask{Index: i, Pose: pose})
	}

	// Collect frames, dispatching the sink from this goroutine only
	frames := make([]Frame, len(poses))
	var firstErr error
	for range poses {
		result, ok := pool.GetResult()
		if !ok {
			firstErr = fmt.Errorf("worker pool closed unexpectedly")
			break
		}
		if firstErr != nil {
			continue
		}
		if result.Error != nil {
			firstErr = fmt.Errorf("frame %d: %w", result.Index, result.Error)
			cancel()
			continue
		}

		frame := Frame{Index: result.Index, Output: result.Output, PSNR: math.NaN(), Elapsed: result.Elapsed}
		if len(groundTruth) > 0 {
			psnr, err := scoreFrame(result.Output, groundTruth[result.Index], opts.PSNRCap)
			if err != nil {
				firstErr = fmt.Errorf("frame %d: %w", result.Index, err)
				cancel()
				continue
			}
			frame.PSNR = psnr
		}

		event := r.logger.Info().Int("frame", frame.Index).Dur("elapsed", frame.Elapsed)
		if frame.HasPSNR() {
			event = event.Float64("psnr", frame.PSNR)
		}
		event.Msg("frame rendered")

		if opts.Sink != nil {
			if err := opts.Sink(frame); err != nil {
				firstErr = fmt.Errorf("frame %d: %w", frame.Index, err)
				cancel()
				continue
			}
		}
		frames[frame.Index] = frame
	}
	pool.Stop()

	if firstErr != nil {
		return nil, firstErr
	}
	return frames, nil
}

// scoreFrame computes the PSNR of a rendered frame against its ground truth
func scoreFrame(out *Output, gt core.Image, psnrCap float64) (float64, error) {
	if gt.Width != out.Width || gt.Height != out.Height {
		gt = loaders.Resize(gt, out.Width, out.Height)
	}
	mse, err := MSE(out.RGB, gt.Pixels)
	if err != nil {
		return 0, err
	}
	return CappedPSNR(mse, psnrCap), nil
}

// MeanPSNR averages the PSNR of the scored frames, or returns NaN if none were scored
func MeanPSNR(frames []Frame) float64 {
	var sum float64
	var n int
	for _, f := range frames {
		if f.HasPSNR() {
			sum += f.PSNR
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
