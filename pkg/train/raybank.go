// Package train holds the per-step plumbing around the renderer: shuffled ray
// batches with their target colors, losses, and the learning-rate schedule.
// The optimizer itself lives outside this module.
package train

import (
	"fmt"
	"math/rand/v2"

	"github.com/df07/go-nerf/pkg/camera"
	"github.com/df07/go-nerf/pkg/core"
)

// RayBank holds every ray of a set of training views together with its target
// color and serves them in shuffled batches, reshuffling after each pass.
type RayBank struct {
	rays      core.RayBatch
	targets   []core.Vec3
	batchSize int
	next      int
	epoch     int
	rng       *rand.Rand
}

// NewRayBank generates the rays of every pose and pairs them with the pixels of
// the matching image. The bank is shuffled once before the first batch.
func NewRayBank(in camera.Intrinsics, poses []camera.Pose, images []core.Image, near, far float64, batchSize int, seed uint64) (*RayBank, error) {
	if batchSize <= 0 {
		return nil, &core.ConfigurationError{Field: "N_rand", Reason: fmt.Sprintf("%d must be positive", batchSize)}
	}
	if len(poses) == 0 {
		return nil, core.ErrNoRays
	}
	if len(images) != len(poses) {
		return nil, &core.ConfigurationError{Field: "images", Reason: fmt.Sprintf("%d images for %d poses", len(images), len(poses))}
	}

	total := len(poses) * in.Pixels()
	var origins, dirs, targets []core.Vec3
	origins = make([]core.Vec3, 0, total)
	dirs = make([]core.Vec3, 0, total)
	targets = make([]core.Vec3, 0, total)
	for i, pose := range poses {
		img := images[i]
		if img.Width != in.Width || img.Height != in.Height {
			return nil, &core.ConfigurationError{Field: "images", Reason: fmt.Sprintf("image %d is %dx%d, camera is %dx%d", i, img.Width, img.Height, in.Width, in.Height)}
		}
		o, d, err := camera.GetRays(in, pose, core.Float64)
		if err != nil {
			return nil, fmt.Errorf("pose %d: %w", i, err)
		}
		origins = append(origins, o...)
		dirs = append(dirs, d...)
		targets = append(targets, img.Pixels...)
	}

	b := &RayBank{
		rays:      core.NewRayBatch(origins, dirs, near, far),
		targets:   targets,
		batchSize: batchSize,
		rng:       rand.New(rand.NewPCG(seed, 0x6e657266)),
	}
	b.shuffle()
	return b, nil
}

// Len returns the number of rays in the bank
func (b *RayBank) Len() int {
	return len(b.targets)
}

// Epoch returns the number of completed passes over the bank
func (b *RayBank) Epoch() int {
	return b.epoch
}

// Next returns the next batch of rays and their target colors. The last batch
// of a pass may be short; the bank is then reshuffled and starts over.
// Batches share storage with the bank until the next reshuffle.
func (b *RayBank) Next() (core.RayBatch, []core.Vec3) {
	end := min(b.next+b.batchSize, b.Len())
	batch := b.rays.Slice(b.next, end)
	targets := b.targets[b.next:end]

	b.next = end
	if b.next >= b.Len() {
		// copy out before the shuffle reorders the shared storage
		batch = copyBatch(batch)
		targets = append([]core.Vec3(nil), targets...)
		b.shuffle()
		b.next = 0
		b.epoch++
	}
	return batch, targets
}

func (b *RayBank) shuffle() {
	b.rng.Shuffle(b.Len(), func(i, j int) {
		b.rays.Origins[i], b.rays.Origins[j] = b.rays.Origins[j], b.rays.Origins[i]
		b.rays.Directions[i], b.rays.Directions[j] = b.rays.Directions[j], b.rays.Directions[i]
		b.rays.Near[i], b.rays.Near[j] = b.rays.Near[j], b.rays.Near[i]
		b.rays.Far[i], b.rays.Far[j] = b.rays.Far[j], b.rays.Far[i]
		b.targets[i], b.targets[j] = b.targets[j], b.targets[i]
	})
}

func copyBatch(b core.RayBatch) core.RayBatch {
	return core.RayBatch{
		Origins:    append([]core.Vec3(nil), b.Origins...),
		Directions: append([]core.Vec3(nil), b.Directions...),
		Near:       append([]float64(nil), b.Near...),
		Far:        append([]float64(nil), b.Far...),
	}
}

// SampleImageRays picks n distinct pixels of a single view at random and
// returns their rays and colors.
func SampleImageRays(in camera.Intrinsics, pose camera.Pose, img core.Image, n int, near, far float64, rng *rand.Rand) (core.RayBatch, []core.Vec3, error) {
	if n <= 0 || n > in.Pixels() {
		return core.RayBatch{}, nil, &core.ConfigurationError{Field: "N_rand", Reason: fmt.Sprintf("%d must be in [1, %d]", n, in.Pixels())}
	}
	if img.Width != in.Width || img.Height != in.Height {
		return core.RayBatch{}, nil, &core.ConfigurationError{Field: "image", Reason: fmt.Sprintf("image is %dx%d, camera is %dx%d", img.Width, img.Height, in.Width, in.Height)}
	}
	origins, dirs, err := camera.GetRays(in, pose, core.Float64)
	if err != nil {
		return core.RayBatch{}, nil, err
	}

	selected := rng.Perm(in.Pixels())[:n]
	o := make([]core.Vec3, n)
	d := make([]core.Vec3, n)
	targets := make([]core.Vec3, n)
	for k, idx := range selected {
		o[k] = origins[idx]
		d[k] = dirs[idx]
		targets[k] = img.Pixels[idx]
	}
	return core.NewRayBatch(o, d, near, far), targets, nil
}
