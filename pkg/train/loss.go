package train

import (
	"fmt"

	"github.com/df07/go-nerf/pkg/core"
	"github.com/df07/go-nerf/pkg/renderer"
)

// Metrics summarises a training step's photometric error
type Metrics struct {
	Loss  float64 // fine loss plus coarse loss when a fine stage ran
	MSE   float64 // final-stage error
	PSNR  float64
	MSE0  float64 // coarse-stage error, zero without a fine stage
	PSNR0 float64
}

// Evaluate scores a rendered batch against its target colors
func Evaluate(out *renderer.Output, targets []core.Vec3) (Metrics, error) {
	mse, err := renderer.MSE(out.RGB, targets)
	if err != nil {
		return Metrics{}, fmt.Errorf("fine loss: %w", err)
	}
	m := Metrics{Loss: mse, MSE: mse, PSNR: renderer.PSNR(mse)}

	if out.Coarse != nil {
		mse0, err := renderer.MSE(out.Coarse.RGB, targets)
		if err != nil {
			return Metrics{}, fmt.Errorf("coarse loss: %w", err)
		}
		m.MSE0 = mse0
		m.PSNR0 = renderer.PSNR(mse0)
		m.Loss += mse0
	}
	return m, nil
}
