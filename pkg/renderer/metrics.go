package renderer

import (
	"fmt"
	"math"

	"github.com/df07/go-nerf/pkg/core"
)

// MSE returns the mean squared error over all color channels
func MSE(got, want []core.Vec3) (float64, error) {
	if len(got) != len(want) {
		return 0, &core.ConfigurationError{Field: "ground truth", Reason: fmt.Sprintf("%d pixels, rendered %d", len(want), len(got))}
	}
	if len(got) == 0 {
		return 0, core.ErrNoRays
	}
	var sum float64
	for i := range got {
		d := got[i].Subtract(want[i])
		sum += d.LengthSquared()
	}
	return sum / float64(3*len(got)), nil
}

// PSNR converts a mean squared error to peak signal-to-noise ratio in dB for
// signals in [0,1]. A zero error gives +Inf.
func PSNR(mse float64) float64 {
	return -10 * math.Log10(mse)
}

// CappedPSNR is PSNR limited to psnrCap when psnrCap > 0
func CappedPSNR(mse, psnrCap float64) float64 {
	psnr := PSNR(mse)
	if psnrCap > 0 && psnr > psnrCap {
		return psnrCap
	}
	return psnr
}
