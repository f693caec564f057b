// Package sampling chooses depth values along rays: stratified coarse samples
// and importance samples drawn from the coarse pass's weights.
package sampling

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/df07/go-nerf/pkg/core"
)

const (
	// pdfEps is added to every weight so empty rays fall back to a uniform PDF
	pdfEps = 1e-5
	// cdfEps is the bin-width floor below which interpolation uses denominator 1
	cdfEps = 1e-5
)

// Linspace returns n evenly spaced values from a to b inclusive
func Linspace(a, b float64, n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{a}
	}
	return floats.Span(make([]float64, n), a, b)
}

// CoarseDepths places n samples between near and far, evenly in depth or, with
// linDisp, evenly in inverse depth. perturb > 0 jitters each sample uniformly
// within its stratum using the ray's sampler.
func CoarseDepths(near, far float64, n int, linDisp bool, perturb float64, sampler core.Sampler) []float64 {
	t := Linspace(0, 1, n)
	z := make([]float64, n)
	for i, ti := range t {
		if linDisp {
			z[i] = 1 / (1/near*(1-ti) + 1/far*ti)
		} else {
			z[i] = near*(1-ti) + far*ti
		}
	}
	if perturb <= 0 || n < 2 {
		return z
	}

	mids := Midpoints(z)
	jittered := make([]float64, n)
	for i := range z {
		lower, upper := z[0], z[n-1]
		if i > 0 {
			lower = mids[i-1]
		}
		if i < n-1 {
			upper = mids[i]
		}
		jittered[i] = lower + (upper-lower)*sampler.Get1D()
	}
	return jittered
}

// Midpoints returns the n-1 midpoints between consecutive values
func Midpoints(z []float64) []float64 {
	if len(z) < 2 {
		return nil
	}
	mids := make([]float64, len(z)-1)
	for i := range mids {
		mids[i] = 0.5 * (z[i] + z[i+1])
	}
	return mids
}

// SamplePDF draws n depths from the piecewise-constant density over bins whose
// per-bin mass is weights (len(bins) == len(weights)+1). With det the CDF is
// inverted at evenly spaced points in [0,1]; otherwise at uniform random draws.
// All-zero weights yield uniform samples.
func SamplePDF(bins, weights []float64, n int, det bool, sampler core.Sampler) []float64 {
	if len(bins) != len(weights)+1 {
		panic(fmt.Sprintf("sample pdf: bins length (%d) must be weights length (%d) + 1", len(bins), len(weights)))
	}

	pdf := make([]float64, len(weights))
	for i, w := range weights {
		pdf[i] = w + pdfEps
	}
	floats.Scale(1/floats.Sum(pdf), pdf)

	cdf := make([]float64, len(bins))
	floats.CumSum(cdf[1:], pdf)

	var u []float64
	if det {
		u = Linspace(0, 1, n)
	} else {
		u = make([]float64, n)
		for i := range u {
			u[i] = sampler.Get1D()
		}
	}

	samples := make([]float64, n)
	last := len(cdf) - 1
	for i, ui := range u {
		idx := sort.Search(len(cdf), func(k int) bool { return cdf[k] > ui })
		below := max(0, idx-1)
		above := min(last, idx)

		denom := cdf[above] - cdf[below]
		if denom < cdfEps {
			denom = 1
		}
		t := (ui - cdf[below]) / denom
		samples[i] = bins[below] + t*(bins[above]-bins[below])
	}
	return samples
}

// MergeSorted returns the sorted union of two depth sets
func MergeSorted(a, b []float64) []float64 {
	merged := make([]float64, 0, len(a)+len(b))
	merged = append(merged, a...)
	merged = append(merged, b...)
	slices.Sort(merged)
	return merged
}

// PopStdDev returns the population standard deviation of the values
func PopStdDev(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	_, variance := stat.MeanVariance(x, nil)
	n := float64(len(x))
	return math.Sqrt(variance * (n - 1) / n)
}
