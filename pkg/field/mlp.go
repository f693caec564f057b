package field

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// MLPConfig describes the layered network with skip connections
type MLPConfig struct {
	Depth       int    `yaml:"depth" json:"depth"`
	Width       int    `yaml:"width" json:"width"`
	Skips       []int  `yaml:"skips" json:"skips"`
	UseViewDirs bool   `yaml:"use_viewdirs" json:"use_viewdirs"`
	Seed        uint64 `yaml:"seed" json:"seed"`
}

// DefaultMLPConfig returns the 8x256 layout with a skip after layer 4
func DefaultMLPConfig() MLPConfig {
	return MLPConfig{Depth: 8, Width: 256, Skips: []int{4}}
}

type dense struct {
	w *mat.Dense // in x out
	b []float64
}

func newDense(in, out int, rng *rand.Rand) dense {
	limit := math.Sqrt(6.0 / float64(in+out))
	w := mat.NewDense(in, out, nil)
	for i := 0; i < in; i++ {
		for j := 0; j < out; j++ {
			w.Set(i, j, (2*rng.Float64()-1)*limit)
		}
	}
	return dense{w: w, b: make([]float64, out)}
}

func (d dense) apply(x mat.Matrix, relu bool) *mat.Dense {
	var y mat.Dense
	y.Mul(x, d.w)
	y.Apply(func(_, j int, v float64) float64 {
		v += d.b[j]
		if relu && v < 0 {
			return 0
		}
		return v
	}, &y)
	return &y
}

// MLP is a feed-forward network over encoded positions and, optionally, encoded
// view directions. Weights are fixed after construction, so Forward is safe for
// concurrent use.
type MLP struct {
	cfg          MLPConfig
	inputCh      int
	inputChViews int

	pts     []dense
	views   dense
	feature dense
	alpha   dense
	rgb     dense
	output  dense
}

// NewMLP creates a network with Glorot-uniform weights drawn from cfg.Seed
func NewMLP(cfg MLPConfig, inputCh, inputChViews int) (*MLP, error) {
	if cfg.Depth < 1 || cfg.Width < 2 {
		return nil, fmt.Errorf("invalid network size %dx%d", cfg.Depth, cfg.Width)
	}
	if inputCh <= 0 {
		return nil, fmt.Errorf("input width must be positive, got %d", inputCh)
	}
	if cfg.UseViewDirs && inputChViews <= 0 {
		return nil, fmt.Errorf("view-direction input width must be positive, got %d", inputChViews)
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, 0x6e657266))
	m := &MLP{cfg: cfg, inputCh: inputCh, inputChViews: inputChViews}

	m.pts = append(m.pts, newDense(inputCh, cfg.Width, rng))
	for i := 0; i < cfg.Depth-1; i++ {
		in := cfg.Width
		if slices.Contains(cfg.Skips, i) {
			in += inputCh
		}
		m.pts = append(m.pts, newDense(in, cfg.Width, rng))
	}

	if cfg.UseViewDirs {
		m.feature = newDense(cfg.Width, cfg.Width, rng)
		m.alpha = newDense(cfg.Width, 1, rng)
		m.views = newDense(inputChViews+cfg.Width, cfg.Width/2, rng)
		m.rgb = newDense(cfg.Width/2, 3, rng)
	} else {
		m.output = newDense(cfg.Width, 4, rng)
	}
	return m, nil
}

// InputWidth returns the number of feature columns Forward expects
func (m *MLP) InputWidth() int {
	if m.cfg.UseViewDirs {
		return m.inputCh + m.inputChViews
	}
	return m.inputCh
}

// Forward implements Network
func (m *MLP) Forward(features [][]float64) ([]Raw, error) {
	n := len(features)
	if n == 0 {
		return nil, nil
	}
	width := m.InputWidth()
	data := make([]float64, 0, n*width)
	for i, row := range features {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has %d features, want %d", i, len(row), width)
		}
		data = append(data, row...)
	}
	x := mat.NewDense(n, width, data)
	inputPts := x.Slice(0, n, 0, m.inputCh)

	var h mat.Matrix = inputPts
	for i, layer := range m.pts {
		h = layer.apply(h, true)
		if slices.Contains(m.cfg.Skips, i) {
			var cat mat.Dense
			cat.Augment(inputPts, h)
			h = &cat
		}
	}

	out := make([]Raw, n)
	if !m.cfg.UseViewDirs {
		y := m.output.apply(h, false)
		for i := range out {
			out[i] = Raw{y.At(i, 0), y.At(i, 1), y.At(i, 2), y.At(i, 3)}
		}
		return out, nil
	}

	alpha := m.alpha.apply(h, false)
	feature := m.feature.apply(h, false)
	var cat mat.Dense
	cat.Augment(feature, x.Slice(0, n, m.inputCh, width))
	hv := m.views.apply(&cat, true)
	rgb := m.rgb.apply(hv, false)
	for i := range out {
		out[i] = Raw{rgb.At(i, 0), rgb.At(i, 1), rgb.At(i, 2), alpha.At(i, 0)}
	}
	return out, nil
}
