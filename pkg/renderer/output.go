package renderer

import (
	"github.com/df07/go-nerf/pkg/core"
	"github.com/df07/go-nerf/pkg/field"
)

// Output keys, matching the names used by training and evaluation code
const (
	KeyRGB       = "rgb_map"
	KeyDisparity = "disp_map"
	KeyOpacity   = "acc_map"
	KeyRaw       = "raw"
	KeyRGB0      = "rgb0"
	KeyDisp0     = "disp0"
	KeyAcc0      = "acc0"
	KeyZStd      = "z_std"
)

// Stage holds one pipeline stage's per-ray results as parallel arrays
type Stage struct {
	RGB       []core.Vec3
	Disparity []float64
	Opacity   []float64
	Depth     []float64
	ZVals     [][]float64
	Weights   [][]float64
	Raw       [][]field.Raw // nil unless Options.RetRaw
}

func newStage(n int, keepRaw bool) Stage {
	s := Stage{
		RGB:       make([]core.Vec3, n),
		Disparity: make([]float64, n),
		Opacity:   make([]float64, n),
		Depth:     make([]float64, n),
		ZVals:     make([][]float64, n),
		Weights:   make([][]float64, n),
	}
	if keepRaw {
		s.Raw = make([][]field.Raw, n)
	}
	return s
}

func (s *Stage) append(other Stage) {
	s.RGB = append(s.RGB, other.RGB...)
	s.Disparity = append(s.Disparity, other.Disparity...)
	s.Opacity = append(s.Opacity, other.Opacity...)
	s.Depth = append(s.Depth, other.Depth...)
	s.ZVals = append(s.ZVals, other.ZVals...)
	s.Weights = append(s.Weights, other.Weights...)
	if other.Raw != nil {
		s.Raw = append(s.Raw, other.Raw...)
	}
}

// Anomaly records a non-finite composited value. Rendering continues regardless.
type Anomaly struct {
	Stage string // "coarse" or "fine"
	Key   string // rgb, disparity, opacity, depth or weights
	Ray   int    // global ray index
}

// Output is the result of rendering a ray batch. The embedded Stage is the
// final stage (fine when N_importance > 0, coarse otherwise).
type Output struct {
	Stage
	Coarse    *Stage    // coarse stage, only when a fine stage ran
	ZStd      []float64 // std of importance samples per ray, only when a fine stage ran
	Height    int       // image shape when rendered from a pose, 0 for flat batches
	Width     int
	Anomalies []Anomaly
	Stats     RenderStats
}

// Len returns the number of rays in the output
func (o *Output) Len() int {
	return len(o.RGB)
}

// Index returns the flat index of pixel (x, y) for image-shaped outputs
func (o *Output) Index(x, y int) int {
	return y*o.Width + x
}

// Keys lists the keys present in the output
func (o *Output) Keys() []string {
	keys := []string{KeyRGB, KeyDisparity, KeyOpacity}
	if o.Raw != nil {
		keys = append(keys, KeyRaw)
	}
	if o.Coarse != nil {
		keys = append(keys, KeyRGB0, KeyDisp0, KeyAcc0, KeyZStd)
	}
	return keys
}

// Image returns the final rgb values as an image. Only valid for image-shaped outputs.
func (o *Output) Image() core.Image {
	return core.Image{Width: o.Width, Height: o.Height, Pixels: o.RGB}
}

// Append concatenates another chunk's results in ray order
func (o *Output) Append(other *Output) {
	o.Stage.append(other.Stage)
	if other.Coarse != nil {
		if o.Coarse == nil {
			o.Coarse = &Stage{}
		}
		o.Coarse.append(*other.Coarse)
		o.ZStd = append(o.ZStd, other.ZStd...)
	}
	o.Anomalies = append(o.Anomalies, other.Anomalies...)
	o.Stats.merge(other.Stats)
}
