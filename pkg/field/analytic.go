package field

import (
	"math"

	"github.com/df07/go-nerf/pkg/core"
)

// emptyDensity is the raw density reported where a closed-form field has no
// mass; it maps to ~0 under both ReLU and softplus.
const emptyDensity = -1e3

// Logit inverts the sigmoid color activation, clamping away from 0 and 1
func Logit(c float64) float64 {
	c = math.Max(1e-6, math.Min(1-1e-6, c))
	return math.Log(c / (1 - c))
}

func logitVec(c core.Vec3) core.Vec3 {
	return core.NewVec3(Logit(c.X), Logit(c.Y), Logit(c.Z))
}

func raw(colorLogits core.Vec3, density float64) Raw {
	return Raw{colorLogits.X, colorLogits.Y, colorLogits.Z, density}
}

// Constant returns the same color and density everywhere
type Constant struct {
	Color   core.Vec3 // in [0,1]
	Density float64
}

// Query implements Field
func (c *Constant) Query(points, viewDirs []core.Vec3) ([]Raw, error) {
	out := make([]Raw, len(points))
	r := raw(logitVec(c.Color), c.Density)
	for i := range out {
		out[i] = r
	}
	return out, nil
}

// Sphere is a solid ball of uniform density and color in empty space
type Sphere struct {
	Center  core.Vec3
	Radius  float64
	Color   core.Vec3
	Density float64
}

// NewSphere creates a new sphere field
func NewSphere(center core.Vec3, radius float64, color core.Vec3, density float64) *Sphere {
	return &Sphere{
		Center:  center,
		Radius:  radius,
		Color:   color,
		Density: density,
	}
}

// Contains reports whether p lies inside the sphere
func (s *Sphere) Contains(p core.Vec3) bool {
	return p.Subtract(s.Center).LengthSquared() <= s.Radius*s.Radius
}

// Query implements Field
func (s *Sphere) Query(points, viewDirs []core.Vec3) ([]Raw, error) {
	out := make([]Raw, len(points))
	inside := raw(logitVec(s.Color), s.Density)
	outside := raw(core.Vec3{}, emptyDensity)
	for i, p := range points {
		if s.Contains(p) {
			out[i] = inside
		} else {
			out[i] = outside
		}
	}
	return out, nil
}

// Blob is one isotropic Gaussian density lobe
type Blob struct {
	Center    core.Vec3
	Sigma     float64 // spatial standard deviation
	Amplitude float64 // peak density
	Color     core.Vec3
}

// Blobs is a smooth mixture of Gaussian lobes. Color at a point is the
// density-weighted average of the lobe colors.
type Blobs struct {
	Lobes []Blob
}

// Query implements Field
func (b *Blobs) Query(points, viewDirs []core.Vec3) ([]Raw, error) {
	out := make([]Raw, len(points))
	for i, p := range points {
		var density float64
		var color core.Vec3
		for _, lobe := range b.Lobes {
			d2 := p.Subtract(lobe.Center).LengthSquared()
			w := lobe.Amplitude * math.Exp(-d2/(2*lobe.Sigma*lobe.Sigma))
			density += w
			color = color.Add(lobe.Color.Multiply(w))
		}
		if density <= 1e-12 {
			out[i] = raw(core.Vec3{}, emptyDensity)
			continue
		}
		out[i] = raw(logitVec(color.Multiply(1/density)), density)
	}
	return out, nil
}
