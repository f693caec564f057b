// Package export writes rendered frames to disk
package export

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/mrjoshuak/go-openexr/exr"

	"github.com/df07/go-nerf/pkg/core"
)

// To8Bit maps a [0,1] value to a byte, clipping out-of-range values
func To8Bit(v float64) uint8 {
	if math.IsNaN(v) {
		return 0
	}
	return uint8(255 * math.Max(0, math.Min(1, v)))
}

// ToRGBA converts a linear image to 8 bits per channel without gamma
func ToRGBA(img core.Image) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			c := img.At(x, y)
			out.SetRGBA(x, y, color.RGBA{R: To8Bit(c.X), G: To8Bit(c.Y), B: To8Bit(c.Z), A: 255})
		}
	}
	return out
}

// WritePNG writes an image as an 8-bit PNG
func WritePNG(path string, img core.Image) error {
	if err := img.Validate(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, ToRGBA(img)); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}

// disparityStops is the colormap for disparity frames, far to near
var disparityStops = []colorful.Color{
	{R: 0.05, G: 0.03, B: 0.20},
	{R: 0.70, G: 0.20, B: 0.45},
	{R: 0.99, G: 0.90, B: 0.55},
}

// MaxDisparity returns the largest finite disparity over a set of frames,
// used to normalize a whole path consistently
func MaxDisparity(frames ...[]float64) float64 {
	maxDisp := 0.0
	for _, disp := range frames {
		for _, d := range disp {
			if core.IsFinite(d) && d > maxDisp {
				maxDisp = d
			}
		}
	}
	return maxDisp
}

// DisparityImage normalizes disparity by maxDisp and shades it either as
// grayscale or through an HCL-blended colormap
func DisparityImage(disp []float64, width, height int, maxDisp float64, colormap bool) core.Image {
	img := core.NewImage(width, height)
	for i, d := range disp {
		t := 0.0
		if maxDisp > 0 && core.IsFinite(d) {
			t = math.Max(0, math.Min(1, d/maxDisp))
		}
		if !colormap {
			img.Pixels[i] = core.NewVec3(t, t, t)
			continue
		}
		c := colormapAt(t)
		img.Pixels[i] = core.NewVec3(c.R, c.G, c.B)
	}
	return img
}

// WriteDisparityPNG shades disparity with DisparityImage and writes it as PNG
func WriteDisparityPNG(path string, disp []float64, width, height int, maxDisp float64, colormap bool) error {
	if len(disp) != width*height {
		return &core.ConfigurationError{Field: "disparity", Reason: fmt.Sprintf("%d values for %dx%d image", len(disp), width, height)}
	}
	return WritePNG(path, DisparityImage(disp, width, height, maxDisp, colormap))
}

func colormapAt(t float64) colorful.Color {
	segments := len(disparityStops) - 1
	pos := t * float64(segments)
	k := min(int(pos), segments-1)
	return disparityStops[k].BlendHcl(disparityStops[k+1], pos-float64(k)).Clamped()
}

// WriteEXR writes a float32 OpenEXR image. alpha is typically the accumulated
// opacity; nil writes an opaque image.
func WriteEXR(path string, img core.Image, alpha []float64) error {
	if err := img.Validate(); err != nil {
		return err
	}
	if alpha != nil && len(alpha) != len(img.Pixels) {
		return &core.ConfigurationError{Field: "alpha", Reason: fmt.Sprintf("%d values for %d pixels", len(alpha), len(img.Pixels))}
	}

	out := exr.NewRGBAImage(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			i := y*img.Width + x
			c := img.Pixels[i]
			a := float32(1)
			if alpha != nil {
				a = float32(alpha[i])
			}
			out.SetRGBA(x, y, float32(c.X), float32(c.Y), float32(c.Z), a)
		}
	}
	if err := exr.EncodeFile(path, out); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
