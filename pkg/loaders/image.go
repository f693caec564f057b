package loaders

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"os"

	"golang.org/x/image/draw"

	"github.com/df07/go-nerf/pkg/core"
)

// LoadImage loads a PNG or JPEG image as linear [0,1] colors. With
// whiteBackground transparent pixels are composited over white; otherwise the
// stored color is kept and alpha is dropped.
func LoadImage(filename string, whiteBackground bool) (core.Image, error) {
	file, err := os.Open(filename)
	if err != nil {
		return core.Image{}, fmt.Errorf("failed to open image file: %w", err)
	}
	defer file.Close()

	// Decode image (auto-detects PNG/JPEG from file header)
	img, _, err := image.Decode(file)
	if err != nil {
		return core.Image{}, fmt.Errorf("failed to decode image %s: %w", filename, err)
	}
	return FromImage(img, whiteBackground), nil
}

// FromImage converts a decoded image to linear [0,1] colors
func FromImage(img image.Image, whiteBackground bool) core.Image {
	bounds := img.Bounds()
	out := core.NewImage(bounds.Dx(), bounds.Dy())

	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			px := img.At(x+bounds.Min.X, y+bounds.Min.Y)
			var c core.Vec3
			if whiteBackground {
				// RGBA returns alpha-premultiplied uint32 in [0, 65535]
				r, g, b, a := px.RGBA()
				c = core.NewVec3(float64(r)/65535.0, float64(g)/65535.0, float64(b)/65535.0)
				c = c.AddScalar(1 - float64(a)/65535.0)
			} else {
				n := color.NRGBA64Model.Convert(px).(color.NRGBA64)
				c = core.NewVec3(float64(n.R)/65535.0, float64(n.G)/65535.0, float64(n.B)/65535.0)
			}
			out.Set(x, y, c)
		}
	}
	return out
}

// toRGBA64 quantizes a linear image to 16 bits per channel
func toRGBA64(src core.Image) *image.RGBA64 {
	img := image.NewRGBA64(image.Rect(0, 0, src.Width, src.Height))
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			c := src.At(x, y).Clamp(0, 1)
			img.SetRGBA64(x, y, color.RGBA64{
				R: uint16(c.X*65535 + 0.5),
				G: uint16(c.Y*65535 + 0.5),
				B: uint16(c.Z*65535 + 0.5),
				A: 0xffff,
			})
		}
	}
	return img
}

// Resize resamples an image to width x height with a bilinear filter.
// Used to bring ground truth down to the resolution of preview renders.
func Resize(src core.Image, width, height int) core.Image {
	if src.Width == width && src.Height == height {
		return src
	}
	in := toRGBA64(src)
	out := image.NewRGBA64(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(out, out.Bounds(), in, in.Bounds(), draw.Src, nil)
	return FromImage(out, false)
}
