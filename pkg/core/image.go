package core

import "fmt"

// Image is a linear RGB image stored row-major, top row first
type Image struct {
	Width  int
	Height int
	Pixels []Vec3
}

// NewImage allocates a black image
func NewImage(width, height int) Image {
	return Image{Width: width, Height: height, Pixels: make([]Vec3, width*height)}
}

// At returns the pixel at column x, row y
func (im Image) At(x, y int) Vec3 {
	return im.Pixels[y*im.Width+x]
}

// Set stores the pixel at column x, row y
func (im Image) Set(x, y int, c Vec3) {
	im.Pixels[y*im.Width+x] = c
}

// Validate checks that the pixel slice matches the image size
func (im Image) Validate() error {
	if im.Width <= 0 || im.Height <= 0 {
		return &ConfigurationError{Field: "image size", Reason: fmt.Sprintf("%dx%d must be positive", im.Width, im.Height)}
	}
	if len(im.Pixels) != im.Width*im.Height {
		return &ConfigurationError{Field: "image", Reason: fmt.Sprintf("%d pixels for %dx%d", len(im.Pixels), im.Width, im.Height)}
	}
	return nil
}
