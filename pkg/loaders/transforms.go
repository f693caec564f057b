package loaders

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/df07/go-nerf/pkg/camera"
	"github.com/df07/go-nerf/pkg/core"
)

// TransformsFrame is one posed image of a transforms.json file
type TransformsFrame struct {
	FilePath        string      `json:"file_path"`
	Rotation        float64     `json:"rotation"`
	TransformMatrix [][]float64 `json:"transform_matrix"`
}

// Transforms is the camera description of a synthetic (Blender-style) dataset
type Transforms struct {
	CameraAngleX float64           `json:"camera_angle_x"`
	Frames       []TransformsFrame `json:"frames"`

	dir string // directory the file was loaded from
}

// LoadTransforms reads a transforms.json file
func LoadTransforms(filename string) (*Transforms, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read transforms file: %w", err)
	}

	var t Transforms
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse transforms file %s: %w", filename, err)
	}
	if len(t.Frames) == 0 {
		return nil, fmt.Errorf("transforms file %s has no frames", filename)
	}
	t.dir = filepath.Dir(filename)
	return &t, nil
}

// Poses returns the camera-to-world pose of every frame
func (t *Transforms) Poses() ([]camera.Pose, error) {
	poses := make([]camera.Pose, len(t.Frames))
	for i, f := range t.Frames {
		p, err := camera.NewPose(f.TransformMatrix)
		if err != nil {
			return nil, fmt.Errorf("frame %d (%s): %w", i, f.FilePath, err)
		}
		poses[i] = p
	}
	return poses, nil
}

// Focal returns the focal length in pixels for an image of the given width
func (t *Transforms) Focal(width int) float64 {
	return camera.FocalFromFOV(width, t.CameraAngleX)
}

// LoadImages loads the image of every frame. Paths without an extension get ".png".
func (t *Transforms) LoadImages(whiteBackground bool) ([]core.Image, error) {
	images := make([]core.Image, len(t.Frames))
	for i, f := range t.Frames {
		path := f.FilePath
		if filepath.Ext(path) == "" {
			path += ".png"
		}
		if !filepath.IsAbs(path) {
			path = filepath.Join(t.dir, path)
		}
		img, err := LoadImage(path, whiteBackground)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		if i > 0 && (img.Width != images[0].Width || img.Height != images[0].Height) {
			return nil, fmt.Errorf("frame %d is %dx%d, expected %dx%d", i, img.Width, img.Height, images[0].Width, images[0].Height)
		}
		images[i] = img
	}
	return images, nil
}
