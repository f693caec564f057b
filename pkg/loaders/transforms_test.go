package loaders

import (
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"
)

const testTransforms = `{
  "camera_angle_x": 0.6911112070083618,
  "frames": [
    {
      "file_path": "./train/r_0",
      "rotation": 0.012566370614359171,
      "transform_matrix": [
        [1, 0, 0, 0],
        [0, 1, 0, 0],
        [0, 0, 1, 4],
        [0, 0, 0, 1]
      ]
    },
    {
      "file_path": "./train/r_1.png",
      "rotation": 0.012566370614359171,
      "transform_matrix": [
        [1, 0, 0, 1],
        [0, 1, 0, 0],
        [0, 0, 1, 4]
      ]
    }
  ]
}`

func writeTransforms(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "train"), 0o755); err != nil {
		t.Fatalf("Failed to create train dir: %v", err)
	}
	for _, name := range []string{"r_0.png", "r_1.png"} {
		img := image.NewRGBA(image.Rect(0, 0, 3, 2))
		img.Set(1, 1, color.RGBA{R: 255, A: 255})
		writePNG(t, filepath.Join(dir, "train"), name, img)
	}
	path := filepath.Join(dir, "transforms.json")
	if err := os.WriteFile(path, []byte(testTransforms), 0o644); err != nil {
		t.Fatalf("Failed to write transforms: %v", err)
	}
	return path
}

func TestLoadTransforms(t *testing.T) {
	tr, err := LoadTransforms(writeTransforms(t))
	if err != nil {
		t.Fatalf("LoadTransforms failed: %v", err)
	}
	if len(tr.Frames) != 2 {
		t.Fatalf("Expected 2 frames, got %d", len(tr.Frames))
	}

	poses, err := tr.Poses()
	if err != nil {
		t.Fatalf("Poses failed: %v", err)
	}
	if o := poses[0].Origin(); o.Z != 4 || o.X != 0 {
		t.Errorf("Expected first origin (0,0,4), got %v", o)
	}
	if o := poses[1].Origin(); o.X != 1 {
		t.Errorf("Expected second origin x=1, got %v", o)
	}

	expectedFocal := 0.5 * 800 / math.Tan(0.5*0.6911112070083618)
	if got := tr.Focal(800); math.Abs(got-expectedFocal) > 1e-9 {
		t.Errorf("Expected focal %f, got %f", expectedFocal, got)
	}

	images, err := tr.LoadImages(false)
	if err != nil {
		t.Fatalf("LoadImages failed: %v", err)
	}
	if len(images) != 2 || images[0].Width != 3 || images[0].Height != 2 {
		t.Fatalf("Unexpected images: %d loaded", len(images))
	}
	if red := images[1].At(1, 1); abs(red.X-1) > 0.01 || red.Y != 0 {
		t.Errorf("Expected red pixel, got %v", red)
	}
}

func TestLoadTransforms_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{"invalid json", "{"},
		{"no frames", `{"camera_angle_x": 0.5, "frames": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("Failed to write file: %v", err)
			}
			if _, err := LoadTransforms(path); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}

	if _, err := LoadTransforms(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestTransformsPoses_BadMatrix(t *testing.T) {
	tr := &Transforms{Frames: []TransformsFrame{{FilePath: "x", TransformMatrix: [][]float64{{1, 0}, {0, 1}}}}}
	if _, err := tr.Poses(); err == nil {
		t.Error("Expected error for a 2x2 transform matrix")
	}
}
