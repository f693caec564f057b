package loaders

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testSceneYAML = `
name: orb
width: 80
height: 60
focal: 100
render:
  n_samples: 32
  n_importance: 16
  white_bkgd: true
field:
  type: sphere
  radius: 1
  color: [0.8, 0.2, 0.2]
  density: 20
path:
  frames: 8
`

const testSceneJSON = `{
  "name": "blobs",
  "width": 40,
  "height": 40,
  "camera_angle_x": 0.69,
  "render": {"perturb": 0, "precision": "float32"},
  "field": {"type": "blobs", "blobs": [{"center": [0, 0, 0], "sigma": 0.5, "amplitude": 10, "color": [0, 1, 0]}]},
  "path": {"type": "transforms", "transforms": "transforms.json", "ground_truth": true}
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadSceneConfig_YAML(t *testing.T) {
	cfg, err := LoadSceneConfig(writeFile(t, t.TempDir(), "orb.yaml", testSceneYAML))
	if err != nil {
		t.Fatalf("LoadSceneConfig failed: %v", err)
	}

	if cfg.Name != "orb" || cfg.Width != 80 || cfg.Height != 60 {
		t.Errorf("Unexpected header: %+v", cfg)
	}
	if cfg.Render.NSamples != 32 || cfg.Render.NImportance != 16 || !cfg.Render.WhiteBackground {
		t.Errorf("Unexpected render section: %+v", cfg.Render)
	}
	// keys left out keep their defaults
	if cfg.Render.Near != 2 || cfg.Render.Far != 6 || cfg.Render.Perturb != 1 {
		t.Errorf("Expected default near/far/perturb, got %+v", cfg.Render)
	}
	if cfg.Path.Type != "spherical" || cfg.Path.Frames != 8 || cfg.Path.Radius != 4 {
		t.Errorf("Unexpected path section: %+v", cfg.Path)
	}
	if cfg.Field.Type != "sphere" || cfg.Field.Density != 20 {
		t.Errorf("Unexpected field section: %+v", cfg.Field)
	}

	in, err := cfg.Intrinsics(nil)
	if err != nil {
		t.Fatalf("Intrinsics failed: %v", err)
	}
	if in.Focal != 100 || in.Width != 80 || in.Height != 60 {
		t.Errorf("Unexpected intrinsics: %+v", in)
	}
}

func TestLoadSceneConfig_JSON(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadSceneConfig(writeFile(t, dir, "blobs.json", testSceneJSON))
	if err != nil {
		t.Fatalf("LoadSceneConfig failed: %v", err)
	}

	if cfg.Render.Perturb != 0 || cfg.Render.Precision != "float32" {
		t.Errorf("Unexpected render section: %+v", cfg.Render)
	}
	if cfg.Path.Transforms != filepath.Join(dir, "transforms.json") {
		t.Errorf("Expected transforms path resolved against config dir, got %s", cfg.Path.Transforms)
	}
	if len(cfg.Field.Blobs) != 1 || cfg.Field.Blobs[0].Amplitude != 10 {
		t.Errorf("Unexpected blobs: %+v", cfg.Field.Blobs)
	}

	in, err := cfg.Intrinsics(nil)
	if err != nil {
		t.Fatalf("Intrinsics failed: %v", err)
	}
	expected := 0.5 * 40 / math.Tan(0.5*0.69)
	if math.Abs(in.Focal-expected) > 1e-9 {
		t.Errorf("Expected focal %f, got %f", expected, in.Focal)
	}
}

func TestLoadSceneConfig_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name     string
		file     string
		content  string
		contains string
	}{
		{"unknown extension", "scene.toml", "name = 'x'", "unsupported"},
		{"bad yaml", "bad.yaml", "width: [", "parse"},
		{"bad size", "size.yaml", "width: 0", "image size"},
		{"unknown path", "path.yaml", "focal: 10\npath:\n  type: helix", "unknown path type"},
		{"spherical without focal", "nofocal.yaml", "path:\n  type: spherical", "focal"},
		{"transforms without file", "notr.yaml", "path:\n  type: transforms", "transforms file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSceneConfig(writeFile(t, dir, tt.file, tt.content))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("Expected error containing %q, got %v", tt.contains, err)
			}
		})
	}
}

func TestSceneConfigIntrinsics_FromTransforms(t *testing.T) {
	cfg := DefaultSceneConfig()
	cfg.Width = 100
	in, err := cfg.Intrinsics(&Transforms{CameraAngleX: 0.5})
	if err != nil {
		t.Fatalf("Intrinsics failed: %v", err)
	}
	expected := 0.5 * 100 / math.Tan(0.25)
	if math.Abs(in.Focal-expected) > 1e-9 {
		t.Errorf("Expected focal %f, got %f", expected, in.Focal)
	}

	if _, err := cfg.Intrinsics(nil); err == nil {
		t.Error("Expected error when no focal source is available")
	}
}
