package scene

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/df07/go-nerf/pkg/camera"
	"github.com/df07/go-nerf/pkg/core"
	"github.com/df07/go-nerf/pkg/export"
	"github.com/df07/go-nerf/pkg/integrator"
	"github.com/df07/go-nerf/pkg/loaders"
)

func TestRenderOptions(t *testing.T) {
	rc := loaders.DefaultSceneConfig().Render
	rc.Precision = "float32"
	rc.DensityActivation = "softplus"
	rc.NImportance = 16

	opts, err := RenderOptions(rc)
	if err != nil {
		t.Fatalf("RenderOptions() error: %v", err)
	}
	if opts.Precision != core.Float32 || opts.DensityActivation != integrator.Softplus {
		t.Errorf("precision/activation = %v/%v, want float32/softplus", opts.Precision, opts.DensityActivation)
	}
	if opts.NSamples != 64 || opts.NImportance != 16 || opts.Near != 2 || opts.Far != 6 {
		t.Errorf("unexpected options %+v", opts)
	}
	if err := opts.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}

	rc.Precision = "float16"
	if _, err := RenderOptions(rc); !core.IsConfigurationError(err) {
		t.Errorf("unknown precision error = %v, want ConfigurationError", err)
	}
	rc.Precision = ""
	rc.DensityActivation = "tanh"
	if _, err := RenderOptions(rc); !core.IsConfigurationError(err) {
		t.Errorf("unknown activation error = %v, want ConfigurationError", err)
	}
}

func TestNewRenderer(t *testing.T) {
	cfg := NewMLPScene()
	r, err := NewRenderer(cfg, 5, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRenderer() error: %v", err)
	}
	if got := r.Options().NImportance; got != 32 {
		t.Errorf("NImportance = %d, want 32", got)
	}

	bad := NewOrbScene()
	bad.Field.Radius = 0
	if _, err := NewRenderer(bad, 0, zerolog.Nop()); err == nil {
		t.Error("expected error for an invalid field")
	}

	badFine := NewOrbScene()
	emptyField := loaders.DefaultSceneConfig().Field
	badFine.FineField = &emptyField
	if _, err := NewRenderer(badFine, 0, zerolog.Nop()); err == nil {
		t.Error("expected error for an invalid fine field")
	}
}

// writeDataset writes a two-frame transforms file with solid-color images
func writeDataset(t *testing.T, dir string, width, height int) {
	t.Helper()
	colors := []core.Vec3{core.NewVec3(1, 0, 0), core.NewVec3(0, 0, 1)}
	for i, c := range colors {
		img := core.NewImage(width, height)
		for p := range img.Pixels {
			img.Pixels[p] = c
		}
		if err := export.WritePNG(filepath.Join(dir, []string{"r_0.png", "r_1.png"}[i]), img); err != nil {
			t.Fatal(err)
		}
	}
	transforms := `{
  "camera_angle_x": 0.69,
  "frames": [
    {"file_path": "./r_0", "transform_matrix": [[1,0,0,0],[0,1,0,0],[0,0,1,4],[0,0,0,1]]},
    {"file_path": "./r_1", "transform_matrix": [[1,0,0,0],[0,1,0,0],[0,0,1,5],[0,0,0,1]]}
  ]
}`
	if err := os.WriteFile(filepath.Join(dir, "transforms.json"), []byte(transforms), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestBuildPath(t *testing.T) {
	t.Run("spherical", func(t *testing.T) {
		cfg := NewOrbScene()
		path, err := BuildPath(cfg, 3)
		if err != nil {
			t.Fatalf("BuildPath() error: %v", err)
		}
		if len(path.Poses) != 3 || path.GroundTruth != nil {
			t.Errorf("got %d poses and %d ground truth images, want 3 and none", len(path.Poses), len(path.GroundTruth))
		}
		if path.Intrinsics.Width != cfg.Width || path.Intrinsics.Focal <= 0 {
			t.Errorf("unexpected intrinsics %+v", path.Intrinsics)
		}
	})

	t.Run("transforms", func(t *testing.T) {
		dir := t.TempDir()
		writeDataset(t, dir, 6, 4)
		cfg := loaders.DefaultSceneConfig()
		cfg.Width, cfg.Height = 6, 4
		cfg.Path = loaders.PathConfig{Type: "transforms", Transforms: filepath.Join(dir, "transforms.json"), GroundTruth: true}

		path, err := BuildPath(&cfg, 1)
		if err != nil {
			t.Fatalf("BuildPath() error: %v", err)
		}
		if len(path.Poses) != 1 || len(path.GroundTruth) != 1 {
			t.Fatalf("got %d poses and %d images, want 1 and 1", len(path.Poses), len(path.GroundTruth))
		}
		if path.GroundTruth[0].At(0, 0) != core.NewVec3(1, 0, 0) {
			t.Errorf("ground truth pixel = %v, want red", path.GroundTruth[0].At(0, 0))
		}
		if path.Poses[0].Origin().Z != 4 {
			t.Errorf("pose origin = %v, want z=4", path.Poses[0].Origin())
		}
		want := camera.FocalFromFOV(6, 0.69)
		if math.Abs(path.Intrinsics.Focal-want) > 1e-12 {
			t.Errorf("focal = %g, want %g from camera_angle_x", path.Intrinsics.Focal, want)
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		cfg := loaders.DefaultSceneConfig()
		cfg.Path.Type = "helix"
		if _, err := BuildPath(&cfg, 0); err == nil {
			t.Error("expected error for unknown path type")
		}
	})
}
