package field

import (
	"errors"
	"math"
	"testing"

	"github.com/df07/go-nerf/pkg/core"
	"github.com/df07/go-nerf/pkg/encoding"
)

// recordingField returns a raw output derived from each point and direction and
// records the size of every call
type recordingField struct {
	calls []int
	fail  bool
}

func (r *recordingField) Query(points, viewDirs []core.Vec3) ([]Raw, error) {
	r.calls = append(r.calls, len(points))
	if r.fail {
		return nil, errors.New("device out of memory")
	}
	out := make([]Raw, len(points))
	for i, p := range points {
		out[i] = Raw{p.X, p.Y, p.Z, p.X + 10*p.Y}
		if viewDirs != nil {
			out[i][0] += 100 * viewDirs[i].X
		}
	}
	return out, nil
}

func samplePoints(rays, samples int) [][]core.Vec3 {
	pts := make([][]core.Vec3, rays)
	for r := range pts {
		pts[r] = make([]core.Vec3, samples)
		for s := range pts[r] {
			pts[r][s] = core.NewVec3(float64(r), float64(s), float64(r*samples+s))
		}
	}
	return pts
}

func TestRunNetwork_ChunkInvariance(t *testing.T) {
	points := samplePoints(5, 7)
	viewDirs := []core.Vec3{{X: 1}, {X: 2}, {X: 3}, {X: 4}, {X: 5}}

	reference, err := RunNetwork(&recordingField{}, points, viewDirs, 1<<16, core.Float64)
	if err != nil {
		t.Fatalf("RunNetwork failed: %v", err)
	}

	for _, chunk := range []int{1, 3, 7, 34, 35} {
		f := &recordingField{}
		got, err := RunNetwork(f, points, viewDirs, chunk, core.Float64)
		if err != nil {
			t.Fatalf("chunk %d: RunNetwork failed: %v", chunk, err)
		}
		for r := range reference {
			for s := range reference[r] {
				if got[r][s] != reference[r][s] {
					t.Fatalf("chunk %d: ray %d sample %d differs: %v vs %v", chunk, r, s, got[r][s], reference[r][s])
				}
			}
		}
		for _, n := range f.calls {
			if n > chunk {
				t.Errorf("chunk %d: field called with %d rows", chunk, n)
			}
		}
	}
}

func TestRunNetwork_BroadcastsViewDirs(t *testing.T) {
	points := samplePoints(2, 3)
	out, err := RunNetwork(&recordingField{}, points, []core.Vec3{{X: 1}, {X: -1}}, 2, core.Float64)
	if err != nil {
		t.Fatalf("RunNetwork failed: %v", err)
	}
	for s := 0; s < 3; s++ {
		if out[0][s][0] != points[0][s].X+100 {
			t.Errorf("ray 0 sample %d: view dir not applied, got %v", s, out[0][s])
		}
		if out[1][s][0] != points[1][s].X-100 {
			t.Errorf("ray 1 sample %d: view dir not applied, got %v", s, out[1][s])
		}
	}
}

func TestRunNetwork_Errors(t *testing.T) {
	points := samplePoints(2, 2)

	if _, err := RunNetwork(&recordingField{}, points, nil, 0, core.Float64); !core.IsConfigurationError(err) {
		t.Errorf("Expected ConfigurationError for netchunk 0, got %v", err)
	}
	if _, err := RunNetwork(&recordingField{}, points, []core.Vec3{{}}, 4, core.Float64); !core.IsConfigurationError(err) {
		t.Errorf("Expected ConfigurationError for viewdir count, got %v", err)
	}

	f := &recordingField{fail: true}
	_, err := RunNetwork(f, points, nil, 3, core.Float64)
	var qe *QueryError
	if !errors.As(err, &qe) {
		t.Fatalf("Expected QueryError, got %v", err)
	}
	if qe.Start != 0 || qe.End != 3 {
		t.Errorf("Expected failing rows [0,3), got [%d,%d)", qe.Start, qe.End)
	}
	if len(f.calls) != 1 {
		t.Errorf("Field failure must not be retried, got %d calls", len(f.calls))
	}
}

func TestEncodedMLP_Deterministic(t *testing.T) {
	cfg := Config{Type: "mlp", Multires: 4, MultiresViews: 2, MLP: MLPConfig{Depth: 4, Width: 16, Skips: []int{2}, Seed: 3}}
	f1, err := FromConfig(cfg, true)
	if err != nil {
		t.Fatalf("FromConfig failed: %v", err)
	}
	f2, _ := FromConfig(cfg, true)

	points := samplePoints(3, 4)
	dirs := []core.Vec3{{Z: -1}, {X: 1}, {Y: 1}}

	a, err := RunNetwork(f1, points, dirs, 5, core.Float64)
	if err != nil {
		t.Fatalf("RunNetwork failed: %v", err)
	}
	b, err := RunNetwork(f2, points, dirs, 12, core.Float64)
	if err != nil {
		t.Fatalf("RunNetwork failed: %v", err)
	}
	for r := range a {
		for s := range a[r] {
			for k := 0; k < 4; k++ {
				if math.Abs(a[r][s][k]-b[r][s][k]) > 1e-12 {
					t.Fatalf("Same seed should give identical outputs at ray %d sample %d", r, s)
				}
				if math.IsNaN(a[r][s][k]) {
					t.Fatalf("NaN output at ray %d sample %d", r, s)
				}
			}
		}
	}
}

func TestMLP_RejectsWrongWidth(t *testing.T) {
	m, err := NewMLP(MLPConfig{Depth: 2, Width: 8}, 3, 0)
	if err != nil {
		t.Fatalf("NewMLP failed: %v", err)
	}
	if _, err := m.Forward([][]float64{{1, 2}}); err == nil {
		t.Error("Expected error for short feature row")
	}
	out, err := m.Forward([][]float64{{1, 2, 3}, {0, 0, 0}})
	if err != nil || len(out) != 2 {
		t.Fatalf("Forward failed: %v", err)
	}
}

func TestEncodedPassesEncodedWidth(t *testing.T) {
	enc := encoding.NewFrequency(2, 1, true, true)
	m, err := NewMLP(MLPConfig{Depth: 3, Width: 8, Skips: []int{1}}, enc.OutDim(3), 0)
	if err != nil {
		t.Fatalf("NewMLP failed: %v", err)
	}
	f := &Encoded{Net: m, Embed: enc}
	if _, err := f.Query([]core.Vec3{{X: 1}, {Y: 2}}, nil); err != nil {
		t.Errorf("Query failed: %v", err)
	}
}

func TestFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"sphere", Config{Type: "sphere", Radius: 1, Density: 10}, false},
		{"sphere without radius", Config{Type: "sphere"}, true},
		{"blobs", Config{Type: "blobs", Blobs: []BlobConfig{{Sigma: 1, Amplitude: 2}}}, false},
		{"blobs bad sigma", Config{Type: "blobs", Blobs: []BlobConfig{{Sigma: 0}}}, true},
		{"empty blobs", Config{Type: "blobs"}, true},
		{"constant", Config{Type: "constant"}, false},
		{"mlp defaults", Config{Type: "mlp", Multires: 2}, false},
		{"unknown", Config{Type: "teapot"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := FromConfig(tt.cfg, false)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && f == nil {
				t.Error("Expected a field")
			}
		})
	}
}
