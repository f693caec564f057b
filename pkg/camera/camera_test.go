package camera

import (
	"math"
	"testing"

	"github.com/df07/go-nerf/pkg/core"
)

func vecClose(a, b core.Vec3, tol float64) bool {
	return a.Subtract(b).Length() <= tol
}

func TestGetRays_IdentityPose(t *testing.T) {
	in := Intrinsics{Height: 4, Width: 6, Focal: 2}
	origins, dirs, err := GetRays(in, IdentityPose(), core.Float64)
	if err != nil {
		t.Fatalf("GetRays failed: %v", err)
	}
	if len(origins) != 24 || len(dirs) != 24 {
		t.Fatalf("Expected 24 rays, got %d origins and %d directions", len(origins), len(dirs))
	}

	// Pixel (i=3, j=2) sits on the principal point
	center := dirs[2*in.Width+3]
	if !vecClose(center, core.NewVec3(0, 0, -1), 1e-12) {
		t.Errorf("Expected centre direction (0,0,-1), got %v", center)
	}

	// Top-left pixel: x = (0-3)/2, y = -(0-2)/2
	topLeft := dirs[0]
	if !vecClose(topLeft, core.NewVec3(-1.5, 1, -1), 1e-12) {
		t.Errorf("Expected top-left direction (-1.5,1,-1), got %v", topLeft)
	}

	for i, o := range origins {
		if o != (core.Vec3{}) {
			t.Fatalf("Origin %d should be the camera position, got %v", i, o)
		}
	}
}

func TestGetRays_TranslatedAndRotatedPose(t *testing.T) {
	// Rotate 90 degrees about Y: camera -Z maps to world -X
	pose, err := NewPose([][]float64{
		{0, 0, 1, 5},
		{0, 1, 0, -1},
		{-1, 0, 0, 2},
	})
	if err != nil {
		t.Fatalf("NewPose failed: %v", err)
	}
	in := Intrinsics{Height: 2, Width: 2, Focal: 1}
	origins, dirs, err := GetRays(in, pose, core.Float64)
	if err != nil {
		t.Fatalf("GetRays failed: %v", err)
	}

	if origins[0] != core.NewVec3(5, -1, 2) {
		t.Errorf("Expected origin (5,-1,2), got %v", origins[0])
	}
	// Pixel (1,1) is the principal point
	if !vecClose(dirs[3], core.NewVec3(-1, 0, 0), 1e-12) {
		t.Errorf("Expected centre direction (-1,0,0), got %v", dirs[3])
	}
}

func TestGetRays_InvalidIntrinsics(t *testing.T) {
	tests := []Intrinsics{
		{Height: 0, Width: 4, Focal: 1},
		{Height: 4, Width: -1, Focal: 1},
		{Height: 4, Width: 4, Focal: 0},
	}
	for _, in := range tests {
		if _, _, err := GetRays(in, IdentityPose(), core.Float64); !core.IsConfigurationError(err) {
			t.Errorf("Expected ConfigurationError for %+v, got %v", in, err)
		}
	}
}

func TestGetRays_Float32Precision(t *testing.T) {
	in := Intrinsics{Height: 3, Width: 3, Focal: 3}
	_, dirs, err := GetRays(in, IdentityPose(), core.Float32)
	if err != nil {
		t.Fatalf("GetRays failed: %v", err)
	}
	for _, d := range dirs {
		if d.X != float64(float32(d.X)) || d.Y != float64(float32(d.Y)) {
			t.Fatalf("Direction %v not representable in float32", d)
		}
	}
}

func TestNDCRays_NearPlaneMapsToMinusOne(t *testing.T) {
	in := Intrinsics{Height: 4, Width: 4, Focal: 2}
	origins, dirs, err := GetRays(in, IdentityPose(), core.Float64)
	if err != nil {
		t.Fatalf("GetRays failed: %v", err)
	}

	ndcO, ndcD := NDCRays(in, 1.0, origins, dirs, core.Float64)
	for i := range ndcO {
		if math.Abs(ndcO[i].Z+1) > 1e-12 {
			t.Errorf("Ray %d: expected NDC origin z = -1, got %f", i, ndcO[i].Z)
		}
		// Moving one unit of t in NDC reaches the far plane at infinity (z = +1)
		end := ndcO[i].Add(ndcD[i])
		if math.Abs(end.Z-1) > 1e-12 {
			t.Errorf("Ray %d: expected NDC far z = 1, got %f", i, end.Z)
		}
		// Screen-space x/y stay constant along a ray through the camera centre
		if math.Abs(ndcD[i].X) > 1e-12 || math.Abs(ndcD[i].Y) > 1e-12 {
			t.Errorf("Ray %d: expected no lateral NDC motion, got %v", i, ndcD[i])
		}
	}

	// Corner pixel lands inside the unit square
	if math.Abs(ndcO[0].X) > 1 || math.Abs(ndcO[0].Y) > 1 {
		t.Errorf("Corner pixel outside NDC square: %v", ndcO[0])
	}
}

func TestNDCRays_Float32Precision(t *testing.T) {
	in := Intrinsics{Height: 3, Width: 3, Focal: 3}
	origins, dirs, err := GetRays(in, IdentityPose(), core.Float64)
	if err != nil {
		t.Fatalf("GetRays failed: %v", err)
	}

	exactO, exactD := NDCRays(in, 1.0, origins, dirs, core.Float64)
	ndcO, ndcD := NDCRays(in, 1.0, origins, dirs, core.Float32)

	rounded := false
	for i := range ndcO {
		for _, v := range []core.Vec3{ndcO[i], ndcD[i]} {
			for _, c := range v.Array() {
				if c != float64(float32(c)) {
					t.Fatalf("Ray %d: component %v not representable in float32", i, c)
				}
			}
		}
		if ndcO[i] != exactO[i] || ndcD[i] != exactD[i] {
			rounded = true
		}
		if ndcO[i].Subtract(exactO[i]).Length() > 1e-6 || ndcD[i].Subtract(exactD[i]).Length() > 1e-6 {
			t.Errorf("Ray %d: float32 NDC ray %v %v too far from %v %v", i, ndcO[i], ndcD[i], exactO[i], exactD[i])
		}
	}
	if !rounded {
		t.Error("Expected float32 precision to round some NDC components")
	}
}

func TestIntrinsicsScaled(t *testing.T) {
	in := Intrinsics{Height: 400, Width: 300, Focal: 500}
	s := in.Scaled(4)
	if s.Height != 100 || s.Width != 75 || s.Focal != 125 {
		t.Errorf("Unexpected scaled intrinsics %+v", s)
	}
	if in.Scaled(0) != in {
		t.Error("Factor 0 should leave intrinsics unchanged")
	}
}
