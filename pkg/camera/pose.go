package camera

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"

	"github.com/df07/go-nerf/pkg/core"
)

// Pose is a 3x4 camera-to-world matrix [R | t]
type Pose struct {
	m *mat.Dense
}

// NewPose builds a pose from row-major rows. A 4x4 matrix is accepted and its
// last row dropped.
func NewPose(rows [][]float64) (Pose, error) {
	if len(rows) != 3 && len(rows) != 4 {
		return Pose{}, &core.ConfigurationError{Field: "pose", Reason: fmt.Sprintf("expected 3 or 4 rows, got %d", len(rows))}
	}
	data := make([]float64, 0, 12)
	for r := 0; r < 3; r++ {
		if len(rows[r]) != 4 {
			return Pose{}, &core.ConfigurationError{Field: "pose", Reason: fmt.Sprintf("row %d has %d columns, want 4", r, len(rows[r]))}
		}
		data = append(data, rows[r]...)
	}
	return Pose{m: mat.NewDense(3, 4, data)}, nil
}

// IdentityPose returns a camera at the origin looking down -Z
func IdentityPose() Pose {
	return Pose{m: mat.NewDense(3, 4, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
	})}
}

// PoseFromMat4 takes the top three rows of a homogeneous transform
func PoseFromMat4(m mgl64.Mat4) Pose {
	data := make([]float64, 12)
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			data[r*4+c] = m.At(r, c)
		}
	}
	return Pose{m: mat.NewDense(3, 4, data)}
}

// Rotation returns the 3x3 rotation block
func (p Pose) Rotation() mat.Matrix {
	return p.m.Slice(0, 3, 0, 3)
}

// Origin returns the camera position in world space
func (p Pose) Origin() core.Vec3 {
	return core.NewVec3(p.m.At(0, 3), p.m.At(1, 3), p.m.At(2, 3))
}

// At returns the matrix element at row r, column c
func (p Pose) At(r, c int) float64 {
	return p.m.At(r, c)
}

// Rows returns the pose as row-major rows
func (p Pose) Rows() [][]float64 {
	rows := make([][]float64, 3)
	for r := range rows {
		rows[r] = mat.Row(nil, r, p.m)
	}
	return rows
}

// IsZero reports whether the pose was never initialised
func (p Pose) IsZero() bool {
	return p.m == nil
}

// SphericalPose orbits a camera around the origin: translate by radius along z,
// tilt by phi, spin by theta (degrees), then swap into the y-up world frame.
func SphericalPose(theta, phi, radius float64) Pose {
	c2w := mgl64.Translate3D(0, 0, radius)
	c2w = mgl64.HomogRotate3DX(mgl64.DegToRad(phi)).Mul4(c2w)
	c2w = mgl64.HomogRotate3DY(-mgl64.DegToRad(theta)).Mul4(c2w)
	flip := mgl64.Mat4FromRows(
		mgl64.Vec4{-1, 0, 0, 0},
		mgl64.Vec4{0, 0, 1, 0},
		mgl64.Vec4{0, 1, 0, 0},
		mgl64.Vec4{0, 0, 0, 1},
	)
	return PoseFromMat4(flip.Mul4(c2w))
}

// SphericalPath returns n poses evenly spaced in azimuth over a full turn
func SphericalPath(n int, phi, radius float64) []Pose {
	poses := make([]Pose, n)
	for i := 0; i < n; i++ {
		theta := -180.0 + 360.0*float64(i)/float64(n)
		poses[i] = SphericalPose(theta, phi, radius)
	}
	return poses
}

// LookAtPose places a camera at eye looking towards center
func LookAtPose(eye, center, up core.Vec3) Pose {
	view := mgl64.LookAtV(
		mgl64.Vec3{eye.X, eye.Y, eye.Z},
		mgl64.Vec3{center.X, center.Y, center.Z},
		mgl64.Vec3{up.X, up.Y, up.Z},
	)
	return PoseFromMat4(view.Inv())
}

// FocalFromFOV converts a horizontal field of view in radians to a focal length in pixels
func FocalFromFOV(width int, cameraAngleX float64) float64 {
	return 0.5 * float64(width) / math.Tan(0.5*cameraAngleX)
}
