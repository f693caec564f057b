package camera

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/df07/go-nerf/pkg/core"
)

// Intrinsics describes a pinhole camera with its principal point at the image centre
type Intrinsics struct {
	Height int
	Width  int
	Focal  float64
}

// Validate rejects non-positive image sizes and focal lengths
func (in Intrinsics) Validate() error {
	if in.Height <= 0 || in.Width <= 0 {
		return &core.ConfigurationError{Field: "image size", Reason: fmt.Sprintf("%dx%d must be positive", in.Width, in.Height)}
	}
	if !(in.Focal > 0) {
		return &core.ConfigurationError{Field: "focal", Reason: fmt.Sprintf("%g must be positive", in.Focal)}
	}
	return nil
}

// Pixels returns the number of pixels (and therefore rays) in an image
func (in Intrinsics) Pixels() int {
	return in.Height * in.Width
}

// Scaled divides the image size and focal length by factor, for fast previews
func (in Intrinsics) Scaled(factor int) Intrinsics {
	if factor <= 1 {
		return in
	}
	return Intrinsics{
		Height: in.Height / factor,
		Width:  in.Width / factor,
		Focal:  in.Focal / float64(factor),
	}
}

// GetRays generates one ray per pixel in row-major order. Origins are the camera
// position; directions are the camera-space pixel directions rotated into world space.
// Camera space is right-handed with the camera looking down -Z and +Y up.
func GetRays(in Intrinsics, pose Pose, precision core.Precision) (origins, directions []core.Vec3, err error) {
	if err := in.Validate(); err != nil {
		return nil, nil, err
	}
	n := in.Pixels()

	// camera-space directions, one row per pixel
	camDirs := mat.NewDense(n, 3, nil)
	halfW := float64(in.Width) * 0.5
	halfH := float64(in.Height) * 0.5
	for j := 0; j < in.Height; j++ {
		for i := 0; i < in.Width; i++ {
			row := j*in.Width + i
			camDirs.Set(row, 0, (float64(i)-halfW)/in.Focal)
			camDirs.Set(row, 1, -(float64(j)-halfH)/in.Focal)
			camDirs.Set(row, 2, -1)
		}
	}

	var world mat.Dense
	world.Mul(camDirs, pose.Rotation().T())

	origin := precision.RoundVec(pose.Origin())
	origins = make([]core.Vec3, n)
	directions = make([]core.Vec3, n)
	for row := 0; row < n; row++ {
		origins[row] = origin
		directions[row] = precision.RoundVec(core.NewVec3(world.At(row, 0), world.At(row, 1), world.At(row, 2)))
	}
	return origins, directions, nil
}

// NDCRays reprojects rays into normalized device coordinates for forward-facing
// scenes. Origins are first shifted onto the plane z = -near.
func NDCRays(in Intrinsics, near float64, origins, directions []core.Vec3, precision core.Precision) (ndcOrigins, ndcDirections []core.Vec3) {
	ndcOrigins = make([]core.Vec3, len(origins))
	ndcDirections = make([]core.Vec3, len(directions))

	ax := -1.0 / (float64(in.Width) / (2.0 * in.Focal))
	ay := -1.0 / (float64(in.Height) / (2.0 * in.Focal))

	for i := range origins {
		o, d := origins[i], directions[i]

		t := -(near + o.Z) / d.Z
		o = o.Add(d.Multiply(t))

		ndcOrigins[i] = precision.RoundVec(core.NewVec3(
			ax*o.X/o.Z,
			ay*o.Y/o.Z,
			1.0+2.0*near/o.Z,
		))
		ndcDirections[i] = precision.RoundVec(core.NewVec3(
			ax*(d.X/d.Z-o.X/o.Z),
			ay*(d.Y/d.Z-o.Y/o.Z),
			-2.0*near/o.Z,
		))
	}
	return ndcOrigins, ndcDirections
}
