package core

import "fmt"

// Ray is a line segment through the scene. Direction is not normalized:
// its length scales depth values into metric distance.
type Ray struct {
	Origin    Vec3
	Direction Vec3
	Near, Far float64
	ViewDir   Vec3 // unit view direction, zero when view directions are disabled
}

// At returns the point at depth z along the ray
func (r Ray) At(z float64) Vec3 {
	return r.Origin.Add(r.Direction.Multiply(z))
}

// RayBatch is an ordered set of rays laid out as parallel arrays.
// ViewDirs is nil when view-dependent color is disabled.
type RayBatch struct {
	Origins    []Vec3
	Directions []Vec3
	Near       []float64
	Far        []float64
	ViewDirs   []Vec3
}

// NewRayBatch builds a batch from origins and directions with constant bounds
func NewRayBatch(origins, directions []Vec3, near, far float64) RayBatch {
	n := len(origins)
	b := RayBatch{
		Origins:    origins,
		Directions: directions,
		Near:       make([]float64, n),
		Far:        make([]float64, n),
	}
	for i := 0; i < n; i++ {
		b.Near[i] = near
		b.Far[i] = far
	}
	return b
}

// Len returns the number of rays in the batch
func (b RayBatch) Len() int {
	return len(b.Origins)
}

// HasViewDirs reports whether the batch carries view directions
func (b RayBatch) HasViewDirs() bool {
	return b.ViewDirs != nil
}

// Ray returns the i-th ray as a value
func (b RayBatch) Ray(i int) Ray {
	r := Ray{
		Origin:    b.Origins[i],
		Direction: b.Directions[i],
		Near:      b.Near[i],
		Far:       b.Far[i],
	}
	if b.ViewDirs != nil {
		r.ViewDir = b.ViewDirs[i]
	}
	return r
}

// Slice returns the rays in [start, end). The returned batch shares storage.
func (b RayBatch) Slice(start, end int) RayBatch {
	s := RayBatch{
		Origins:    b.Origins[start:end],
		Directions: b.Directions[start:end],
		Near:       b.Near[start:end],
		Far:        b.Far[start:end],
	}
	if b.ViewDirs != nil {
		s.ViewDirs = b.ViewDirs[start:end]
	}
	return s
}

// WithViewDirs returns a copy of the batch carrying unit view directions
// computed from dirs (usually the batch's own directions before NDC).
func (b RayBatch) WithViewDirs(dirs []Vec3) RayBatch {
	viewDirs := make([]Vec3, len(dirs))
	for i, d := range dirs {
		viewDirs[i] = d.Normalize()
	}
	b.ViewDirs = viewDirs
	return b
}

// Validate checks the batch layout and per-ray bounds
func (b RayBatch) Validate() error {
	n := len(b.Origins)
	if n == 0 {
		return ErrNoRays
	}
	if len(b.Directions) != n || len(b.Near) != n || len(b.Far) != n {
		return &ConfigurationError{
			Field:  "rays",
			Reason: fmt.Sprintf("mismatched lengths: origins=%d directions=%d near=%d far=%d", n, len(b.Directions), len(b.Near), len(b.Far)),
		}
	}
	if b.ViewDirs != nil && len(b.ViewDirs) != n {
		return &ConfigurationError{Field: "viewdirs", Reason: fmt.Sprintf("have %d, want %d", len(b.ViewDirs), n)}
	}
	for i := 0; i < n; i++ {
		if !(b.Near[i] < b.Far[i]) {
			return &ConfigurationError{Field: "near/far", Reason: fmt.Sprintf("ray %d: near %g must be less than far %g", i, b.Near[i], b.Far[i])}
		}
	}
	return nil
}
