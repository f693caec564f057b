package core

import "fmt"

// Precision selects the floating-point width used by a render call.
// It is passed explicitly to every stage instead of living in global state.
type Precision int

const (
	Float64 Precision = iota
	Float32
)

// Round converts x to the configured precision
func (p Precision) Round(x float64) float64 {
	if p == Float32 {
		return float64(float32(x))
	}
	return x
}

// RoundVec converts every component of v to the configured precision
func (p Precision) RoundVec(v Vec3) Vec3 {
	if p == Float32 {
		return Vec3{float64(float32(v.X)), float64(float32(v.Y)), float64(float32(v.Z))}
	}
	return v
}

func (p Precision) String() string {
	switch p {
	case Float64:
		return "float64"
	case Float32:
		return "float32"
	default:
		return fmt.Sprintf("Precision(%d)", int(p))
	}
}

// ParsePrecision converts a config string into a Precision
func ParsePrecision(s string) (Precision, error) {
	switch s {
	case "", "float64", "f64":
		return Float64, nil
	case "float32", "f32":
		return Float32, nil
	}
	return Float64, &ConfigurationError{Field: "precision", Reason: fmt.Sprintf("unknown value %q", s)}
}
