// Package field defines the radiance field contract consumed by the renderer
// and the chunked query that evaluates it.
package field

import (
	"fmt"

	"github.com/df07/go-nerf/pkg/core"
	"github.com/df07/go-nerf/pkg/encoding"
)

// Raw is the unactivated field output for one sample: three color logits
// followed by one density logit.
type Raw [4]float64

// Color returns the color logits
func (r Raw) Color() core.Vec3 {
	return core.NewVec3(r[0], r[1], r[2])
}

// Density returns the density logit
func (r Raw) Density() float64 {
	return r[3]
}

// Field maps sample points (and optional per-point unit view directions) to raw
// outputs. viewDirs is nil or has len(points) entries. Implementations must give
// identical per-row results however the rows are split into calls; fields used
// by a multi-worker path render must also be safe for concurrent use.
type Field interface {
	Query(points, viewDirs []core.Vec3) ([]Raw, error)
}

// Network evaluates already-encoded feature rows
type Network interface {
	Forward(features [][]float64) ([]Raw, error)
}

// Encoded adapts a Network into a Field by encoding positions and, when present,
// view directions and concatenating the two feature blocks per row.
type Encoded struct {
	Net       Network
	Embed     encoding.Encoder
	EmbedDirs encoding.Encoder // nil disables view-direction input
}

// Query encodes the rows and runs the network on them
func (e *Encoded) Query(points, viewDirs []core.Vec3) ([]Raw, error) {
	features := make([][]float64, len(points))
	for i, p := range points {
		x := p.Array()
		row := e.Embed.Encode(nil, x[:])
		if viewDirs != nil && e.EmbedDirs != nil {
			d := viewDirs[i].Array()
			row = e.EmbedDirs.Encode(row, d[:])
		}
		features[i] = row
	}
	return e.Net.Forward(features)
}

// QueryError reports a field failure for the rows [Start, End) of a flattened query
type QueryError struct {
	Start, End int
	Err        error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("field query failed for rows [%d, %d): %v", e.Start, e.End, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// RunNetwork flattens per-ray sample points, broadcasts each ray's view direction
// to its samples, and queries f in sequential chunks of at most netChunk rows.
// The result has the same per-ray shape as points. Chunking never changes values.
// A field error is returned as a *QueryError and is not retried.
func RunNetwork(f Field, points [][]core.Vec3, viewDirs []core.Vec3, netChunk int, precision core.Precision) ([][]Raw, error) {
	if netChunk <= 0 {
		return nil, &core.ConfigurationError{Field: "netchunk", Reason: fmt.Sprintf("%d must be positive", netChunk)}
	}
	if viewDirs != nil && len(viewDirs) != len(points) {
		return nil, &core.ConfigurationError{Field: "viewdirs", Reason: fmt.Sprintf("have %d, want one per ray (%d)", len(viewDirs), len(points))}
	}

	total := 0
	for _, p := range points {
		total += len(p)
	}

	flat := make([]core.Vec3, 0, total)
	var flatDirs []core.Vec3
	if viewDirs != nil {
		flatDirs = make([]core.Vec3, 0, total)
	}
	for r, p := range points {
		flat = append(flat, p...)
		if viewDirs != nil {
			for range p {
				flatDirs = append(flatDirs, viewDirs[r])
			}
		}
	}

	out := make([]Raw, 0, total)
	for start := 0; start < total; start += netChunk {
		end := min(start+netChunk, total)
		var dirs []core.Vec3
		if flatDirs != nil {
			dirs = flatDirs[start:end]
		}
		raw, err := f.Query(flat[start:end], dirs)
		if err != nil {
			return nil, &QueryError{Start: start, End: end, Err: err}
		}
		if len(raw) != end-start {
			return nil, &QueryError{Start: start, End: end, Err: fmt.Errorf("field returned %d rows, want %d", len(raw), end-start)}
		}
		for _, r := range raw {
			if precision == core.Float32 {
				for k := range r {
					r[k] = precision.Round(r[k])
				}
			}
			out = append(out, r)
		}
	}

	shaped := make([][]Raw, len(points))
	offset := 0
	for r, p := range points {
		shaped[r] = out[offset : offset+len(p) : offset+len(p)]
		offset += len(p)
	}
	return shaped, nil
}
