package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/df07/go-nerf/pkg/camera"
	"github.com/df07/go-nerf/pkg/core"
	"github.com/df07/go-nerf/pkg/renderer"
	"github.com/df07/go-nerf/pkg/scene"
)

// SampleInfo is one quadrature sample along an inspected ray
type SampleInfo struct {
	Z      float64 `json:"z"`
	Weight float64 `json:"weight"`
}

// InspectResponse describes how a single pixel's ray was composited
type InspectResponse struct {
	Origin    [3]float64   `json:"origin"`
	Direction [3]float64   `json:"direction"`
	RGB       [3]float64   `json:"rgb"`
	Disparity float64      `json:"disparity"`
	Opacity   float64      `json:"opacity"`
	Depth     float64      `json:"depth"`
	Samples   []SampleInfo `json:"samples"`
	Coarse    []SampleInfo `json:"coarse,omitempty"` // only when a fine stage ran
	ZStd      float64      `json:"zStd,omitempty"`
}

// handleInspect renders the ray through one pixel of one path frame
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseRenderRequest(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	cfg, err := s.sceneFor(req)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	path, err := scene.BuildPath(cfg, 0)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	query := r.URL.Query()
	frame, err := parseIntParam(query, "frame", 0, 0, len(path.Poses)-1)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	x, err := strconv.Atoi(query.Get("x"))
	if err != nil || x < 0 || x >= path.Intrinsics.Width {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("x must be in [0, %d)", path.Intrinsics.Width)})
		return
	}
	y, err := strconv.Atoi(query.Get("y"))
	if err != nil || y < 0 || y >= path.Intrinsics.Height {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("y must be in [0, %d)", path.Intrinsics.Height)})
		return
	}

	rend, err := scene.NewRenderer(cfg, req.Seed, s.logger)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	response, err := inspectPixel(rend.Evaluation(), path.Intrinsics, path.Poses[frame], x, y)
	if err != nil {
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, response)
}

// inspectPixel renders the single ray through pixel (x, y)
func inspectPixel(rend *renderer.Renderer, in camera.Intrinsics, pose camera.Pose, x, y int) (InspectResponse, error) {
	origins, dirs, err := camera.GetRays(in, pose, rend.Options().Precision)
	if err != nil {
		return InspectResponse{}, err
	}
	i := y*in.Width + x
	batch := core.NewRayBatch(origins[i:i+1], dirs[i:i+1], 0, 0)

	out, err := rend.Render(renderer.Request{Intrinsics: in, Rays: &batch})
	if err != nil {
		return InspectResponse{}, err
	}

	response := InspectResponse{
		Origin:    origins[i].Array(),
		Direction: dirs[i].Array(),
		RGB:       out.RGB[0].Array(),
		Disparity: out.Disparity[0],
		Opacity:   out.Opacity[0],
		Depth:     out.Depth[0],
		Samples:   sampleInfo(out.ZVals[0], out.Weights[0]),
	}
	if out.Coarse != nil {
		response.Coarse = sampleInfo(out.Coarse.ZVals[0], out.Coarse.Weights[0])
		response.ZStd = out.ZStd[0]
	}
	return response, nil
}

func sampleInfo(z, weights []float64) []SampleInfo {
	samples := make([]SampleInfo, len(z))
	for i := range z {
		samples[i] = SampleInfo{Z: z[i], Weight: weights[i]}
	}
	return samples
}
