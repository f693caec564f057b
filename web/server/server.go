package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/df07/go-nerf/pkg/core"
	"github.com/df07/go-nerf/pkg/export"
	"github.com/df07/go-nerf/pkg/loaders"
	"github.com/df07/go-nerf/pkg/scene"
)

// Limits applied to request overrides
const (
	minImageSize = 8
	maxImageSize = 2000
	maxFrames    = 360
	maxSamples   = 1024
)

// Server streams path renders to browsers
type Server struct {
	port      int
	scenesDir string
	logger    zerolog.Logger
}

// NewServer creates a new web server. scenesDir may be empty to use the
// default scenes directory.
func NewServer(port int, scenesDir string, logger zerolog.Logger) *Server {
	return &Server{port: port, scenesDir: scenesDir, logger: logger}
}

// RenderRequest represents a render request from the client. Zero values
// keep the scene's own settings.
type RenderRequest struct {
	Scene        string `json:"scene"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Frames       int    `json:"frames"`
	Samples      int    `json:"samples"`
	Importance   int    `json:"importance"`
	RenderFactor int    `json:"renderFactor"`
	Seed         uint64 `json:"seed"`
}

// Handler returns the server's routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/scenes", s.handleScenes)
	mux.HandleFunc("/api/scene-config", s.handleSceneConfig)
	mux.HandleFunc("/api/render", s.handleRender)
	mux.HandleFunc("/api/inspect", s.handleInspect)
	return mux
}

// Start starts the web server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info().Str("addr", "http://localhost"+addr).Msg("starting web server")
	return http.ListenAndServe(addr, s.Handler())
}

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleScenes lists built-in scenes and scene files
func (s *Server) handleScenes(w http.ResponseWriter, r *http.Request) {
	response, err := scene.ListAllScenes(s.scenesDir)
	if err != nil {
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, response)
}

// handleSceneConfig returns the resolved configuration of a scene and the
// limits the render endpoint accepts
func (s *Server) handleSceneConfig(w http.ResponseWriter, r *http.Request) {
	sceneName := r.URL.Query().Get("scene")
	if sceneName == "" {
		sceneName = "orb"
	}

	cfg, err := scene.LoadFrom(s.scenesDir, sceneName)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"scene":    sceneName,
		"defaults": cfg,
		"limits": map[string]any{
			"width":   map[string]int{"min": minImageSize, "max": maxImageSize},
			"height":  map[string]int{"min": minImageSize, "max": maxImageSize},
			"frames":  map[string]int{"min": 1, "max": maxFrames},
			"samples": map[string]int{"min": 1, "max": maxSamples},
		},
	})
}

// parseRenderRequest parses request parameters
func (s *Server) parseRenderRequest(r *http.Request) (*RenderRequest, error) {
	query := r.URL.Query()
	req := &RenderRequest{Scene: query.Get("scene")}
	if req.Scene == "" {
		req.Scene = "orb"
	}

	var err error
	if req.Width, err = parseIntParam(query, "width", 0, minImageSize, maxImageSize); err != nil {
		return nil, err
	}
	if req.Height, err = parseIntParam(query, "height", 0, minImageSize, maxImageSize); err != nil {
		return nil, err
	}
	if req.Frames, err = parseIntParam(query, "frames", 0, 1, maxFrames); err != nil {
		return nil, err
	}
	if req.Samples, err = parseIntParam(query, "samples", 0, 1, maxSamples); err != nil {
		return nil, err
	}
	if req.Importance, err = parseIntParam(query, "importance", -1, 0, maxSamples); err != nil {
		return nil, err
	}
	if req.RenderFactor, err = parseIntParam(query, "renderFactor", 0, 1, 16); err != nil {
		return nil, err
	}
	if v := query.Get("seed"); v != "" {
		if req.Seed, err = strconv.ParseUint(v, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid seed: %s", v)
		}
	}
	return req, nil
}

// sceneFor loads the requested scene and applies the request's overrides
func (s *Server) sceneFor(req *RenderRequest) (*loaders.SceneConfig, error) {
	cfg, err := scene.LoadFrom(s.scenesDir, req.Scene)
	if err != nil {
		return nil, err
	}
	if req.Width > 0 {
		cfg.Width = req.Width
	}
	if req.Height > 0 {
		cfg.Height = req.Height
	}
	if req.Samples > 0 {
		cfg.Render.NSamples = req.Samples
	}
	if req.Importance >= 0 {
		cfg.Render.NImportance = req.Importance
	}
	if req.RenderFactor > 0 {
		cfg.Path.RenderFactor = req.RenderFactor
	}
	return cfg, cfg.Validate()
}

// parseIntParam parses an integer parameter from URL query with validation
func parseIntParam(values url.Values, key string, defaultValue, min, max int) (int, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %d and %d, got: %d", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// imageToBase64PNG converts an image to base64-encoded PNG
func imageToBase64PNG(img core.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, export.ToRGBA(img)); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// writeJSON encodes v before writing the header so an unencodable value
// becomes a 500 instead of a truncated 200.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
		status = http.StatusInternalServerError
		data, _ = json.Marshal(map[string]string{"error": fmt.Sprintf("failed to encode response: %v", err)})
	}
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		s.logger.Debug().Err(err).Msg("failed to write response")
	}
}
