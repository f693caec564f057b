package server

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/df07/go-nerf/pkg/export"
	"github.com/df07/go-nerf/pkg/renderer"
	"github.com/df07/go-nerf/pkg/scene"
)

// FrameUpdate is sent via SSE as each frame of the path completes
type FrameUpdate struct {
	Index       int     `json:"index"`
	TotalFrames int     `json:"totalFrames"`
	Completed   int     `json:"completed"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	ImageData   string  `json:"imageData"`     // Base64 encoded PNG
	Disparity   string  `json:"disparityData"` // Base64 encoded PNG, normalized per frame
	PSNR        float64 `json:"psnr,omitempty"`
	Samples     float64 `json:"averageSamples"`
	Anomalies   int     `json:"anomalies"`
	ElapsedMs   int64   `json:"elapsedMs"`
}

// SSEEvent represents a unified SSE event for thread-safe writing
type SSEEvent struct {
	Type string `json:"type"` // "console", "frame", "error", "complete"
	Data string `json:"data"` // JSON-encoded data
}

// handleRender renders a scene's path and streams each frame via SSE
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	setSSEHeaders(w)
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// All writes to w happen on the writer goroutine
	events := make(chan SSEEvent, 100)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		writeSSEEvents(ctx, w, events)
	}()
	defer func() {
		close(events)
		<-writerDone
	}()

	req, err := s.parseRenderRequest(r)
	if err != nil {
		sendEvent(ctx, events, "error", fmt.Sprintf("Invalid request: %v", err))
		return
	}
	cfg, err := s.sceneFor(req)
	if err != nil {
		sendEvent(ctx, events, "error", err.Error())
		return
	}

	consoleChan := make(chan ConsoleMessage, 50)
	consoleDone := make(chan struct{})
	go func() {
		defer close(consoleDone)
		streamConsoleMessages(ctx, consoleChan, events)
	}()
	defer func() {
		close(consoleChan)
		<-consoleDone
	}()
	logger := NewWebLogger(fmt.Sprintf("render-%d", time.Now().UnixNano()), consoleChan)

	rend, err := scene.NewRenderer(cfg, req.Seed, logger)
	if err != nil {
		sendEvent(ctx, events, "error", err.Error())
		return
	}
	path, err := scene.BuildPath(cfg, req.Frames)
	if err != nil {
		sendEvent(ctx, events, "error", err.Error())
		return
	}

	startTime := time.Now()
	completed := 0
	opts := renderer.PathOptions{
		RenderFactor: cfg.Path.RenderFactor,
		NumWorkers:   cfg.Path.Workers,
		PSNRCap:      cfg.Path.PSNRCap,
		Sink: func(frame renderer.Frame) error {
			completed++
			update, err := frameUpdate(frame, len(path.Poses), completed, startTime)
			if err != nil {
				return err
			}
			data, err := json.Marshal(update)
			if err != nil {
				return err
			}
			if !sendEvent(ctx, events, "frame", string(data)) {
				return ctx.Err()
			}
			return nil
		},
	}

	frames, err := rend.Evaluation().RenderPath(ctx, path.Poses, path.Intrinsics, path.GroundTruth, opts)
	if err != nil {
		sendEvent(ctx, events, "error", fmt.Sprintf("Rendering failed: %v", err))
		return
	}

	data, err := renderSummary(frames, len(path.GroundTruth) > 0, time.Since(startTime))
	if err != nil {
		sendEvent(ctx, events, "error", fmt.Sprintf("Encoding summary failed: %v", err))
		return
	}
	sendEvent(ctx, events, "complete", string(data))
}

// renderSummary encodes the completion event. A perfect render has an
// infinite mean PSNR, which JSON cannot carry, so it is left out.
func renderSummary(frames []renderer.Frame, scored bool, elapsed time.Duration) ([]byte, error) {
	summary := map[string]any{"frames": len(frames), "elapsedMs": elapsed.Milliseconds()}
	if scored {
		if mean := renderer.MeanPSNR(frames); !math.IsInf(mean, 0) && !math.IsNaN(mean) {
			summary["meanPSNR"] = mean
		}
	}
	return json.Marshal(summary)
}

func frameUpdate(frame renderer.Frame, total, completed int, startTime time.Time) (FrameUpdate, error) {
	out := frame.Output
	imageData, err := imageToBase64PNG(out.Image())
	if err != nil {
		return FrameUpdate{}, fmt.Errorf("failed to encode frame %d: %w", frame.Index, err)
	}
	disp := export.DisparityImage(out.Disparity, out.Width, out.Height, export.MaxDisparity(out.Disparity), true)
	dispData, err := imageToBase64PNG(disp)
	if err != nil {
		return FrameUpdate{}, fmt.Errorf("failed to encode disparity %d: %w", frame.Index, err)
	}

	update := FrameUpdate{
		Index:       frame.Index,
		TotalFrames: total,
		Completed:   completed,
		Width:       out.Width,
		Height:      out.Height,
		ImageData:   imageData,
		Disparity:   dispData,
		Samples:     out.Stats.AverageSamples,
		Anomalies:   out.Stats.Anomalies,
		ElapsedMs:   time.Since(startTime).Milliseconds(),
	}
	// JSON has no Inf or NaN
	if frame.HasPSNR() && !math.IsInf(frame.PSNR, 0) {
		update.PSNR = frame.PSNR
	}
	return update, nil
}

// setSSEHeaders sets the required headers for Server-Sent Events
func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
}

// sendEvent queues an event, reporting false if the client went away
func sendEvent(ctx context.Context, events chan<- SSEEvent, eventType, data string) bool {
	select {
	case events <- SSEEvent{Type: eventType, Data: data}:
		return true
	case <-ctx.Done():
		return false
	}
}

// writeSSEEvents writes queued events until the channel closes or the client disconnects
func writeSSEEvents(ctx context.Context, w http.ResponseWriter, events <-chan SSEEvent) {
	flusher, _ := w.(http.Flusher)
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, event.Data); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		case <-ctx.Done():
			return
		}
	}
}

// streamConsoleMessages forwards log lines to the SSE stream, dropping them when it is busy
func streamConsoleMessages(ctx context.Context, consoleChan <-chan ConsoleMessage, events chan<- SSEEvent) {
	for {
		select {
		case msg, ok := <-consoleChan:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			select {
			case events <- SSEEvent{Type: "console", Data: string(data)}:
			case <-ctx.Done():
				return
			default:
			}
		case <-ctx.Done():
			return
		}
	}
}
