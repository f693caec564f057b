package server

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ConsoleMessage represents a console message with timestamp
type ConsoleMessage struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"` // "debug", "info", "warn", "error"
}

// consoleWriter receives zerolog JSON lines and forwards them to a console channel
type consoleWriter struct {
	renderID    string
	consoleChan chan<- ConsoleMessage
}

// NewWebLogger creates a logger for a specific render whose events are sent
// to consoleChan. Sends never block; messages are dropped when the channel is full.
func NewWebLogger(renderID string, consoleChan chan<- ConsoleMessage) zerolog.Logger {
	w := &consoleWriter{renderID: renderID, consoleChan: consoleChan}
	return zerolog.New(w).With().Timestamp().Str("render", renderID).Logger()
}

// Write implements io.Writer for zerolog
func (cw *consoleWriter) Write(p []byte) (int, error) {
	if cw.consoleChan == nil {
		return len(p), nil
	}

	var event map[string]any
	if err := json.Unmarshal(p, &event); err != nil {
		return 0, fmt.Errorf("console: %w", err)
	}

	msg := ConsoleMessage{Message: formatEvent(event), Timestamp: time.Now(), Level: "info"}
	if level, ok := event[zerolog.LevelFieldName].(string); ok {
		msg.Level = level
	}

	select {
	case cw.consoleChan <- msg:
	default:
		// Channel full, skip (don't block)
	}
	return len(p), nil
}

// formatEvent renders the message followed by the remaining fields as key=value
func formatEvent(event map[string]any) string {
	message, _ := event[zerolog.MessageFieldName].(string)

	var keys []string
	for k := range event {
		switch k {
		case zerolog.MessageFieldName, zerolog.LevelFieldName, zerolog.TimestampFieldName, "render":
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(message)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, event[k])
	}
	return sb.String()
}
