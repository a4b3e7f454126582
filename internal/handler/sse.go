package handler

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/lumenchat/stream-platform/internal/model"
)

// sseWriter frames stream events as server-sent events. The mutex lets
// the heartbeat ticker interleave with the event pipeline safely.
type sseWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	failed  bool
}

// newSSEWriter sets the SSE response headers and returns the writer, or
// false when the connection cannot stream.
func newSSEWriter(w http.ResponseWriter) (*sseWriter, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	return &sseWriter{w: w, flusher: flusher}, true
}

// Event writes one stream event as an SSE frame. The payload is the
// event's wire form, so chunk text with embedded newlines survives the
// line-oriented framing.
func (s *sseWriter) Event(ev model.StreamEvent) error {
	data, err := model.MarshalWire(ev)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failed {
		return http.ErrHandlerTimeout
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", model.WireType(ev), data); err != nil {
		s.failed = true
		return err
	}
	s.flusher.Flush()
	return nil
}

// Comment writes an SSE comment line, used as a heartbeat.
func (s *sseWriter) Comment(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failed {
		return
	}
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", text); err != nil {
		s.failed = true
		return
	}
	s.flusher.Flush()
}
