package adapter

import (
	"context"
	"io"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/lumenchat/stream-platform/internal/model"
	"github.com/lumenchat/stream-platform/pkg/logger"
)

// Delta parses the standard delta-JSON dialect used by OpenAI-compatible
// providers: each line is a JSON object carrying incremental content
// and/or reasoning content under choices[0].delta.
type Delta struct {
	log *logger.Logger
}

// NewDelta creates a standard delta adapter.
func NewDelta(log *logger.Logger) *Delta {
	return &Delta{log: log}
}

// Name returns the dialect name.
func (a *Delta) Name() string { return "delta" }

// Parse normalizes the upstream body into stream events.
func (a *Delta) Parse(ctx context.Context, body io.Reader) <-chan model.StreamEvent {
	out := make(chan model.StreamEvent)

	go scanLines(ctx, body, out, func(line string) bool {
		line = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if line == "" || line == "[DONE]" {
			return true
		}
		if !gjson.Valid(line) {
			countParseError(a.Name())
			return true
		}
		return emit(ctx, out, deltaEvents(line)...)
	})

	return out
}
