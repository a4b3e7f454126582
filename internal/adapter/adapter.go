// Package adapter normalizes the streaming wire formats of the upstream
// providers into the common event model. Each dialect is a hand-coded
// adapter over the raw response body; per-line parse failures are dropped
// and only transport failures surface, as a trailing Error event.
package adapter

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/lumenchat/stream-platform/internal/model"
	"github.com/lumenchat/stream-platform/pkg/metrics"
)

// maxLineBytes bounds a single upstream line. Whole-answer replays can be
// large, so this is well above typical SSE frame sizes.
const maxLineBytes = 1024 * 1024

// Adapter turns a raw upstream byte stream into a lazy, finite sequence
// of stream events. The returned channel is closed when the upstream
// sequence ends; a transport failure appends a single Error event first.
type Adapter interface {
	Name() string
	Parse(ctx context.Context, body io.Reader) <-chan model.StreamEvent
}

// scanLines runs fn over every non-empty trimmed line of body and takes
// care of channel lifecycle and transport errors. fn returns false to
// stop early (sentinel termination).
func scanLines(ctx context.Context, body io.Reader, out chan<- model.StreamEvent, fn func(line string) bool) {
	defer close(out)

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !fn(line) {
			return
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		select {
		case out <- model.Error{Message: "upstream connection error: " + err.Error()}:
		case <-ctx.Done():
		}
	}
}

// emit delivers events respecting cancellation. Reports whether all
// events were sent.
func emit(ctx context.Context, out chan<- model.StreamEvent, events ...model.StreamEvent) bool {
	for _, ev := range events {
		select {
		case out <- ev:
		case <-ctx.Done():
			return false
		}
	}
	return true
}

// deltaEvents extracts events from one delta-JSON object. Non-empty
// reasoning content maps to Thinking, non-empty content to Chunk. A
// bare top-level content field is a complete finished answer.
func deltaEvents(line string) []model.StreamEvent {
	var events []model.StreamEvent

	if reasoning := gjson.Get(line, "choices.0.delta.reasoning_content").String(); reasoning != "" {
		events = append(events, model.Thinking{Content: reasoning})
	}
	if content := gjson.Get(line, "choices.0.delta.content").String(); content != "" {
		events = append(events, model.Chunk{Content: content})
	}
	if events == nil {
		if content := gjson.Get(line, "content").String(); content != "" {
			events = append(events, model.Chunk{Content: content, Final: true})
		}
	}

	return events
}

func countParseError(dialect string) {
	metrics.AdapterParseErrors.WithLabelValues(dialect).Inc()
}
