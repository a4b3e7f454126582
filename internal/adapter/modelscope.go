package adapter

import (
	"context"
	"io"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/lumenchat/stream-platform/internal/model"
	"github.com/lumenchat/stream-platform/pkg/logger"
)

// doneSentinel terminates a raw-JSON stream. It is a literal marker, not
// a JSON payload, and never produces an event.
const doneSentinel = "[DONE]"

// ModelScope parses the raw-JSON-with-sentinel dialect (ModelScope/Qwen
// style): every line must be a complete {...} JSON object or the literal
// [DONE] sentinel; anything else is filtered out before parsing.
type ModelScope struct {
	log *logger.Logger
}

// NewModelScope creates a raw-JSON adapter.
func NewModelScope(log *logger.Logger) *ModelScope {
	return &ModelScope{log: log}
}

// Name returns the dialect name.
func (a *ModelScope) Name() string { return "modelscope" }

// Parse normalizes the upstream body into stream events.
func (a *ModelScope) Parse(ctx context.Context, body io.Reader) <-chan model.StreamEvent {
	out := make(chan model.StreamEvent)

	go scanLines(ctx, body, out, func(line string) bool {
		if line == doneSentinel {
			return false
		}
		if !strings.HasPrefix(line, "{") || !strings.HasSuffix(line, "}") {
			countParseError(a.Name())
			return true
		}
		if !gjson.Valid(line) {
			countParseError(a.Name())
			return true
		}

		events := deltaEvents(line)
		if len(events) == 0 {
			// Neither content nor reasoning present; non-fatal.
			a.log.Debug("upstream line carried no content", zap.String("line", line))
			return true
		}
		return emit(ctx, out, events...)
	})

	return out
}
