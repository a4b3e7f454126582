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

// GreatWall parses the bespoke-event dialect: lines are either complete
// standalone JSON objects or legacy "event:"/"data:"-prefixed lines, and
// each parsed object carries an "event" discriminator. A final
// message_finished frame replays the complete output text; that chunk is
// additive to chunks already emitted and consumers must tolerate it.
type GreatWall struct {
	log *logger.Logger
}

// NewGreatWall creates a bespoke-event adapter.
func NewGreatWall(log *logger.Logger) *GreatWall {
	return &GreatWall{log: log}
}

// Name returns the dialect name.
func (a *GreatWall) Name() string { return "greatwall" }

// Parse normalizes the upstream body into stream events.
func (a *GreatWall) Parse(ctx context.Context, body io.Reader) <-chan model.StreamEvent {
	out := make(chan model.StreamEvent)

	go scanLines(ctx, body, out, func(line string) bool {
		payload, ok := a.extract(line)
		if !ok {
			return true
		}
		return emit(ctx, out, a.events(payload)...)
	})

	return out
}

// extract applies the invalid-line filter and strips legacy prefixes,
// returning the JSON payload of a line if there is one.
func (a *GreatWall) extract(line string) (string, bool) {
	switch {
	case strings.HasPrefix(line, "{") && strings.HasSuffix(line, "}"):
		return line, true
	case strings.HasPrefix(line, "data:"):
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		return payload, payload != ""
	case strings.HasPrefix(line, "event:"):
		// Discriminator rides inside the data object; the event line
		// itself carries nothing to parse.
		return "", false
	default:
		countParseError(a.Name())
		return "", false
	}
}

// events maps one parsed object to its stream events. Parse failures on
// an individual line produce an empty sub-sequence, never an abort.
func (a *GreatWall) events(payload string) []model.StreamEvent {
	if !gjson.Valid(payload) {
		countParseError(a.Name())
		return nil
	}

	switch event := gjson.Get(payload, "event").String(); event {
	case "message_start":
		return []model.StreamEvent{model.Start{}}
	case "llm_chunk":
		if content := gjson.Get(payload, "data.choices.0.delta.content").String(); content != "" {
			return []model.StreamEvent{model.Chunk{Content: content}}
		}
		return nil
	case "llm_finished":
		// Informational only.
		return nil
	case "message_finished":
		if output := gjson.Get(payload, "data.output").String(); output != "" {
			return []model.StreamEvent{model.Chunk{Content: output, Final: true}}
		}
		return nil
	default:
		a.log.Debug("unrecognized upstream event", zap.String("event", event))
		return nil
	}
}
