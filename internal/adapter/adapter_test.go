package adapter

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenchat/stream-platform/internal/model"
	"github.com/lumenchat/stream-platform/pkg/logger"
)

func collect(t *testing.T, a Adapter, body string) []model.StreamEvent {
	t.Helper()
	return collectReader(t, a, strings.NewReader(body))
}

func collectReader(t *testing.T, a Adapter, body io.Reader) []model.StreamEvent {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var events []model.StreamEvent
	for ev := range a.Parse(ctx, body) {
		events = append(events, ev)
	}
	return events
}

// failingReader yields its content, then fails mid-stream.
type failingReader struct {
	content string
	read    bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.read {
		r.read = true
		return copy(p, r.content), nil
	}
	return 0, errors.New("connection reset by peer")
}

func TestDelta_ContentAndReasoning(t *testing.T) {
	body := `{"choices":[{"delta":{"reasoning_content":"hmm"}}]}
{"choices":[{"delta":{"content":"Hello"}}]}
{"choices":[{"delta":{"content":" world"}}]}
`

	events := collect(t, NewDelta(logger.NewNop()), body)
	require.Len(t, events, 3)
	assert.Equal(t, model.Thinking{Content: "hmm"}, events[0])
	assert.Equal(t, model.Chunk{Content: "Hello"}, events[1])
	assert.Equal(t, model.Chunk{Content: " world"}, events[2])
}

func TestDelta_DataPrefixAndDone(t *testing.T) {
	body := "data: {\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n" +
		"data: [DONE]\n"

	events := collect(t, NewDelta(logger.NewNop()), body)
	require.Len(t, events, 1)
	assert.Equal(t, model.Chunk{Content: "Hi"}, events[0])
}

func TestDelta_SkipsInvalidLines(t *testing.T) {
	body := "not json at all\n" +
		`{"choices":[{"delta":{"content":"ok"}}]}` + "\n" +
		"{\"broken\n"

	events := collect(t, NewDelta(logger.NewNop()), body)
	require.Len(t, events, 1)
	assert.Equal(t, model.Chunk{Content: "ok"}, events[0])
}

func TestDelta_BareContentIsFinal(t *testing.T) {
	events := collect(t, NewDelta(logger.NewNop()), `{"content":"complete answer"}`)
	require.Len(t, events, 1)
	assert.Equal(t, model.Chunk{Content: "complete answer", Final: true}, events[0])
}

func TestDelta_EmptyDeltaProducesNothing(t *testing.T) {
	body := `{"choices":[{"delta":{}}]}
{"choices":[{"delta":{"content":""}}]}
`
	events := collect(t, NewDelta(logger.NewNop()), body)
	assert.Empty(t, events)
}

func TestDelta_TransportFailureTrailingError(t *testing.T) {
	body := &failingReader{content: `{"choices":[{"delta":{"content":"partial"}}]}` + "\n"}

	events := collectReader(t, NewDelta(logger.NewNop()), body)
	require.Len(t, events, 2)
	assert.Equal(t, model.Chunk{Content: "partial"}, events[0])

	errEv, ok := events[1].(model.Error)
	require.True(t, ok)
	assert.Contains(t, errEv.Message, "connection reset by peer")
}

func TestGreatWall_FullLifecycle(t *testing.T) {
	body := `{"event":"message_start"}
{"event":"llm_chunk","data":{"choices":[{"delta":{"content":"Hi"}}]}}
{"event":"llm_finished"}
{"event":"message_finished","data":{"output":"Hi there"}}
`

	events := collect(t, NewGreatWall(logger.NewNop()), body)
	require.Len(t, events, 3)
	assert.Equal(t, model.Start{}, events[0])
	assert.Equal(t, model.Chunk{Content: "Hi"}, events[1])
	assert.Equal(t, model.Chunk{Content: "Hi there", Final: true}, events[2])
}

func TestGreatWall_LegacyPrefixedLines(t *testing.T) {
	body := "event: llm_chunk\n" +
		"data: {\"event\":\"llm_chunk\",\"data\":{\"choices\":[{\"delta\":{\"content\":\"token\"}}]}}\n"

	events := collect(t, NewGreatWall(logger.NewNop()), body)
	require.Len(t, events, 1)
	assert.Equal(t, model.Chunk{Content: "token"}, events[0])
}

func TestGreatWall_FiltersGarbage(t *testing.T) {
	body := "some log line from the proxy\n" +
		"{\"event\":\"llm_chunk\",\"data\":{\"choices\":[{\"delta\":{\"content\":\"x\"}}]}}\n" +
		"{\"event\":\"unknown_event\"}\n"

	events := collect(t, NewGreatWall(logger.NewNop()), body)
	require.Len(t, events, 1)
	assert.Equal(t, model.Chunk{Content: "x"}, events[0])
}

func TestModelScope_StopsAtSentinel(t *testing.T) {
	body := `{"choices":[{"delta":{"reasoning_content":"think"}}]}
{"choices":[{"delta":{"content":"Hi"}}]}
[DONE]
{"choices":[{"delta":{"content":"never seen"}}]}
`

	events := collect(t, NewModelScope(logger.NewNop()), body)
	require.Len(t, events, 2)
	assert.Equal(t, model.Thinking{Content: "think"}, events[0])
	assert.Equal(t, model.Chunk{Content: "Hi"}, events[1])
}

func TestModelScope_RejectsNonObjectLines(t *testing.T) {
	body := "data: {\"choices\":[{\"delta\":{\"content\":\"prefixed\"}}]}\n" +
		`{"choices":[{"delta":{"content":"bare"}}]}` + "\n"

	events := collect(t, NewModelScope(logger.NewNop()), body)
	require.Len(t, events, 1)
	assert.Equal(t, model.Chunk{Content: "bare"}, events[0])
}

func TestParse_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	body := strings.NewReader(`{"choices":[{"delta":{"content":"Hi"}}]}` + "\n")
	ch := NewDelta(logger.NewNop()).Parse(ctx, body)

	var events []model.StreamEvent
	for ev := range ch {
		events = append(events, ev)
	}
	assert.Empty(t, events)
}
