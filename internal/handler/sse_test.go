package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenchat/stream-platform/internal/model"
)

func TestSSEWriter_EventFraming(t *testing.T) {
	rec := httptest.NewRecorder()
	sse, ok := newSSEWriter(rec)
	require.True(t, ok)

	require.NoError(t, sse.Event(model.Chunk{Content: "hello\nworld"}))
	require.NoError(t, sse.Event(model.End{MessageID: "msg-1"}))

	body := rec.Body.String()
	assert.Contains(t, body, "event: chunk\ndata: {\"content\":\"hello\\nworld\"}\n\n")
	assert.Contains(t, body, "event: end\ndata: {\"message_id\":\"msg-1\"}\n\n")

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
}

func TestSSEWriter_Comment(t *testing.T) {
	rec := httptest.NewRecorder()
	sse, ok := newSSEWriter(rec)
	require.True(t, ok)

	sse.Comment("heartbeat")
	assert.Equal(t, ": heartbeat\n\n", rec.Body.String())
}

// plainWriter cannot flush, so streaming is not possible on it.
type plainWriter struct {
	http.ResponseWriter
}

func TestSSEWriter_RequiresFlusher(t *testing.T) {
	_, ok := newSSEWriter(plainWriter{httptest.NewRecorder()})
	assert.False(t, ok)
}
