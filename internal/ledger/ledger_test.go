package ledger

import (
	"context"
	"errors"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenchat/stream-platform/internal/model"
	"github.com/lumenchat/stream-platform/pkg/logger"
)

func newTestLedger() *Ledger {
	return New(NewMemoryStore(), logger.NewNop())
}

func TestStartToolCall_SequencesAreMonotonicPerMessage(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger()

	id1, err := l.StartToolCall(ctx, "msg-1", "webSearch", `{"query":"go"}`)
	require.NoError(t, err)
	id2, err := l.StartToolCall(ctx, "msg-1", "webSearch", `{"query":"rust"}`)
	require.NoError(t, err)

	// A different message starts its own sequence.
	otherID, err := l.StartToolCall(ctx, "msg-2", "webSearch", `{"query":"zig"}`)
	require.NoError(t, err)

	rec1, err := l.GetToolCall(ctx, id1)
	require.NoError(t, err)
	rec2, err := l.GetToolCall(ctx, id2)
	require.NoError(t, err)
	other, err := l.GetToolCall(ctx, otherID)
	require.NoError(t, err)

	assert.Equal(t, 1, rec1.Sequence)
	assert.Equal(t, 2, rec2.Sequence)
	assert.Equal(t, 1, other.Sequence)
	assert.Equal(t, model.ToolCallInProgress, rec1.Status)
}

func TestCompleteToolCall(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger()

	id, err := l.StartToolCall(ctx, "msg-1", "webSearch", `{"query":"go"}`)
	require.NoError(t, err)

	require.NoError(t, l.CompleteToolCall(ctx, id, `[{"title":"Go"}]`))

	rec, err := l.GetToolCall(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.ToolCallSuccess, rec.Status)
	assert.Equal(t, `[{"title":"Go"}]`, rec.Output)
	assert.Equal(t, "msg-1", rec.MessageID)
	assert.Equal(t, 1, rec.Sequence)
}

func TestFailToolCall(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger()

	id, err := l.StartToolCall(ctx, "msg-1", "webSearch", `{"query":"go"}`)
	require.NoError(t, err)

	require.NoError(t, l.FailToolCall(ctx, id, "provider timed out"))

	rec, err := l.GetToolCall(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.ToolCallFailed, rec.Status)
	assert.Equal(t, "provider timed out", rec.Error)
	assert.Empty(t, rec.Output)
}

func TestCompleteToolCall_UnknownID(t *testing.T) {
	l := newTestLedger()
	err := l.CompleteToolCall(context.Background(), "no-such-id", "out")
	assert.Error(t, err)
}

func TestSaveSearchResults(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger()

	results := []model.SearchResult{
		{Title: "Go", Content: "The Go programming language", URL: "https://go.dev", Score: 0.97},
	}

	id, err := l.SaveSearchResults(ctx, "msg-1", "golang", results)
	require.NoError(t, err)

	rec, err := l.GetToolCall(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "webSearch", rec.Tool)
	assert.Equal(t, model.ToolCallSuccess, rec.Status)
	assert.Equal(t, `{"query":"golang"}`, rec.Input)

	var stored []model.SearchResult
	require.NoError(t, json.Unmarshal([]byte(rec.Output), &stored))
	assert.Equal(t, results, stored)
}

func TestListByMessage_SequenceOrder(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger()

	for _, query := range []string{"a", "b", "c"} {
		_, err := l.StartToolCall(ctx, "msg-1", "webSearch", query)
		require.NoError(t, err)
	}

	records, err := l.ListByMessage(ctx, "msg-1")
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, rec := range records {
		assert.Equal(t, i+1, rec.Sequence)
	}
}

func TestDeleteByMessages(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger()

	_, err := l.StartToolCall(ctx, "msg-1", "webSearch", "a")
	require.NoError(t, err)
	_, err = l.StartToolCall(ctx, "msg-2", "webSearch", "b")
	require.NoError(t, err)
	keptID, err := l.StartToolCall(ctx, "msg-3", "webSearch", "c")
	require.NoError(t, err)

	l.DeleteByMessages(ctx, []string{"msg-1", "msg-2"})

	records, err := l.ListByMessage(ctx, "msg-1")
	require.NoError(t, err)
	assert.Empty(t, records)
	records, err = l.ListByMessage(ctx, "msg-2")
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = l.GetToolCall(ctx, keptID)
	assert.NoError(t, err)
}

// batchFailingStore forces the batched deletion path to fail so the
// per-id fallback runs.
type batchFailingStore struct {
	*MemoryStore
}

func (s *batchFailingStore) DeleteByMessageIDs(ctx context.Context, messageIDs []string) error {
	return errors.New("batch delete unsupported")
}

func TestDeleteByMessages_FallbackPerID(t *testing.T) {
	ctx := context.Background()
	l := New(&batchFailingStore{MemoryStore: NewMemoryStore()}, logger.NewNop())

	_, err := l.StartToolCall(ctx, "msg-1", "webSearch", "a")
	require.NoError(t, err)
	_, err = l.StartToolCall(ctx, "msg-2", "webSearch", "b")
	require.NoError(t, err)

	l.DeleteByMessages(ctx, []string{"msg-1", "msg-2"})

	for _, msgID := range []string{"msg-1", "msg-2"} {
		records, err := l.ListByMessage(ctx, msgID)
		require.NoError(t, err)
		assert.Empty(t, records)
	}
}
