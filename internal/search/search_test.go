package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenchat/stream-platform/internal/broadcast"
	"github.com/lumenchat/stream-platform/internal/ledger"
	"github.com/lumenchat/stream-platform/internal/model"
	"github.com/lumenchat/stream-platform/internal/store"
	"github.com/lumenchat/stream-platform/pkg/logger"
)

func setup(t *testing.T, fn Func) (*Service, *broadcast.Registry, *ledger.Ledger, *store.Memory, string, string) {
	t.Helper()

	mem := store.NewMemory()
	registry := broadcast.NewRegistry(logger.NewNop())
	led := ledger.New(ledger.NewMemoryStore(), logger.NewNop())
	svc := New(fn, registry, led, mem, logger.NewNop())

	conv, err := mem.CreateConversation(context.Background(), "user-1", "chat")
	require.NoError(t, err)
	msgID, err := mem.CreateDraftMessage(context.Background(), conv.ID, model.RoleAssistant, model.DraftPlaceholder)
	require.NoError(t, err)

	return svc, registry, led, mem, conv.ID, msgID
}

func drain(ch <-chan model.StreamEvent) []model.StreamEvent {
	var events []model.StreamEvent
	for {
		select {
		case ev := <-ch:
			events = append(events, ev)
		default:
			return events
		}
	}
}

func TestRun_Success(t *testing.T) {
	hits := []model.SearchResult{
		{Title: "Go", Content: "docs", URL: "https://go.dev", Score: 0.9},
	}
	svc, registry, led, mem, convID, msgID := setup(t, func(ctx context.Context, query string) ([]model.SearchResult, error) {
		return hits, nil
	})

	side := registry.Register(convID)

	results, err := svc.Run(context.Background(), convID, msgID, "golang")
	require.NoError(t, err)
	assert.Equal(t, hits, results)

	events := drain(side)
	require.NotEmpty(t, events)
	assert.Equal(t, model.SearchStatus{Status: "searching", Query: "golang"}, events[0])
	assert.Contains(t, events, model.SearchResults{Query: "golang", Results: hits})

	// The ledger recorded a completed webSearch call with sequence 1.
	records, err := led.ListByMessage(context.Background(), msgID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "webSearch", records[0].Tool)
	assert.Equal(t, model.ToolCallSuccess, records[0].Status)
	assert.Equal(t, 1, records[0].Sequence)

	// A ToolCall event referencing that record went out on the side
	// channel.
	var toolCall *model.ToolCall
	for _, ev := range events {
		if tc, ok := ev.(model.ToolCall); ok {
			toolCall = &tc
		}
	}
	require.NotNil(t, toolCall)
	assert.Equal(t, records[0].ID, toolCall.ID)
	assert.Equal(t, 1, toolCall.Sequence)

	// The serialized blob landed on the message.
	msg, err := mem.GetMessage(context.Background(), msgID)
	require.NoError(t, err)
	assert.NotEmpty(t, msg.SearchResults)
}

func TestRun_ProviderFailure(t *testing.T) {
	svc, registry, led, _, convID, msgID := setup(t, func(ctx context.Context, query string) ([]model.SearchResult, error) {
		return nil, errors.New("search backend down")
	})

	side := registry.Register(convID)

	_, err := svc.Run(context.Background(), convID, msgID, "golang")
	require.Error(t, err)

	events := drain(side)
	require.Len(t, events, 2)
	assert.Equal(t, model.SearchStatus{Status: "searching", Query: "golang"}, events[0])
	assert.Equal(t, model.SearchStatus{Status: "failed", Query: "golang"}, events[1])

	records, err := led.ListByMessage(context.Background(), msgID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRun_NoRegisteredChannel(t *testing.T) {
	svc, _, _, _, convID, msgID := setup(t, func(ctx context.Context, query string) ([]model.SearchResult, error) {
		return []model.SearchResult{{Title: "x"}}, nil
	})

	// Publishing into an idle conversation drops events; the search
	// itself still runs and records.
	results, err := svc.Run(context.Background(), convID, msgID, "golang")
	require.NoError(t, err)
	assert.Len(t, results, 1)
}
