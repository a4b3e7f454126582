// Package search runs the web-search collaborator and publishes its
// progress onto a conversation's broadcast channel from outside the
// orchestrator's call stack.
package search

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/lumenchat/stream-platform/internal/broadcast"
	"github.com/lumenchat/stream-platform/internal/ledger"
	"github.com/lumenchat/stream-platform/internal/model"
	"github.com/lumenchat/stream-platform/internal/store"
	"github.com/lumenchat/stream-platform/pkg/logger"
)

// Func is the search-provider client, injected as a plain function.
type Func func(ctx context.Context, query string) ([]model.SearchResult, error)

// Service coordinates one web search: side-channel progress events, the
// ledger record, and the serialized results blob on the message.
type Service struct {
	search   Func
	registry *broadcast.Registry
	ledger   *ledger.Ledger
	messages store.Messages
	log      *logger.Logger
}

// New creates the search service.
func New(fn Func, registry *broadcast.Registry, led *ledger.Ledger, messages store.Messages, log *logger.Logger) *Service {
	return &Service{search: fn, registry: registry, ledger: led, messages: messages, log: log}
}

// Run executes a search for an in-flight message. It publishes a
// SearchStatus event, runs the provider, then publishes the results and
// records a completed webSearch ledger entry against the message id.
// The results are returned for prompt construction.
func (s *Service) Run(ctx context.Context, conversationID, messageID, query string) ([]model.SearchResult, error) {
	s.registry.Publish(conversationID, model.SearchStatus{Status: "searching", Query: query})

	results, err := s.search(ctx, query)
	if err != nil {
		s.registry.Publish(conversationID, model.SearchStatus{Status: "failed", Query: query})
		return nil, fmt.Errorf("web search failed: %w", err)
	}

	s.registry.Publish(conversationID, model.SearchResults{Query: query, Results: results})

	recordID, err := s.ledger.SaveSearchResults(ctx, messageID, query, results)
	if err != nil {
		// The search itself succeeded; a ledger failure must not kill
		// the stream.
		s.log.Warn("failed to record search results",
			zap.String("message_id", messageID), zap.Error(err))
		return results, nil
	}

	record, err := s.ledger.GetToolCall(ctx, recordID)
	if err == nil {
		s.registry.Publish(conversationID, model.ToolCall{
			ID:       record.ID,
			Tool:     record.Tool,
			Sequence: record.Sequence,
		})
	}

	if blob, err := json.Marshal(results); err == nil {
		if err := s.messages.UpdateMessageSearchResults(ctx, messageID, string(blob)); err != nil {
			s.log.Warn("failed to attach search results to message",
				zap.String("message_id", messageID), zap.Error(err))
		}
	}

	return results, nil
}
