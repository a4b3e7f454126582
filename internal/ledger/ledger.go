// Package ledger records tool invocations and search results against
// messages, with 1-based monotonic per-message sequence numbers.
package ledger

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumenchat/stream-platform/internal/model"
	"github.com/lumenchat/stream-platform/pkg/logger"
	"github.com/lumenchat/stream-platform/pkg/metrics"
)

// Store is the persistence surface the ledger runs on.
type Store interface {
	InsertToolCall(ctx context.Context, rec *model.ToolCallRecord) error
	GetToolCall(ctx context.Context, id string) (*model.ToolCallRecord, error)
	UpdateToolCall(ctx context.Context, rec *model.ToolCallRecord) error
	MaxSequence(ctx context.Context, messageID string) (int, error)
	DeleteByMessage(ctx context.Context, messageID string) error
	DeleteByMessageIDs(ctx context.Context, messageIDs []string) error
	ListByMessage(ctx context.Context, messageID string) ([]model.ToolCallRecord, error)
}

// Ledger is the tool-call ledger service.
type Ledger struct {
	store Store
	log   *logger.Logger
}

// New creates a ledger over the given store.
func New(store Store, log *logger.Logger) *Ledger {
	return &Ledger{store: store, log: log}
}

// StartToolCall assigns the next sequence number for the message and
// inserts an IN_PROGRESS record, returning its id.
//
// Sequence assignment is read-current-max-then-insert; the store's own
// concurrency control is expected to serialize calls for one message id.
// A port to a shared database would need an atomic per-message counter
// here.
func (l *Ledger) StartToolCall(ctx context.Context, messageID, tool, input string) (string, error) {
	maxSeq, err := l.store.MaxSequence(ctx, messageID)
	if err != nil {
		return "", fmt.Errorf("failed to read tool-call sequence for message %s: %w", messageID, err)
	}

	rec := &model.ToolCallRecord{
		ID:        uuid.Must(uuid.NewV7()).String(),
		MessageID: messageID,
		Tool:      tool,
		Sequence:  maxSeq + 1,
		Input:     input,
		Status:    model.ToolCallInProgress,
		CreatedAt: time.Now(),
	}

	if err := l.store.InsertToolCall(ctx, rec); err != nil {
		return "", fmt.Errorf("failed to insert tool-call record: %w", err)
	}

	metrics.ToolCallsTotal.WithLabelValues(tool, string(model.ToolCallInProgress)).Inc()
	return rec.ID, nil
}

// CompleteToolCall marks the record SUCCESS and stores its output.
func (l *Ledger) CompleteToolCall(ctx context.Context, id, output string) error {
	rec, err := l.store.GetToolCall(ctx, id)
	if err != nil {
		return fmt.Errorf("tool-call record %s not found: %w", id, err)
	}

	rec.Status = model.ToolCallSuccess
	rec.Output = output
	if err := l.store.UpdateToolCall(ctx, rec); err != nil {
		return fmt.Errorf("failed to update tool-call record %s: %w", id, err)
	}

	metrics.ToolCallsTotal.WithLabelValues(rec.Tool, string(model.ToolCallSuccess)).Inc()
	return nil
}

// FailToolCall marks the record FAILED and stores the error text.
func (l *Ledger) FailToolCall(ctx context.Context, id, errMessage string) error {
	rec, err := l.store.GetToolCall(ctx, id)
	if err != nil {
		return fmt.Errorf("tool-call record %s not found: %w", id, err)
	}

	rec.Status = model.ToolCallFailed
	rec.Error = errMessage
	if err := l.store.UpdateToolCall(ctx, rec); err != nil {
		return fmt.Errorf("failed to update tool-call record %s: %w", id, err)
	}

	metrics.ToolCallsTotal.WithLabelValues(rec.Tool, string(model.ToolCallFailed)).Inc()
	return nil
}

// webSearchInput is the serialized input of a webSearch ledger entry.
type webSearchInput struct {
	Query string `json:"query"`
}

// SaveSearchResults records a completed web search as a single ledger
// entry: start a "webSearch" call with the query, then immediately
// complete it with the serialized results.
func (l *Ledger) SaveSearchResults(ctx context.Context, messageID, query string, results []model.SearchResult) (string, error) {
	input, err := json.Marshal(webSearchInput{Query: query})
	if err != nil {
		return "", fmt.Errorf("failed to serialize search query: %w", err)
	}
	output, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("failed to serialize search results: %w", err)
	}

	id, err := l.StartToolCall(ctx, messageID, "webSearch", string(input))
	if err != nil {
		return "", err
	}
	if err := l.CompleteToolCall(ctx, id, string(output)); err != nil {
		return "", err
	}
	return id, nil
}

// DeleteByMessage removes all records for one message id.
func (l *Ledger) DeleteByMessage(ctx context.Context, messageID string) error {
	return l.store.DeleteByMessage(ctx, messageID)
}

// DeleteByMessages removes records for a list of message ids. It tries
// one batched deletion first and falls back to per-id deletion on
// failure, swallowing individual errors.
func (l *Ledger) DeleteByMessages(ctx context.Context, messageIDs []string) {
	if len(messageIDs) == 0 {
		return
	}

	err := l.store.DeleteByMessageIDs(ctx, messageIDs)
	if err == nil {
		return
	}
	l.log.Warn("batched tool-call deletion failed, falling back to per-id",
		zap.Int("messages", len(messageIDs)), zap.Error(err))

	for _, id := range messageIDs {
		if err := l.store.DeleteByMessage(ctx, id); err != nil {
			l.log.Warn("failed to delete tool-call records",
				zap.String("message_id", id), zap.Error(err))
		}
	}
}

// ListByMessage returns the records for a message in sequence order.
func (l *Ledger) ListByMessage(ctx context.Context, messageID string) ([]model.ToolCallRecord, error) {
	return l.store.ListByMessage(ctx, messageID)
}

// GetToolCall returns a single record by id.
func (l *Ledger) GetToolCall(ctx context.Context, id string) (*model.ToolCallRecord, error) {
	return l.store.GetToolCall(ctx, id)
}
