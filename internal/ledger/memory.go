package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/lumenchat/stream-platform/internal/model"
)

// MemoryStore is an in-memory ledger store. A single mutex serializes
// all operations, which also serializes sequence assignment per message.
type MemoryStore struct {
	mu        sync.RWMutex
	records   map[string]*model.ToolCallRecord
	byMessage map[string][]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:   make(map[string]*model.ToolCallRecord),
		byMessage: make(map[string][]string),
	}
}

// InsertToolCall stores a new record.
func (s *MemoryStore) InsertToolCall(ctx context.Context, rec *model.ToolCallRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ID]; exists {
		return fmt.Errorf("tool-call record %s already exists", rec.ID)
	}

	cp := *rec
	s.records[rec.ID] = &cp
	s.byMessage[rec.MessageID] = append(s.byMessage[rec.MessageID], rec.ID)
	return nil
}

// GetToolCall returns a copy of the record.
func (s *MemoryStore) GetToolCall(ctx context.Context, id string) (*model.ToolCallRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("tool-call record %s not found", id)
	}
	cp := *rec
	return &cp, nil
}

// UpdateToolCall overwrites an existing record.
func (s *MemoryStore) UpdateToolCall(ctx context.Context, rec *model.ToolCallRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.ID]; !ok {
		return fmt.Errorf("tool-call record %s not found", rec.ID)
	}
	cp := *rec
	s.records[rec.ID] = &cp
	return nil
}

// MaxSequence returns the highest sequence used for a message, zero when
// none exist.
func (s *MemoryStore) MaxSequence(ctx context.Context, messageID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	max := 0
	for _, id := range s.byMessage[messageID] {
		if rec := s.records[id]; rec != nil && rec.Sequence > max {
			max = rec.Sequence
		}
	}
	return max, nil
}

// DeleteByMessage removes all records for one message.
func (s *MemoryStore) DeleteByMessage(ctx context.Context, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.byMessage[messageID] {
		delete(s.records, id)
	}
	delete(s.byMessage, messageID)
	return nil
}

// DeleteByMessageIDs removes records for several messages in one pass.
func (s *MemoryStore) DeleteByMessageIDs(ctx context.Context, messageIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, messageID := range messageIDs {
		for _, id := range s.byMessage[messageID] {
			delete(s.records, id)
		}
		delete(s.byMessage, messageID)
	}
	return nil
}

// ListByMessage returns copies of the message's records in sequence
// order.
func (s *MemoryStore) ListByMessage(ctx context.Context, messageID string) ([]model.ToolCallRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byMessage[messageID]
	records := make([]model.ToolCallRecord, 0, len(ids))
	for _, id := range ids {
		if rec := s.records[id]; rec != nil {
			records = append(records, *rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Sequence < records[j].Sequence })
	return records, nil
}

var _ Store = (*MemoryStore)(nil)
