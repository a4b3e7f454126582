package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lumenchat/stream-platform/internal/model"
)

// TitlePlaceholder is the title a conversation carries until the first
// user turn supplies one.
const TitlePlaceholder = "新对话"

// titleMaxRunes bounds the derived conversation title.
const titleMaxRunes = 30

// Memory is an in-memory store backing all three persistence surfaces.
type Memory struct {
	mu            sync.RWMutex
	conversations map[string]*model.Conversation
	messages      map[string]*model.Message
	byConv        map[string][]string
	prefs         map[string][2]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		conversations: make(map[string]*model.Conversation),
		messages:      make(map[string]*model.Message),
		byConv:        make(map[string][]string),
		prefs:         make(map[string][2]string),
	}
}

// CreateConversation inserts a conversation; an empty title gets the
// placeholder.
func (s *Memory) CreateConversation(ctx context.Context, userID, title string) (*model.Conversation, error) {
	if title == "" {
		title = TitlePlaceholder
	}

	now := time.Now()
	conv := &model.Conversation{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.conversations[conv.ID] = conv
	s.mu.Unlock()

	cp := *conv
	return &cp, nil
}

// GetConversation returns a copy of the conversation.
func (s *Memory) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, fmt.Errorf("conversation %s not found", id)
	}
	cp := *conv
	return &cp, nil
}

// UpdateConversationTitle overwrites the title.
func (s *Memory) UpdateConversationTitle(ctx context.Context, id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return fmt.Errorf("conversation %s not found", id)
	}
	conv.Title = title
	conv.UpdatedAt = time.Now()
	return nil
}

// MaybeSetTitle applies the title heuristic: the first time the title is
// still the placeholder, derive one from the first user turn by simple
// truncation. Never mutates an already-set title.
func (s *Memory) MaybeSetTitle(ctx context.Context, id, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return fmt.Errorf("conversation %s not found", id)
	}
	if conv.Title != TitlePlaceholder {
		return nil
	}

	runes := []rune(content)
	if len(runes) > titleMaxRunes {
		runes = runes[:titleMaxRunes]
	}
	title := string(runes)
	if title == "" {
		return nil
	}

	conv.Title = title
	conv.UpdatedAt = time.Now()
	return nil
}

// ListConversations returns a user's conversations, newest first.
func (s *Memory) ListConversations(ctx context.Context, userID string, limit, offset int) ([]model.Conversation, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var convs []model.Conversation
	for _, conv := range s.conversations {
		if conv.UserID == userID {
			convs = append(convs, *conv)
		}
	}
	sort.Slice(convs, func(i, j int) bool { return convs[i].CreatedAt.After(convs[j].CreatedAt) })

	total := len(convs)
	start := offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return convs[start:end], total, nil
}

// DeleteConversation removes the conversation and its messages.
func (s *Memory) DeleteConversation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return fmt.Errorf("conversation %s not found", id)
	}
	for _, msgID := range s.byConv[id] {
		delete(s.messages, msgID)
	}
	delete(s.byConv, id)
	delete(s.conversations, id)
	return nil
}

// CreateDraftMessage inserts an assistant draft and returns its id.
func (s *Memory) CreateDraftMessage(ctx context.Context, conversationID string, role model.Role, placeholder string) (string, error) {
	msg := &model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		Role:           role,
		Content:        placeholder,
		CreatedAt:      time.Now(),
	}
	if err := s.CreateMessage(ctx, msg); err != nil {
		return "", err
	}
	return msg.ID, nil
}

// CreateMessage inserts a message.
func (s *Memory) CreateMessage(ctx context.Context, msg *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[msg.ConversationID]; !ok {
		return fmt.Errorf("conversation %s not found", msg.ConversationID)
	}

	cp := *msg
	s.messages[msg.ID] = &cp
	s.byConv[msg.ConversationID] = append(s.byConv[msg.ConversationID], msg.ID)
	s.conversations[msg.ConversationID].UpdatedAt = time.Now()
	return nil
}

// UpdateMessageContent finalizes a message's content and thinking text.
func (s *Memory) UpdateMessageContent(ctx context.Context, id, content, thinking string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[id]
	if !ok {
		return fmt.Errorf("message %s not found", id)
	}
	msg.Content = content
	if thinking != "" {
		msg.Thinking = thinking
	}
	return nil
}

// UpdateMessageSearchResults attaches the serialized results blob.
func (s *Memory) UpdateMessageSearchResults(ctx context.Context, id, blob string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[id]
	if !ok {
		return fmt.Errorf("message %s not found", id)
	}
	msg.SearchResults = blob
	return nil
}

// DeleteMessage removes a message.
func (s *Memory) DeleteMessage(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[id]
	if !ok {
		return fmt.Errorf("message %s not found", id)
	}

	ids := s.byConv[msg.ConversationID]
	for i, msgID := range ids {
		if msgID == id {
			s.byConv[msg.ConversationID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	delete(s.messages, id)
	return nil
}

// GetMessage returns a copy of one message.
func (s *Memory) GetMessage(ctx context.Context, id string) (*model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[id]
	if !ok {
		return nil, fmt.Errorf("message %s not found", id)
	}
	cp := *msg
	return &cp, nil
}

// ListMessages returns a conversation's messages in creation order.
func (s *Memory) ListMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byConv[conversationID]
	msgs := make([]model.Message, 0, len(ids))
	for _, id := range ids {
		if msg := s.messages[id]; msg != nil {
			msgs = append(msgs, *msg)
		}
	}
	return msgs, nil
}

// DefaultSelection returns the user's stored (provider, model) pair.
func (s *Memory) DefaultSelection(ctx context.Context, userID string) (string, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pair, ok := s.prefs[userID]
	if !ok {
		return "", "", nil
	}
	return pair[0], pair[1], nil
}

// SetDefaultSelection stores the user's default pair.
func (s *Memory) SetDefaultSelection(ctx context.Context, userID, providerName, modelName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[userID] = [2]string{providerName, modelName}
	return nil
}

var (
	_ Messages      = (*Memory)(nil)
	_ Conversations = (*Memory)(nil)
	_ Preferences   = (*Memory)(nil)
)
