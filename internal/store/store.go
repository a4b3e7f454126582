// Package store is the persistence collaborator: plain keyed-record CRUD
// for conversations, messages, and user preferences. The core consumes
// these interfaces; the in-memory implementations stand in for a
// database.
package store

import (
	"context"

	"github.com/lumenchat/stream-platform/internal/model"
)

// Messages is the message persistence surface the orchestrator needs.
type Messages interface {
	// CreateDraftMessage inserts an assistant message with placeholder
	// content before any provider bytes are known and returns its id.
	CreateDraftMessage(ctx context.Context, conversationID string, role model.Role, placeholder string) (string, error)

	// CreateMessage inserts a completed message (user turns).
	CreateMessage(ctx context.Context, msg *model.Message) error

	// UpdateMessageContent overwrites a message's content (and thinking
	// text) — the finalize step of a draft.
	UpdateMessageContent(ctx context.Context, id, content, thinking string) error

	// UpdateMessageSearchResults attaches a serialized search-results
	// blob to a message.
	UpdateMessageSearchResults(ctx context.Context, id, blob string) error

	// DeleteMessage removes a message row.
	DeleteMessage(ctx context.Context, id string) error

	// GetMessage returns one message.
	GetMessage(ctx context.Context, id string) (*model.Message, error)

	// ListMessages returns a conversation's messages in creation order.
	ListMessages(ctx context.Context, conversationID string) ([]model.Message, error)
}

// Conversations is the conversation persistence surface.
type Conversations interface {
	CreateConversation(ctx context.Context, userID, title string) (*model.Conversation, error)
	GetConversation(ctx context.Context, id string) (*model.Conversation, error)
	UpdateConversationTitle(ctx context.Context, id, title string) error

	// MaybeSetTitle applies the external title heuristic: derive a title
	// from the first user turn while the title is still the placeholder.
	MaybeSetTitle(ctx context.Context, id, content string) error
	ListConversations(ctx context.Context, userID string, limit, offset int) ([]model.Conversation, int, error)
	DeleteConversation(ctx context.Context, id string) error
}

// Preferences stores a user's default (provider, model) pair.
type Preferences interface {
	DefaultSelection(ctx context.Context, userID string) (providerName, modelName string, err error)
	SetDefaultSelection(ctx context.Context, userID, providerName, modelName string) error
}
