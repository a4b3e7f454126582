package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DraftPlaceholder is the content an assistant message carries between
// creation and finalization. The draft exists so that tool calls emitted
// mid-stream can reference a real message id.
const DraftPlaceholder = "..."

// Message represents a conversation message. An assistant message is
// created as a draft before any provider bytes are known and its content
// is overwritten once the stream finishes.
type Message struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`

	Role    Role   `json:"role"`
	Content string `json:"content"`

	// Thinking holds provider-exposed intermediate reasoning text.
	Thinking string `json:"thinking,omitempty"`

	// SearchResults holds the serialized web-search results used for
	// this message, if any.
	SearchResults string `json:"search_results,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// SendMessageRequest is the request to send a message and stream the reply.
type SendMessageRequest struct {
	Content   string `json:"content"`
	Provider  string `json:"provider,omitempty"`
	Model     string `json:"model,omitempty"`
	WebSearch bool   `json:"web_search,omitempty"`
}

// ListMessagesResponse is the response for listing messages.
type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
	Total    int       `json:"total"`
}
