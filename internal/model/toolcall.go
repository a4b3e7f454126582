package model

import (
	"time"
)

// ToolCallStatus is the lifecycle state of a tool-call record.
type ToolCallStatus string

const (
	ToolCallInProgress ToolCallStatus = "IN_PROGRESS"
	ToolCallSuccess    ToolCallStatus = "SUCCESS"
	ToolCallFailed     ToolCallStatus = "FAILED"
)

// ToolCallRecord records a single tool invocation against a message.
// Sequence is 1-based and monotonic per message id.
type ToolCallRecord struct {
	ID        string         `json:"id"`
	MessageID string         `json:"message_id"`
	Tool      string         `json:"tool"`
	Sequence  int            `json:"sequence"`
	Input     string         `json:"input"`
	Output    string         `json:"output,omitempty"`
	Status    ToolCallStatus `json:"status"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// SearchResult is a single web-search hit.
type SearchResult struct {
	Title   string  `json:"title"`
	Content string  `json:"content"`
	URL     string  `json:"url"`
	Score   float64 `json:"score"`
}
