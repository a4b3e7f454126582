package model

// StreamEvent is the union of everything a client can observe on a
// conversation stream: provider tokens, side-channel search progress,
// tool-call notifications, and exactly one terminal End or Error.
type StreamEvent interface {
	streamEvent()
}

// Start marks the beginning of a streamed response. The orchestrator
// emits one synthetic Start before any provider bytes arrive; the
// bespoke-event dialect can additionally produce its own.
type Start struct {
	ConversationID string `json:"conversation_id,omitempty"`
}

func (Start) streamEvent() {}

// Chunk is a unit of assistant-generated text to append to the visible
// response. Final marks a whole-answer replay: the text is the complete
// response and supersedes previously accumulated chunks.
type Chunk struct {
	Content string `json:"content"`
	Final   bool   `json:"-"`
}

func (Chunk) streamEvent() {}

// Thinking is provider-exposed intermediate reasoning text, displayed
// separately from the final answer.
type Thinking struct {
	Content string `json:"content"`
}

func (Thinking) streamEvent() {}

// SearchStatus reports progress of an in-flight web search.
type SearchStatus struct {
	Status string `json:"status"`
	Query  string `json:"query"`
}

func (SearchStatus) streamEvent() {}

// SearchResults carries the hits of a completed web search.
type SearchResults struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
}

func (SearchResults) streamEvent() {}

// ToolCall announces a recorded tool invocation.
type ToolCall struct {
	ID       string `json:"id"`
	Tool     string `json:"tool"`
	Sequence int    `json:"sequence"`
}

func (ToolCall) streamEvent() {}

// End terminates a successful stream. It is always the last event.
type End struct {
	MessageID string `json:"message_id"`
}

func (End) streamEvent() {}

// Error terminates a failed stream with the classifier's user-facing
// text. It is always the last event.
type Error struct {
	Message string `json:"message"`
}

func (Error) streamEvent() {}
