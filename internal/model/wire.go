package model

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Wire event type names as seen by clients and by the NATS bridge.
const (
	WireStart         = "start"
	WireChunk         = "chunk"
	WireThinking      = "thinking"
	WireSearch        = "search"
	WireSearchResults = "search_results"
	WireToolCall      = "tool_call"
	WireEnd           = "end"
	WireError         = "error"
)

// WireType returns the wire type name for an event.
func WireType(ev StreamEvent) string {
	switch ev.(type) {
	case Start:
		return WireStart
	case Chunk:
		return WireChunk
	case Thinking:
		return WireThinking
	case SearchStatus:
		return WireSearch
	case SearchResults:
		return WireSearchResults
	case ToolCall:
		return WireToolCall
	case End:
		return WireEnd
	case Error:
		return WireError
	default:
		return ""
	}
}

// MarshalWire serializes an event payload for transport. Chunk and
// thinking payloads are JSON objects so embedded newlines survive SSE
// framing.
func MarshalWire(ev StreamEvent) ([]byte, error) {
	return json.Marshal(ev)
}

// UnmarshalWire decodes a {type, data} pair back into a StreamEvent.
// Used by the NATS bridge when external collaborators publish events
// into an in-flight conversation.
func UnmarshalWire(wireType string, data []byte) (StreamEvent, error) {
	switch wireType {
	case WireStart:
		var ev Start
		return ev, json.Unmarshal(data, &ev)
	case WireChunk:
		var ev Chunk
		return ev, json.Unmarshal(data, &ev)
	case WireThinking:
		var ev Thinking
		return ev, json.Unmarshal(data, &ev)
	case WireSearch:
		var ev SearchStatus
		return ev, json.Unmarshal(data, &ev)
	case WireSearchResults:
		var ev SearchResults
		return ev, json.Unmarshal(data, &ev)
	case WireToolCall:
		var ev ToolCall
		return ev, json.Unmarshal(data, &ev)
	case WireEnd:
		var ev End
		return ev, json.Unmarshal(data, &ev)
	case WireError:
		var ev Error
		return ev, json.Unmarshal(data, &ev)
	default:
		return nil, fmt.Errorf("unknown wire event type %q", wireType)
	}
}
