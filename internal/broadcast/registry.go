// Package broadcast owns the per-conversation side channel: a registry
// mapping conversation ids to event channels so that collaborators
// without a reference to the in-flight stream can inject events into it.
package broadcast

import (
	"sync"

	"go.uber.org/zap"

	"github.com/lumenchat/stream-platform/internal/model"
	"github.com/lumenchat/stream-platform/pkg/logger"
	"github.com/lumenchat/stream-platform/pkg/metrics"
)

// channelBuffer bounds pending side events per conversation. Publishes
// against a full buffer are dropped rather than blocking the publisher.
const channelBuffer = 32

// Registry maps conversation ids to their broadcast channels. The
// orchestrator exclusively owns entries: one is inserted when a stream
// starts and removed exactly once at teardown. Registering over an
// existing entry replaces it and closes the displaced channel, so an
// orphaned stream's merge loop observes closure instead of leaking.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]chan model.StreamEvent
	log      *logger.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		channels: make(map[string]chan model.StreamEvent),
		log:      log,
	}
}

// Register creates the conversation's broadcast channel, replacing (and
// closing) any previous one for the same id.
func (r *Registry) Register(conversationID string) <-chan model.StreamEvent {
	ch := make(chan model.StreamEvent, channelBuffer)

	r.mu.Lock()
	if old, ok := r.channels[conversationID]; ok {
		close(old)
		r.log.Warn("replacing broadcast channel for conversation already streaming",
			zap.String("conversation_id", conversationID))
	}
	r.channels[conversationID] = ch
	size := len(r.channels)
	r.mu.Unlock()

	metrics.BroadcastChannels.Set(float64(size))
	return ch
}

// Unregister removes and closes the conversation's channel, but only if
// it is still the one the caller registered. A stream displaced by a
// replacement must not tear down its successor's channel.
func (r *Registry) Unregister(conversationID string, ch <-chan model.StreamEvent) {
	r.mu.Lock()
	current, ok := r.channels[conversationID]
	if ok && (<-chan model.StreamEvent)(current) == ch {
		delete(r.channels, conversationID)
		close(current)
	}
	size := len(r.channels)
	r.mu.Unlock()

	metrics.BroadcastChannels.Set(float64(size))
}

// Publish delivers an event to the conversation's channel if one is
// registered. Events for idle conversations are dropped, as are events
// that would block on a full buffer. Reports whether the event was
// delivered.
func (r *Registry) Publish(conversationID string, ev model.StreamEvent) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ch, ok := r.channels[conversationID]
	if !ok {
		return false
	}

	// Sending under the read lock is what makes this safe: channels are
	// only closed under the write lock, so a concurrent close cannot
	// race this send.
	select {
	case ch <- ev:
		return true
	default:
		r.log.Warn("dropping side-channel event, buffer full",
			zap.String("conversation_id", conversationID),
			zap.String("type", model.WireType(ev)))
		return false
	}
}

// Active reports whether a conversation currently has a channel.
func (r *Registry) Active(conversationID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.channels[conversationID]
	return ok
}
