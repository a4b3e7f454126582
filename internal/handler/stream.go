package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumenchat/stream-platform/internal/middleware"
	"github.com/lumenchat/stream-platform/internal/model"
	"github.com/lumenchat/stream-platform/internal/orchestrator"
	"github.com/lumenchat/stream-platform/internal/store"
	"github.com/lumenchat/stream-platform/pkg/logger"
	"github.com/lumenchat/stream-platform/pkg/metrics"
)

// heartbeatInterval paces SSE comment frames on long provider pauses.
const heartbeatInterval = 15 * time.Second

// StreamHandler handles the SSE chat streaming endpoint.
type StreamHandler struct {
	orchestrator  *orchestrator.Orchestrator
	conversations store.Conversations
	messages      store.Messages
	logger        *logger.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(
	orch *orchestrator.Orchestrator,
	conversations store.Conversations,
	messages store.Messages,
	log *logger.Logger,
) *StreamHandler {
	return &StreamHandler{
		orchestrator:  orch,
		conversations: conversations,
		messages:      messages,
		logger:        log,
	}
}

// Stream handles POST /api/v1/conversations/{id}/stream: it persists the
// user turn and streams the assistant response as server-sent events.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.conversations.GetConversation(ctx, conversationID)
	if err != nil || conv.UserID != userID {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	userMsg := &model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		Role:           model.RoleUser,
		Content:        req.Content,
		CreatedAt:      time.Now(),
	}
	if err := h.messages.CreateMessage(ctx, userMsg); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save message")
		return
	}
	if err := h.conversations.MaybeSetTitle(ctx, conversationID, req.Content); err != nil {
		h.logger.Warn("failed to apply title heuristic",
			zap.String("conversation_id", conversationID), zap.Error(err))
	}

	sse, ok := newSSEWriter(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	metrics.SSEConnectionsActive.Inc()
	defer metrics.SSEConnectionsActive.Dec()

	// Heartbeat comments keep intermediaries from timing out the
	// connection while the provider is thinking.
	heartbeatDone := make(chan struct{})
	defer close(heartbeatDone)
	go func() {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-heartbeatDone:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				sse.Comment("ping")
			}
		}
	}()

	err = h.orchestrator.Stream(ctx, orchestrator.Request{
		ConversationID: conversationID,
		UserID:         userID,
		Provider:       req.Provider,
		Model:          req.Model,
		Content:        req.Content,
		WebSearch:      req.WebSearch,
	}, sse.Event)
	if err != nil {
		h.logger.Warn("stream ended with error",
			zap.String("conversation_id", conversationID), zap.Error(err))
	}
}
