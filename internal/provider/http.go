package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/lumenchat/stream-platform/internal/adapter"
)

// HTTPHandle is a provider reached over a streaming HTTP chat endpoint.
type HTTPHandle struct {
	name    string
	baseURL string
	path    string
	apiKey  string
	models  []string
	dialect adapter.Adapter
	client  *http.Client
}

// HTTPConfig configures one upstream provider endpoint.
type HTTPConfig struct {
	Name    string
	BaseURL string
	// Path is the chat endpoint path, default "/v1/chat/completions".
	Path   string
	APIKey string
	Models []string
}

// NewHTTPHandle creates a provider handle for a streaming chat endpoint
// speaking the given dialect.
func NewHTTPHandle(cfg HTTPConfig, dialect adapter.Adapter) *HTTPHandle {
	path := cfg.Path
	if path == "" {
		path = "/v1/chat/completions"
	}
	return &HTTPHandle{
		name:    cfg.Name,
		baseURL: cfg.BaseURL,
		path:    path,
		apiKey:  cfg.APIKey,
		models:  cfg.Models,
		dialect: dialect,
		// No overall client timeout: streams are long-lived and bounded
		// by the per-request context instead.
		client: &http.Client{Timeout: 0},
	}
}

// Name returns the provider's registry name.
func (h *HTTPHandle) Name() string { return h.name }

// AvailableModels returns the configured model list.
func (h *HTTPHandle) AvailableModels() []string { return h.models }

// Adapter returns the dialect adapter for this provider.
func (h *HTTPHandle) Adapter() adapter.Adapter { return h.dialect }

type chatPayload struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// OpenStream posts the chat request and returns the raw response body
// for the adapter to consume. A non-2xx status is returned as an error;
// nothing has been streamed at that point.
func (h *HTTPHandle) OpenStream(ctx context.Context, req ChatRequest) (io.ReadCloser, error) {
	body, err := json.Marshal(chatPayload{
		Model:    req.Model,
		Messages: req.Messages,
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+h.path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build upstream request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if h.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("upstream call to %s failed: %w", h.name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		resp.Body.Close()
		return nil, fmt.Errorf("upstream %s returned status %d: %s", h.name, resp.StatusCode, bytes.TrimSpace(detail))
	}

	return resp.Body, nil
}

var _ Handle = (*HTTPHandle)(nil)
