package provider

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestHTTPHandle_OpenStream(t *testing.T) {
	var captured struct {
		path   string
		auth   string
		accept string
		body   []byte
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.auth = r.Header.Get("Authorization")
		captured.accept = r.Header.Get("Accept")
		captured.body, _ = io.ReadAll(r.Body)
		io.WriteString(w, "data: [DONE]\n")
	}))
	defer srv.Close()

	h := NewHTTPHandle(HTTPConfig{
		Name:    "fake",
		BaseURL: srv.URL,
		APIKey:  "sk-test",
		Models:  []string{"m1"},
	}, nil)

	body, err := h.OpenStream(context.Background(), ChatRequest{
		Model:    "m1",
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	defer body.Close()

	raw, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "data: [DONE]\n", string(raw))

	assert.Equal(t, "/v1/chat/completions", captured.path)
	assert.Equal(t, "Bearer sk-test", captured.auth)
	assert.Equal(t, "text/event-stream", captured.accept)

	payload := gjson.ParseBytes(captured.body)
	assert.Equal(t, "m1", payload.Get("model").String())
	assert.True(t, payload.Get("stream").Bool())
	assert.Equal(t, "hi", payload.Get("messages.0.content").String())
}

func TestHTTPHandle_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Invalid API key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	h := NewHTTPHandle(HTTPConfig{Name: "fake", BaseURL: srv.URL}, nil)

	_, err := h.OpenStream(context.Background(), ChatRequest{Model: "m1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "Invalid API key")
}

func TestRegistry(t *testing.T) {
	a := NewHTTPHandle(HTTPConfig{Name: "alpha", Models: []string{"m1"}}, nil)
	b := NewHTTPHandle(HTTPConfig{Name: "beta"}, nil)

	reg, err := NewRegistry([]Handle{a, b}, "alpha")
	require.NoError(t, err)

	got, err := reg.Provider("beta")
	require.NoError(t, err)
	assert.Equal(t, "beta", got.Name())

	_, err = reg.Provider("gamma")
	assert.Error(t, err)

	assert.Equal(t, "alpha", reg.Default().Name())
	assert.Equal(t, []string{"alpha", "beta"}, reg.Names())
}

func TestRegistry_UnknownDefault(t *testing.T) {
	_, err := NewRegistry([]Handle{NewHTTPHandle(HTTPConfig{Name: "alpha"}, nil)}, "missing")
	assert.Error(t, err)
}
