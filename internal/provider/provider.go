// Package provider manages upstream AI providers: registry lookup and
// opening raw streaming calls. The wire dialect of each provider is
// normalized by its adapter; this package never interprets the bytes.
package provider

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/lumenchat/stream-platform/internal/adapter"
)

// ChatMessage is one turn of the prompt sent upstream.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the normalized request a handle turns into an upstream
// call.
type ChatRequest struct {
	Model    string
	Messages []ChatMessage
}

// Handle is a single configured upstream provider.
type Handle interface {
	// Name returns the provider's registry name.
	Name() string

	// AvailableModels returns the models currently offered by this
	// provider, in preference order.
	AvailableModels() []string

	// OpenStream opens the upstream streaming call and returns the raw
	// response body. The caller owns the closer.
	OpenStream(ctx context.Context, req ChatRequest) (io.ReadCloser, error)

	// Adapter returns the dialect adapter for this provider's wire
	// format.
	Adapter() adapter.Adapter
}

// Registry resolves provider handles by name.
type Registry struct {
	providers   map[string]Handle
	defaultName string
}

// NewRegistry creates a registry over the given handles. defaultName
// must refer to one of them.
func NewRegistry(handles []Handle, defaultName string) (*Registry, error) {
	providers := make(map[string]Handle, len(handles))
	for _, h := range handles {
		providers[h.Name()] = h
	}
	if _, ok := providers[defaultName]; !ok {
		return nil, fmt.Errorf("default provider %q is not configured", defaultName)
	}
	return &Registry{providers: providers, defaultName: defaultName}, nil
}

// Provider looks up a provider by name. An unknown name is a
// configuration error; there is no fallback here.
func (r *Registry) Provider(name string) (Handle, error) {
	h, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", name)
	}
	return h, nil
}

// Default returns the system default provider.
func (r *Registry) Default() Handle {
	return r.providers[r.defaultName]
}

// Names returns the configured provider names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
