// Package resolver picks the (provider, model) pair for a request.
package resolver

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/lumenchat/stream-platform/internal/provider"
	"github.com/lumenchat/stream-platform/pkg/logger"
)

// Selection is a resolved provider/model pair. It is computed per
// request and never persisted.
type Selection struct {
	Provider provider.Handle
	Model    string
}

// Preferences looks up a user's stored default selection. A failed or
// empty lookup is not an error for resolution; the resolver falls
// through to the system default.
type Preferences interface {
	DefaultSelection(ctx context.Context, userID string) (providerName, modelName string, err error)
}

// Resolver resolves model selections with a fixed fallback chain:
// explicit request, then user preference, then system default.
type Resolver struct {
	registry *provider.Registry
	prefs    Preferences
	log      *logger.Logger
}

// New creates a resolver. prefs may be nil when user preferences are
// not available.
func New(registry *provider.Registry, prefs Preferences, log *logger.Logger) *Resolver {
	return &Resolver{registry: registry, prefs: prefs, log: log}
}

// Resolve applies the fallback chain. An explicitly named provider is
// authoritative: an unknown name is a configuration error and never
// falls back. A user preference that cannot be honored for any reason
// falls through entirely to the system default.
func (r *Resolver) Resolve(ctx context.Context, userID, explicitProvider, explicitModel string) (Selection, error) {
	if explicitProvider != "" {
		handle, err := r.registry.Provider(explicitProvider)
		if err != nil {
			return Selection{}, err
		}
		return r.selectModel(handle, explicitModel)
	}

	if userID != "" && r.prefs != nil {
		if sel, ok := r.fromPreference(ctx, userID); ok {
			return sel, nil
		}
	}

	return r.selectModel(r.registry.Default(), "")
}

// fromPreference tries the user's stored default. Any failure (lookup
// error, unknown provider, model no longer available) is logged and
// discarded so resolution continues with the system default.
func (r *Resolver) fromPreference(ctx context.Context, userID string) (Selection, bool) {
	providerName, modelName, err := r.prefs.DefaultSelection(ctx, userID)
	if err != nil {
		r.log.Debug("user preference lookup failed",
			zap.String("user_id", userID), zap.Error(err))
		return Selection{}, false
	}
	if providerName == "" {
		return Selection{}, false
	}

	handle, err := r.registry.Provider(providerName)
	if err != nil {
		r.log.Debug("preferred provider not configured",
			zap.String("user_id", userID), zap.String("provider", providerName))
		return Selection{}, false
	}

	if !slices.Contains(handle.AvailableModels(), modelName) {
		r.log.Debug("preferred model not available",
			zap.String("provider", providerName), zap.String("model", modelName))
		return Selection{}, false
	}

	return Selection{Provider: handle, Model: modelName}, true
}

// selectModel picks requested when available, otherwise the provider's
// first available model. An unknown requested model is not an error; an
// empty model list is fatal misconfiguration.
func (r *Resolver) selectModel(handle provider.Handle, requested string) (Selection, error) {
	models := handle.AvailableModels()

	if requested != "" && slices.Contains(models, requested) {
		return Selection{Provider: handle, Model: requested}, nil
	}

	if len(models) == 0 {
		return Selection{}, fmt.Errorf("no available models for provider %q", handle.Name())
	}

	return Selection{Provider: handle, Model: models[0]}, nil
}
