package handler

import (
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/lumenchat/stream-platform/internal/middleware"
	"github.com/lumenchat/stream-platform/internal/provider"
	"github.com/lumenchat/stream-platform/internal/store"
	"github.com/lumenchat/stream-platform/pkg/logger"
)

// PreferenceHandler handles the user's default model selection.
type PreferenceHandler struct {
	prefs    store.Preferences
	registry *provider.Registry
	logger   *logger.Logger
}

// NewPreferenceHandler creates a new preference handler.
func NewPreferenceHandler(prefs store.Preferences, registry *provider.Registry, log *logger.Logger) *PreferenceHandler {
	return &PreferenceHandler{prefs: prefs, registry: registry, logger: log}
}

type modelPreference struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Get handles GET /api/v1/preferences/model
func (h *PreferenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	providerName, modelName, err := h.prefs.DefaultSelection(ctx, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load preference")
		return
	}

	writeJSON(w, http.StatusOK, modelPreference{Provider: providerName, Model: modelName})
}

// Set handles PUT /api/v1/preferences/model. The stored pair is only a
// hint; resolution falls back to the system default if it goes stale.
func (h *PreferenceHandler) Set(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req modelPreference
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := h.registry.Provider(req.Provider); err != nil {
		writeError(w, http.StatusBadRequest, "unknown provider")
		return
	}

	if err := h.prefs.SetDefaultSelection(ctx, userID, req.Provider, req.Model); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save preference")
		return
	}

	writeJSON(w, http.StatusOK, req)
}

// Providers handles GET /api/v1/providers, listing configured providers
// and their available models.
func (h *PreferenceHandler) Providers(w http.ResponseWriter, r *http.Request) {
	type providerInfo struct {
		Name   string   `json:"name"`
		Models []string `json:"models"`
	}

	var out []providerInfo
	for _, name := range h.registry.Names() {
		handle, err := h.registry.Provider(name)
		if err != nil {
			continue
		}
		out = append(out, providerInfo{Name: name, Models: handle.AvailableModels()})
	}

	writeJSON(w, http.StatusOK, out)
}
