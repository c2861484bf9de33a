package handler

import (
	"log/slog"
	"net/http"

	"aireporter/internal/capabilities"
	reportsSvc "aireporter/internal/domain/services/reports"
	"aireporter/internal/httputil"
)

// KeyResolver reports which API key a provider would use
type KeyResolver interface {
	ResolveKey(providerName, settingsKey string) string
}

// ModelsHandler handles HTTP requests for model capabilities
type ModelsHandler struct {
	registry *capabilities.Registry
	keys     KeyResolver
	settings reportsSvc.SettingsService
	logger   *slog.Logger
}

// NewModelsHandler creates a new models handler
func NewModelsHandler(registry *capabilities.Registry, keys KeyResolver, settings reportsSvc.SettingsService, logger *slog.Logger) *ModelsHandler {
	return &ModelsHandler{
		registry: registry,
		keys:     keys,
		settings: settings,
		logger:   logger,
	}
}

// ProviderResponse represents a provider with its models
type ProviderResponse struct {
	capabilities.ProviderCapabilities
	// Available is false when the provider needs a key and none is configured
	Available bool `json:"available"`
}

// GetCapabilities lists every known provider and model
// GET /api/models
func (h *ModelsHandler) GetCapabilities(w http.ResponseWriter, r *http.Request) {
	var settingsKey string
	if settings, err := h.settings.Get(r.Context()); err == nil {
		settingsKey = settings.APIKey
	} else {
		h.logger.Warn("failed to read settings for model listing", "error", err)
	}

	providers := []ProviderResponse{}
	for _, p := range h.registry.ListProviders() {
		providers = append(providers, ProviderResponse{
			ProviderCapabilities: p,
			Available:            !p.RequiresAPIKey || h.keys.ResolveKey(p.Provider, settingsKey) != "",
		})
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"providers": providers,
	})
}
