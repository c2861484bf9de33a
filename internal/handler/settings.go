package handler

import (
	"log/slog"
	"net/http"

	"aireporter/internal/domain/models/reports"
	reportsSvc "aireporter/internal/domain/services/reports"
	"aireporter/internal/httputil"
)

// SettingsHandler reads and saves the global settings
type SettingsHandler struct {
	settings reportsSvc.SettingsService
	logger   *slog.Logger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settings reportsSvc.SettingsService, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{
		settings: settings,
		logger:   logger,
	}
}

// GetSettings returns the stored settings, created with defaults on first read
// GET /api/settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Get(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, maskSettings(settings))
}

// SaveSettings validates and overwrites the settings. An absent apiKey keeps
// the stored key; null or a blank string clears it.
// PUT /api/settings
func (h *SettingsHandler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	var req saveSettingsRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	next := req.Settings
	switch {
	case !req.APIKey.Present:
		current, err := h.settings.Get(r.Context())
		if err != nil {
			handleError(w, err)
			return
		}
		next.APIKey = current.APIKey
	case req.APIKey.Value != nil:
		next.APIKey = *req.APIKey.Value
	default:
		next.APIKey = ""
	}

	settings, err := h.settings.Save(r.Context(), &next)
	if err != nil {
		handleError(w, err)
		return
	}

	h.logger.Info("settings saved", "model", settings.Model, "theme", settings.Theme, "has_api_key", settings.APIKey != "")
	httputil.RespondJSON(w, http.StatusOK, maskSettings(settings))
}

type saveSettingsRequest struct {
	reports.Settings
	APIKey httputil.OptionalString `json:"apiKey"`
}

// settingsResponse never carries the key itself, only whether one is stored.
type settingsResponse struct {
	reports.Settings
	HasAPIKey bool `json:"hasApiKey"`
}

func maskSettings(s *reports.Settings) settingsResponse {
	masked := *s
	masked.APIKey = ""
	return settingsResponse{Settings: masked, HasAPIKey: s.APIKey != ""}
}
