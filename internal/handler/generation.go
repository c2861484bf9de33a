package handler

import (
	"log/slog"
	"net/http"

	"aireporter/internal/domain/models/reports"
	"aireporter/internal/httputil"
	"aireporter/internal/service/generation"
)

// GenerationHandler starts report generations
type GenerationHandler struct {
	orchestrator *generation.Orchestrator
	logger       *slog.Logger
}

// NewGenerationHandler creates a new generation handler
func NewGenerationHandler(orchestrator *generation.Orchestrator, logger *slog.Logger) *GenerationHandler {
	return &GenerationHandler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// generateBody overrides the stored findings and mode. Async returns as soon
// as the generation is claimed; the outcome arrives over /api/events.
type generateBody struct {
	Findings  *string           `json:"findings"`
	Mode      reports.Mode      `json:"mode"`
	Redaction reports.Redaction `json:"redaction"`
	Language  string            `json:"language"`
	Async     bool              `json:"async"`
}

// Generate runs the model for one report
// POST /api/projects/{id}/reports/{reportId}/generate
func (h *GenerationHandler) Generate(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}
	reportID, ok := PathParam(w, r, "reportId", "Report ID")
	if !ok {
		return
	}

	var body generateBody
	if err := httputil.ParseOptionalJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req := &generation.Request{
		ProjectID: projectID,
		ReportID:  reportID,
		Findings:  body.Findings,
		Mode:      body.Mode,
		Redaction: body.Redaction,
		Language:  body.Language,
	}

	if body.Async {
		if err := h.orchestrator.Start(r.Context(), req); err != nil {
			handleError(w, err)
			return
		}
		httputil.RespondJSON(w, http.StatusAccepted, map[string]string{
			"status":   "started",
			"reportId": reportID,
		})
		return
	}

	outcome, err := h.orchestrator.Generate(r.Context(), req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, outcome)
}

// ListActive returns the ids of reports currently generating
// GET /api/generation/active
func (h *GenerationHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string][]string{
		"reportIds": h.orchestrator.Active(),
	})
}
