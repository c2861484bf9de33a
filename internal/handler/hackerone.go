package handler

import (
	"log/slog"
	"net/http"

	"aireporter/internal/domain/models/reports"
	reportsSvc "aireporter/internal/domain/services/reports"
	"aireporter/internal/httputil"
	"aireporter/internal/service/generation"
	"aireporter/internal/service/hackerone"
)

// HackerOneHandler backs the structured six-section editor
type HackerOneHandler struct {
	store     reportsSvc.StoreService
	workspace *generation.Workspace
	logger    *slog.Logger
}

// NewHackerOneHandler creates a new HackerOne handler
func NewHackerOneHandler(store reportsSvc.StoreService, workspace *generation.Workspace, logger *slog.Logger) *HackerOneHandler {
	return &HackerOneHandler{
		store:     store,
		workspace: workspace,
		logger:    logger,
	}
}

// sectionsResponse is the editor view of a report's markdown
type sectionsResponse struct {
	ReportID  string             `json:"reportId"`
	Delimited bool               `json:"delimited"`
	Sections  hackerone.Sections `json:"sections"`
}

// GetSections parses the report's markdown into its sections
// GET /api/projects/{id}/reports/{reportId}/hackerone
func (h *HackerOneHandler) GetSections(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}
	reportID, ok := PathParam(w, r, "reportId", "Report ID")
	if !ok {
		return
	}

	report, err := h.store.FindReport(r.Context(), projectID, reportID)
	if err != nil {
		handleError(w, err)
		return
	}
	if report == nil {
		notFound(w, "report")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, sectionsResponse{
		ReportID:  report.ID,
		Delimited: hackerone.IsDelimited(report.Markdown),
		Sections:  hackerone.Parse(report.Markdown),
	})
}

// SaveSections serializes edited sections back into the report, switching
// it to HackerOne mode
// PUT /api/projects/{id}/reports/{reportId}/hackerone
func (h *HackerOneHandler) SaveSections(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}
	reportID, ok := PathParam(w, r, "reportId", "Report ID")
	if !ok {
		return
	}

	var sections hackerone.Sections
	if err := httputil.ParseJSON(w, r, &sections); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	markdown := hackerone.Serialize(sections)
	mode := reports.ModeHackerOne
	report, err := h.store.UpdateReport(r.Context(), projectID, reportID, &reportsSvc.UpdateReportRequest{
		Markdown: &markdown,
		Mode:     &mode,
	})
	if err != nil {
		handleError(w, err)
		return
	}
	h.workspace.ApplyIfSelected(report.ID, report.Markdown, report.Mode)

	httputil.RespondJSON(w, http.StatusOK, sectionsResponse{
		ReportID:  report.ID,
		Delimited: true,
		Sections:  hackerone.Parse(report.Markdown),
	})
}
