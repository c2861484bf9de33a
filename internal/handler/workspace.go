package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"aireporter/internal/domain/models/reports"
	reportsSvc "aireporter/internal/domain/services/reports"
	"aireporter/internal/httputil"
	"aireporter/internal/service/generation"
)

// WorkspaceHandler exposes the selected project and report and their preview
type WorkspaceHandler struct {
	workspace *generation.Workspace
	store     reportsSvc.StoreService
	logger    *slog.Logger
}

// NewWorkspaceHandler creates a new workspace handler
func NewWorkspaceHandler(workspace *generation.Workspace, store reportsSvc.StoreService, logger *slog.Logger) *WorkspaceHandler {
	return &WorkspaceHandler{
		workspace: workspace,
		store:     store,
		logger:    logger,
	}
}

// GetWorkspace returns the current selection and preview
// GET /api/workspace
func (h *WorkspaceHandler) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, h.workspace.State())
}

type selectBody struct {
	ProjectID string `json:"projectId"`
	ReportID  string `json:"reportId"`
}

// SelectReport changes the selection. An empty projectId clears it; an empty
// reportId selects the project alone.
// PUT /api/workspace
func (h *WorkspaceHandler) SelectReport(w http.ResponseWriter, r *http.Request) {
	var body selectBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	projectID := strings.TrimSpace(body.ProjectID)
	reportID := strings.TrimSpace(body.ReportID)

	if projectID == "" {
		h.workspace.Clear()
		httputil.RespondJSON(w, http.StatusOK, h.workspace.State())
		return
	}

	project, err := h.store.GetProject(r.Context(), projectID)
	if err != nil {
		handleError(w, err)
		return
	}
	if project == nil {
		notFound(w, "project")
		return
	}

	var report *reports.Report
	if reportID != "" {
		report, err = h.store.FindReport(r.Context(), projectID, reportID)
		if err != nil {
			handleError(w, err)
			return
		}
		if report == nil {
			notFound(w, "report")
			return
		}
	}

	httputil.RespondJSON(w, http.StatusOK, h.workspace.Select(projectID, report))
}
