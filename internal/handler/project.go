package handler

import (
	"log/slog"
	"net/http"

	reportsSvc "aireporter/internal/domain/services/reports"
	"aireporter/internal/httputil"
	"aireporter/internal/service/generation"
)

// ProjectHandler handles project HTTP requests
type ProjectHandler struct {
	store     reportsSvc.StoreService
	workspace *generation.Workspace
	logger    *slog.Logger
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(store reportsSvc.StoreService, workspace *generation.Workspace, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{
		store:     store,
		workspace: workspace,
		logger:    logger,
	}
}

// ListProjects returns every project with its tree
// GET /api/projects
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.store.ListProjects(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, projects)
}

// CreateProject creates a new project
// POST /api/projects
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req reportsSvc.CreateProjectRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	project, err := h.store.CreateProject(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, project)
}

// GetProject retrieves a project by ID
// GET /api/projects/{id}
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
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

	httputil.RespondJSON(w, http.StatusOK, project)
}

// updateProjectBody distinguishes an omitted description from a cleared one
type updateProjectBody struct {
	Name        *string                 `json:"name"`
	Description httputil.OptionalString `json:"description"`
}

// UpdateProject renames a project or changes its description
// PATCH /api/projects/{id}
func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}

	var body updateProjectBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	project, err := h.store.UpdateProject(r.Context(), projectID, &reportsSvc.UpdateProjectRequest{
		Name: body.Name,
		Description: reportsSvc.OptionalText{
			Present: body.Description.Present,
			Value:   body.Description.Value,
		},
	})
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, project)
}

// DeleteProject removes a project, its tree and its images
// DELETE /api/projects/{id}
func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}

	if err := h.store.DeleteProject(r.Context(), projectID); err != nil {
		handleError(w, err)
		return
	}
	h.workspace.Forget(projectID)

	w.WriteHeader(http.StatusNoContent)
}

// ListReports flattens a project into its reports, preorder
// GET /api/projects/{id}/reports
func (h *ProjectHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
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

	httputil.RespondJSON(w, http.StatusOK, h.store.GetAllReports(project))
}
