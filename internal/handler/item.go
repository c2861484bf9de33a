package handler

import (
	"io"
	"log/slog"
	"mime"
	"net/http"

	"aireporter/internal/domain/models/reports"
	reportsSvc "aireporter/internal/domain/services/reports"
	"aireporter/internal/httputil"
	"aireporter/internal/service/generation"
)

// ItemHandler handles folder and report HTTP requests within a project
type ItemHandler struct {
	store     reportsSvc.StoreService
	workspace *generation.Workspace
	logger    *slog.Logger
}

// NewItemHandler creates a new item handler
func NewItemHandler(store reportsSvc.StoreService, workspace *generation.Workspace, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{
		store:     store,
		workspace: workspace,
		logger:    logger,
	}
}

// AddReport creates a report under a folder or at the project root
// POST /api/projects/{id}/reports
func (h *ItemHandler) AddReport(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}

	var req reportsSvc.AddReportRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.ProjectID = projectID

	report, err := h.store.AddReport(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, reports.ReportItem(report))
}

// CreateFolder creates a folder under a folder or at the project root
// POST /api/projects/{id}/folders
func (h *ItemHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}

	var req reportsSvc.CreateFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.ProjectID = projectID

	folder, err := h.store.CreateFolder(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, reports.FolderItem(folder))
}

// GetItem returns a folder (with its subtree) or a report
// GET /api/projects/{id}/items/{itemId}
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}
	itemID, ok := PathParam(w, r, "itemId", "Item ID")
	if !ok {
		return
	}

	item, err := h.store.Find(r.Context(), projectID, itemID)
	if err != nil {
		handleError(w, err)
		return
	}
	if item == nil {
		notFound(w, "item")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, item)
}

// DeleteItem removes an item and everything beneath it
// DELETE /api/projects/{id}/items/{itemId}
func (h *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}
	itemID, ok := PathParam(w, r, "itemId", "Item ID")
	if !ok {
		return
	}

	removed := []string{itemID}
	if item, err := h.store.Find(r.Context(), projectID, itemID); err == nil && item != nil {
		removed = subtreeIDs(*item)
	}

	if err := h.store.DeleteItem(r.Context(), projectID, itemID); err != nil {
		handleError(w, err)
		return
	}
	h.workspace.Forget(removed...)

	w.WriteHeader(http.StatusNoContent)
}

// subtreeIDs lists item and every descendant id
func subtreeIDs(item reports.Item) []string {
	ids := []string{item.ID()}
	if item.Folder != nil {
		for _, child := range item.Folder.Children {
			ids = append(ids, subtreeIDs(child)...)
		}
	}
	return ids
}

// moveItemBody carries the target folder; null or omitted means the project root
type moveItemBody struct {
	ParentFolderID *string `json:"parentFolderId"`
}

// MoveItem reattaches an item at the front of another folder or the root
// POST /api/projects/{id}/items/{itemId}/move
func (h *ItemHandler) MoveItem(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}
	itemID, ok := PathParam(w, r, "itemId", "Item ID")
	if !ok {
		return
	}

	var body moveItemBody
	if err := httputil.ParseOptionalJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, err := h.store.MoveItem(r.Context(), projectID, itemID, body.ParentFolderID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, item)
}

// UpdateReport merges the provided report fields
// PATCH /api/projects/{id}/reports/{reportId}
func (h *ItemHandler) UpdateReport(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}
	reportID, ok := PathParam(w, r, "reportId", "Report ID")
	if !ok {
		return
	}

	var req reportsSvc.UpdateReportRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	report, err := h.store.UpdateReport(r.Context(), projectID, reportID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, reports.ReportItem(report))
}

// UpdateFolder renames a folder
// PATCH /api/projects/{id}/folders/{folderId}
func (h *ItemHandler) UpdateFolder(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}
	folderID, ok := PathParam(w, r, "folderId", "Folder ID")
	if !ok {
		return
	}

	var req reportsSvc.UpdateFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	folder, err := h.store.UpdateFolder(r.Context(), projectID, folderID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, reports.FolderItem(folder))
}

// importBody is the JSON form of a findings import
type importBody struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// ImportFindings converts an uploaded .html, .md or .txt file and appends it
// to the report's findings. Accepts a multipart "file" field or a JSON body.
// POST /api/projects/{id}/reports/{reportId}/import
func (h *ItemHandler) ImportFindings(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}
	reportID, ok := PathParam(w, r, "reportId", "Report ID")
	if !ok {
		return
	}

	filename, content, err := readImport(w, r)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.store.ImportFindings(r.Context(), projectID, reportID, filename, content)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, reports.ReportItem(report))
}

func readImport(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var body importBody
		if err := httputil.ParseJSON(w, r, &body); err != nil {
			return "", nil, err
		}
		return body.Filename, []byte(body.Content), nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, httputil.MaxBodyBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, err
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return "", nil, err
	}
	return header.Filename, content, nil
}
