package handler

import (
	"bytes"
	"log/slog"
	"net/http"

	"aireporter/internal/httputil"
	"aireporter/internal/service/export"
)

// ExportHandler renders previews and exports reports
type ExportHandler struct {
	export *export.Service
	logger *slog.Logger
}

// NewExportHandler creates a new export handler
func NewExportHandler(exportService *export.Service, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{
		export: exportService,
		logger: logger,
	}
}

// exportBody names a destination file. Without one the export is returned
// as a download.
type exportBody struct {
	Path string `json:"path"`
}

// Preview returns the report as resolved Markdown and sanitized HTML
// GET /api/projects/{id}/reports/{reportId}/preview
func (h *ExportHandler) Preview(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}
	reportID, ok := PathParam(w, r, "reportId", "Report ID")
	if !ok {
		return
	}

	preview, err := h.export.Preview(r.Context(), projectID, reportID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, preview)
}

// ExportMarkdown writes the report as Markdown with file:// image links
// POST /api/projects/{id}/reports/{reportId}/export/markdown
func (h *ExportHandler) ExportMarkdown(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}
	reportID, ok := PathParam(w, r, "reportId", "Report ID")
	if !ok {
		return
	}

	var body exportBody
	if err := httputil.ParseOptionalJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if body.Path != "" {
		if err := h.export.Markdown(r.Context(), projectID, reportID, body.Path); err != nil {
			handleError(w, err)
			return
		}
		httputil.RespondJSON(w, http.StatusOK, map[string]string{"path": body.Path})
		return
	}

	content, err := h.export.RenderMarkdown(r.Context(), projectID, reportID)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondAttachment(w, "text/markdown; charset=utf-8", reportID+".md", []byte(content))
}

// ExportPDF renders the report as a single-page PDF with embedded images
// POST /api/projects/{id}/reports/{reportId}/export/pdf
func (h *ExportHandler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}
	reportID, ok := PathParam(w, r, "reportId", "Report ID")
	if !ok {
		return
	}

	var body exportBody
	if err := httputil.ParseOptionalJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if body.Path != "" {
		if err := h.export.PDF(r.Context(), projectID, reportID, body.Path); err != nil {
			handleError(w, err)
			return
		}
		httputil.RespondJSON(w, http.StatusOK, map[string]string{"path": body.Path})
		return
	}

	var buf bytes.Buffer
	if err := h.export.RenderPDF(r.Context(), projectID, reportID, &buf); err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondAttachment(w, "application/pdf", reportID+".pdf", buf.Bytes())
}
