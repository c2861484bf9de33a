package handler

import (
	"log/slog"
	"net/http"

	reportsSvc "aireporter/internal/domain/services/reports"
	"aireporter/internal/httputil"
)

// ImageHandler handles screenshot HTTP requests
type ImageHandler struct {
	images reportsSvc.ImageService
	logger *slog.Logger
}

// NewImageHandler creates a new image handler
func NewImageHandler(images reportsSvc.ImageService, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{
		images: images,
		logger: logger,
	}
}

// ListImages returns the images attached to a report
// GET /api/reports/{reportId}/images
func (h *ImageHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	reportID, ok := PathParam(w, r, "reportId", "Report ID")
	if !ok {
		return
	}

	images, err := h.images.ForReport(r.Context(), reportID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, images)
}

// StoreImage attaches a data URL image to a report
// POST /api/reports/{reportId}/images
func (h *ImageHandler) StoreImage(w http.ResponseWriter, r *http.Request) {
	reportID, ok := PathParam(w, r, "reportId", "Report ID")
	if !ok {
		return
	}

	var req reportsSvc.StoreImageRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.ReportID = reportID

	image, err := h.images.Store(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, image)
}

// GetImage returns an image's metadata
// GET /api/images/{id}
func (h *ImageHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	imageID, ok := PathParam(w, r, "id", "Image ID")
	if !ok {
		return
	}

	image, err := h.images.Get(r.Context(), imageID)
	if err != nil {
		handleError(w, err)
		return
	}
	if image == nil {
		notFound(w, "image")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, image)
}

// UpdateDescription changes an image's description
// PATCH /api/images/{id}
func (h *ImageHandler) UpdateDescription(w http.ResponseWriter, r *http.Request) {
	imageID, ok := PathParam(w, r, "id", "Image ID")
	if !ok {
		return
	}

	var body struct {
		Description string `json:"description"`
	}
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	image, err := h.images.UpdateDescription(r.Context(), imageID, body.Description)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, image)
}

// ReplaceImage overwrites an image with edited bytes, stored as PNG
// PUT /api/images/{id}
func (h *ImageHandler) ReplaceImage(w http.ResponseWriter, r *http.Request) {
	imageID, ok := PathParam(w, r, "id", "Image ID")
	if !ok {
		return
	}

	var body struct {
		DataURL string `json:"dataUrl"`
	}
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	image, err := h.images.Replace(r.Context(), imageID, body.DataURL)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, image)
}

// DeleteImage removes an image and its file
// DELETE /api/images/{id}
func (h *ImageHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	imageID, ok := PathParam(w, r, "id", "Image ID")
	if !ok {
		return
	}

	if err := h.images.Delete(r.Context(), imageID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetImageData returns the image bytes as a data URL
// GET /api/images/{id}/data
func (h *ImageHandler) GetImageData(w http.ResponseWriter, r *http.Request) {
	imageID, ok := PathParam(w, r, "id", "Image ID")
	if !ok {
		return
	}

	image, err := h.images.Get(r.Context(), imageID)
	if err != nil {
		handleError(w, err)
		return
	}
	if image == nil {
		notFound(w, "image")
		return
	}

	dataURL, err := h.images.LoadData(r.Context(), image.FilePath)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]string{"dataUrl": dataURL})
}

// SaveImageAs copies the image file to an absolute destination path
// POST /api/images/{id}/save-as
func (h *ImageHandler) SaveImageAs(w http.ResponseWriter, r *http.Request) {
	imageID, ok := PathParam(w, r, "id", "Image ID")
	if !ok {
		return
	}

	var body struct {
		Path string `json:"path"`
	}
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.images.SaveAs(r.Context(), imageID, body.Path); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]string{"path": body.Path})
}
