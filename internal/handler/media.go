package handler

import (
	"bytes"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"aireporter/internal/domain/repositories"
	"aireporter/internal/httputil"
	"aireporter/internal/service/references"
)

// MediaHandler serves image files to the preview. It is the HTTP form of the
// media:// protocol and only serves files inside the image store.
type MediaHandler struct {
	files  repositories.FileStore
	logger *slog.Logger
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(files repositories.FileStore, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{
		files:  files,
		logger: logger,
	}
}

// ServeMedia streams the file named by the path query parameter, which is
// either an absolute path or a media:// URI. Any other query parameter (the
// cache-busting t) is ignored.
// GET /media?path=...
func (h *MediaHandler) ServeMedia(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("path")
	if raw == "" {
		httputil.RespondError(w, http.StatusBadRequest, "path is required")
		return
	}

	path := raw
	if strings.HasPrefix(raw, string(references.SchemeMedia)+"://") {
		decoded, err := references.DecodeMediaPath(raw)
		if err != nil {
			httputil.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		path = decoded
	}
	path = filepath.Clean(path)

	if !filepath.IsAbs(path) || !h.files.Contains(path) {
		h.logger.Warn("media request outside image directory", "path", path)
		httputil.RespondError(w, http.StatusForbidden, "path is outside the image directory")
		return
	}

	data, err := h.files.Load(r.Context(), path)
	if err != nil {
		h.logger.Warn("media file not readable", "path", path, "error", err)
		httputil.RespondError(w, http.StatusNotFound, "file not found")
		return
	}

	if contentType := mime.TypeByExtension(filepath.Ext(path)); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, filepath.Base(path), time.Time{}, bytes.NewReader(data))
}
