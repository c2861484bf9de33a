package handler

import "net/http"

// Handlers groups every HTTP handler the server exposes
type Handlers struct {
	Projects   *ProjectHandler
	Items      *ItemHandler
	Images     *ImageHandler
	Media      *MediaHandler
	Generation *GenerationHandler
	Workspace  *WorkspaceHandler
	Export     *ExportHandler
	HackerOne  *HackerOneHandler
	Settings   *SettingsHandler
	Models     *ModelsHandler
	Events     *EventsHandler
}

// Register mounts every route on mux (Go 1.22+ method patterns)
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", HealthCheck)

	// Projects
	mux.HandleFunc("GET /api/projects", h.Projects.ListProjects)
	mux.HandleFunc("POST /api/projects", h.Projects.CreateProject)
	mux.HandleFunc("GET /api/projects/{id}", h.Projects.GetProject)
	mux.HandleFunc("PATCH /api/projects/{id}", h.Projects.UpdateProject)
	mux.HandleFunc("DELETE /api/projects/{id}", h.Projects.DeleteProject)
	mux.HandleFunc("GET /api/projects/{id}/reports", h.Projects.ListReports)

	// Tree items
	mux.HandleFunc("POST /api/projects/{id}/reports", h.Items.AddReport)
	mux.HandleFunc("POST /api/projects/{id}/folders", h.Items.CreateFolder)
	mux.HandleFunc("GET /api/projects/{id}/items/{itemId}", h.Items.GetItem)
	mux.HandleFunc("DELETE /api/projects/{id}/items/{itemId}", h.Items.DeleteItem)
	mux.HandleFunc("POST /api/projects/{id}/items/{itemId}/move", h.Items.MoveItem)
	mux.HandleFunc("PATCH /api/projects/{id}/reports/{reportId}", h.Items.UpdateReport)
	mux.HandleFunc("PATCH /api/projects/{id}/folders/{folderId}", h.Items.UpdateFolder)
	mux.HandleFunc("POST /api/projects/{id}/reports/{reportId}/import", h.Items.ImportFindings)

	// HackerOne editor, preview and export
	mux.HandleFunc("GET /api/projects/{id}/reports/{reportId}/hackerone", h.HackerOne.GetSections)
	mux.HandleFunc("PUT /api/projects/{id}/reports/{reportId}/hackerone", h.HackerOne.SaveSections)
	mux.HandleFunc("GET /api/projects/{id}/reports/{reportId}/preview", h.Export.Preview)
	mux.HandleFunc("POST /api/projects/{id}/reports/{reportId}/export/markdown", h.Export.ExportMarkdown)
	mux.HandleFunc("POST /api/projects/{id}/reports/{reportId}/export/pdf", h.Export.ExportPDF)

	// Generation
	mux.HandleFunc("POST /api/projects/{id}/reports/{reportId}/generate", h.Generation.Generate)
	mux.HandleFunc("GET /api/generation/active", h.Generation.ListActive)

	// Images
	mux.HandleFunc("GET /api/reports/{reportId}/images", h.Images.ListImages)
	mux.HandleFunc("POST /api/reports/{reportId}/images", h.Images.StoreImage)
	mux.HandleFunc("GET /api/images/{id}", h.Images.GetImage)
	mux.HandleFunc("PATCH /api/images/{id}", h.Images.UpdateDescription)
	mux.HandleFunc("PUT /api/images/{id}", h.Images.ReplaceImage)
	mux.HandleFunc("DELETE /api/images/{id}", h.Images.DeleteImage)
	mux.HandleFunc("GET /api/images/{id}/data", h.Images.GetImageData)
	mux.HandleFunc("POST /api/images/{id}/save-as", h.Images.SaveImageAs)
	mux.HandleFunc("GET /media", h.Media.ServeMedia)

	// Workspace
	mux.HandleFunc("GET /api/workspace", h.Workspace.GetWorkspace)
	mux.HandleFunc("PUT /api/workspace", h.Workspace.SelectReport)

	// Settings and models
	mux.HandleFunc("GET /api/settings", h.Settings.GetSettings)
	mux.HandleFunc("PUT /api/settings", h.Settings.SaveSettings)
	mux.HandleFunc("GET /api/models", h.Models.GetCapabilities)

	// Lifecycle events
	mux.HandleFunc("GET /api/events", h.Events.Stream)
}
