package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aireporter/internal/app"
	"aireporter/internal/config"
	"aireporter/internal/domain/models/reports"
	"aireporter/internal/events"
	"aireporter/internal/seed"
	"aireporter/internal/service/generation"
	"aireporter/internal/service/hackerone"
)

type server struct {
	app  *app.App
	mux  *http.ServeMux
	demo *seed.Result
}

func newServer(t *testing.T) *server {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{StorageBackend: "memory", DataDir: "/data", Environment: "test"}

	a, err := app.NewWithFs(ctx, cfg, logger, afero.NewMemMapFs())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	demo, err := seed.NewSeeder(a.Reports, a.Images, logger).SeedDemo(ctx)
	require.NoError(t, err)

	mux := http.NewServeMux()
	a.Handlers(nil).Register(mux)
	return &server{app: a, mux: mux, demo: demo}
}

func (s *server) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *server) reportPath(suffix string) string {
	return "/api/projects/" + s.demo.Project.ID + "/reports/" + s.demo.Report.ID + suffix
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	rec := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProjectLifecycle(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/api/projects", map[string]string{"name": "Beta"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[reports.Project](t, rec)
	assert.Equal(t, "Beta", created.Name)
	assert.Empty(t, created.Items)

	rec = s.do(t, http.MethodGet, "/api/projects", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decode[[]reports.Project](t, rec)
	require.Len(t, listed, 2)
	assert.Equal(t, created.ID, listed[0].ID, "new projects are prepended")

	rec = s.do(t, http.MethodPatch, "/api/projects/"+created.ID, map[string]any{"name": "Beta 2", "description": "scope"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[reports.Project](t, rec)
	assert.Equal(t, "Beta 2", updated.Name)
	assert.Equal(t, "scope", updated.Description)

	rec = s.do(t, http.MethodDelete, "/api/projects/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/projects/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestCreateProject_Invalid(t *testing.T) {
	s := newServer(t)

	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{name: "malformed json", contentType: "application/json", body: "{"},
		{name: "blank name", contentType: "application/json", body: `{"name":"   "}`},
		{name: "text/plain body", contentType: "text/plain", body: `{"name":"Sneaky"}`},
		{name: "no content type", body: `{"name":"Sneaky"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/projects", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			s.mux.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	rec := s.do(t, http.MethodGet, "/api/projects", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, p := range decode[[]reports.Project](t, rec) {
		assert.NotEqual(t, "Sneaky", p.Name)
	}
}

func TestItems_MoveAndDeleteForgetsSelection(t *testing.T) {
	s := newServer(t)
	projectPath := "/api/projects/" + s.demo.Project.ID

	rec := s.do(t, http.MethodPost, projectPath+"/reports", map[string]string{"name": "XSS"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	added := decode[reports.Item](t, rec)
	require.NotNil(t, added.Report)

	folderID := s.demo.Folder.ID
	rec = s.do(t, http.MethodPost, projectPath+"/items/"+added.ID()+"/move", map[string]any{"parentFolderId": folderID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, projectPath+"/reports", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]reports.Report](t, rec), 2)

	rec = s.do(t, http.MethodPut, "/api/workspace", map[string]string{"projectId": s.demo.Project.ID, "reportId": added.ID()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, added.ID(), decode[generation.WorkspaceState](t, rec).ReportID)

	// Deleting the folder removes the selected report beneath it
	rec = s.do(t, http.MethodDelete, projectPath+"/items/"+folderID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/workspace", nil)
	state := decode[generation.WorkspaceState](t, rec)
	assert.Equal(t, s.demo.Project.ID, state.ProjectID)
	assert.Empty(t, state.ReportID)

	rec = s.do(t, http.MethodGet, projectPath+"/items/"+added.ID(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMoveItem_IntoOwnSubtreeIsRejected(t *testing.T) {
	s := newServer(t)
	projectPath := "/api/projects/" + s.demo.Project.ID

	rec := s.do(t, http.MethodPost, projectPath+"/folders", map[string]any{"name": "Inner", "parentFolderId": s.demo.Folder.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	inner := decode[reports.Item](t, rec)

	rec = s.do(t, http.MethodPost, projectPath+"/items/"+s.demo.Folder.ID+"/move", map[string]any{"parentFolderId": inner.ID()})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestWorkspace_UnknownReport(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPut, "/api/workspace", map[string]string{"projectId": s.demo.Project.ID, "reportId": "missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/workspace", map[string]string{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[generation.WorkspaceState](t, rec).ProjectID)
}

func TestMedia(t *testing.T) {
	s := newServer(t)
	imagePath := s.demo.Image.FilePath

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{name: "absolute path", path: imagePath, status: http.StatusOK},
		{name: "media uri", path: "media://" + url.PathEscape(imagePath), status: http.StatusOK},
		{name: "outside the store", path: "/etc/passwd", status: http.StatusForbidden},
		{name: "traversal", path: "/data/images/../secret.png", status: http.StatusForbidden},
		{name: "missing file", path: "/data/images/img-missing.png", status: http.StatusNotFound},
		{name: "no path", path: "", status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, "/media?t=1&path="+url.QueryEscape(tt.path), nil)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status == http.StatusOK {
				assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
				assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
				assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
			}
		})
	}
}

func TestHackerOneSections(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPut, "/api/workspace", map[string]string{"projectId": s.demo.Project.ID, "reportId": s.demo.Report.ID})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, s.reportPath("/hackerone"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Delimited bool               `json:"delimited"`
		Sections  hackerone.Sections `json:"sections"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.False(t, got.Delimited)

	sections := hackerone.Sections{
		Asset:       "app.example.com",
		Weakness:    "Cross-site Scripting",
		Severity:    "High",
		Title:       "Stored XSS",
		Description: "Steps",
		Impact:      "Session theft",
	}
	rec = s.do(t, http.MethodPut, s.reportPath("/hackerone"), sections)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Delimited)
	assert.Equal(t, sections, got.Sections)

	rec = s.do(t, http.MethodGet, "/api/workspace", nil)
	state := decode[generation.WorkspaceState](t, rec)
	assert.Equal(t, reports.ModeHackerOne, state.Mode)
	assert.Contains(t, state.Markdown, "<<<ASSET>>>")
}

func TestPreview(t *testing.T) {
	s := newServer(t)

	markdown := "# Login Bug\n\n@" + s.demo.Image.ID + "\n\n<script>alert(1)</script>\n"
	rec := s.do(t, http.MethodPatch, s.reportPath(""), map[string]string{"markdown": markdown})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, s.reportPath("/preview"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var preview struct {
		HTML string `json:"html"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &preview))
	assert.Contains(t, preview.HTML, "/media?path="+url.QueryEscape(s.demo.Image.FilePath))
	assert.NotContains(t, preview.HTML, "<script")
}

func TestExportPDF_Download(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, s.reportPath("/export/pdf"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
}

func TestSettings(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	settings := decode[reports.Settings](t, rec)
	assert.Equal(t, reports.DefaultModel, settings.Model)

	settings.Temperature = 3
	rec = s.do(t, http.MethodPut, "/api/settings", settings)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	settings.Temperature = 0.7
	settings.Theme = "light"
	rec = s.do(t, http.MethodPut, "/api/settings", settings)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "light", decode[reports.Settings](t, rec).Theme)
}

func TestSettings_APIKeyNeverLeaves(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	type view struct {
		reports.Settings
		HasAPIKey bool `json:"hasApiKey"`
	}
	put := func(t *testing.T, body map[string]any) view {
		t.Helper()
		rec := s.do(t, http.MethodPut, "/api/settings", body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.NotContains(t, rec.Body.String(), "sk-secret")
		return decode[view](t, rec)
	}
	base := map[string]any{"model": reports.DefaultModel, "temperature": 0.3, "theme": "dark"}
	with := func(extra map[string]any) map[string]any {
		out := map[string]any{}
		for k, v := range base {
			out[k] = v
		}
		for k, v := range extra {
			out[k] = v
		}
		return out
	}

	tests := []struct {
		name    string
		body    map[string]any
		wantKey string
	}{
		{name: "set", body: with(map[string]any{"apiKey": "sk-secret"}), wantKey: "sk-secret"},
		{name: "omitted keeps stored key", body: with(map[string]any{"theme": "light"}), wantKey: "sk-secret"},
		{name: "null clears", body: with(map[string]any{"apiKey": nil}), wantKey: ""},
		{name: "set again", body: with(map[string]any{"apiKey": " sk-secret "}), wantKey: "sk-secret"},
		{name: "blank clears", body: with(map[string]any{"apiKey": "  "}), wantKey: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := put(t, tt.body)
			assert.Empty(t, got.APIKey)
			assert.Equal(t, tt.wantKey != "", got.HasAPIKey)

			stored, err := s.app.Settings.Get(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, stored.APIKey)

			rec := s.do(t, http.MethodGet, "/api/settings", nil)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.NotContains(t, rec.Body.String(), "sk-secret")
			assert.Equal(t, tt.wantKey != "", decode[view](t, rec).HasAPIKey)
		})
	}
}

func TestModels(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/api/models", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Providers []json.RawMessage `json:"providers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.NotEmpty(t, got.Providers)
}

func TestGenerate(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	settings, err := s.app.Settings.Get(ctx)
	require.NoError(t, err)
	settings.Model = "lorem-fast"
	_, err = s.app.Settings.Save(ctx, settings)
	require.NoError(t, err)

	rec := s.do(t, http.MethodPost, s.reportPath("/generate"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	outcome := decode[generation.Outcome](t, rec)
	assert.Equal(t, generation.StatusCompleted, outcome.Status)
	assert.NotEmpty(t, outcome.Markdown)
}

func TestGenerate_DuplicateIsConflict(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	settings, err := s.app.Settings.Get(ctx)
	require.NoError(t, err)
	settings.Model = "lorem-slow"
	_, err = s.app.Settings.Save(ctx, settings)
	require.NoError(t, err)

	rec := s.do(t, http.MethodPost, s.reportPath("/generate"), map[string]any{"async": true})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/generation/active", nil)
	assert.Equal(t, []string{s.demo.Report.ID}, decode[map[string][]string](t, rec)["reportIds"])

	rec = s.do(t, http.MethodPost, s.reportPath("/generate"), nil)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
}

func TestGenerate_UnknownReport(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/api/projects/"+s.demo.Project.ID+"/reports/missing/generate", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
}

func TestEvents_StreamsGenerationLifecycle(t *testing.T) {
	s := newServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	settings, err := s.app.Settings.Get(ctx)
	require.NoError(t, err)
	settings.Model = "lorem-fast"
	_, err = s.app.Settings.Save(ctx, settings)
	require.NoError(t, err)

	srv := httptest.NewServer(s.mux)
	defer srv.Close()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/api/events", nil)
	require.NoError(t, err)
	defer conn.CloseNow()
	require.Eventually(t, func() bool { return s.app.Events.Count() == 1 }, time.Second, 10*time.Millisecond)

	rec := s.do(t, http.MethodPost, s.reportPath("/generate"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var types []string
	for len(types) < 2 {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)
		var ev events.Event
		require.NoError(t, json.Unmarshal(data, &ev))
		types = append(types, ev.Type)
	}
	assert.Equal(t, []string{generation.EventStarted, generation.EventCompleted}, types)

	conn.Close(websocket.StatusNormalClosure, "")
}
