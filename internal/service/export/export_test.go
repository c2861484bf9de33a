package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aireporter/internal/domain"
	"aireporter/internal/domain/models/reports"
	reportsSvc "aireporter/internal/domain/services/reports"
	"aireporter/internal/filestore"
	"aireporter/internal/repository/kv"
	"aireporter/internal/repository/memory"
	"aireporter/internal/service/converter"
	"aireporter/internal/service/hackerone"
	"aireporter/internal/service/images"
	storeService "aireporter/internal/service/reports"
)

type accentSettings string

func (a accentSettings) Get(ctx context.Context) (*reports.Settings, error) {
	s := reports.DefaultSettings()
	s.AccentColor = string(a)
	return &s, nil
}

type captureRenderer struct {
	doc *Document
}

func (c *captureRenderer) Render(ctx context.Context, doc *Document, w io.Writer) error {
	c.doc = doc
	_, err := io.WriteString(w, "%PDF-fake")
	return err
}

type fixture struct {
	fs      afero.Fs
	store   reportsSvc.StoreService
	images  images.Service
	project *reports.Project
	report  *reports.Report
	image   *reports.StoredImage
}

func pngDataURL(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	for x := 0; x < 4; x++ {
		img.Set(x, 1, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func newFixture(t *testing.T, markdown string, mode reports.Mode) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fs := afero.NewMemMapFs()
	kvStore := memory.NewStore()

	files, err := filestore.NewLocal(fs, "/data/images", logger)
	require.NoError(t, err)
	imageSvc := images.NewService(kv.NewImageRepository(kvStore), files, logger)
	store := storeService.NewStoreService(kv.NewProjectRepository(kvStore, logger), kvStore, imageSvc, converter.NewRegistry(), logger)

	project, err := store.CreateProject(ctx, &reportsSvc.CreateProjectRequest{Name: "Acme"})
	require.NoError(t, err)
	report, err := store.AddReport(ctx, &reportsSvc.AddReportRequest{ProjectID: project.ID, Name: "Login Bug", Mode: mode})
	require.NoError(t, err)
	img, err := imageSvc.Store(ctx, &reportsSvc.StoreImageRequest{ReportID: report.ID, DataURL: pngDataURL(t), Description: "Login form"})
	require.NoError(t, err)

	markdown = strings.ReplaceAll(markdown, "{img}", img.ID)
	report, err = store.UpdateReport(ctx, project.ID, report.ID, &reportsSvc.UpdateReportRequest{Markdown: &markdown})
	require.NoError(t, err)

	return &fixture{fs: fs, store: store, images: imageSvc, project: project, report: report, image: img}
}

func (f *fixture) service(renderer PDFRenderer) *Service {
	return NewService(Options{
		Reports:  f.store,
		Images:   f.images,
		Settings: accentSettings("#ff0000"),
		Fs:       f.fs,
		Renderer: renderer,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestPageHeightInches(t *testing.T) {
	tests := []struct {
		px   float64
		want float64
	}{
		{0, 100.0 / 96},
		{960, 1156.0 / 96},
		{1000, 1200.0 / 96},
		{1001, 1202.0 / 96},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, PageHeightInches(tt.px), 1e-9, "px=%v", tt.px)
	}
}

func TestExportMarkdown(t *testing.T) {
	sections := hackerone.Sections{
		Asset:       "app.acme.test",
		Weakness:    "CWE-79",
		Severity:    "High",
		Title:       "Stored XSS",
		Description: "Payload persists.",
		Impact:      "Session theft.",
	}

	h1 := &reports.Report{Mode: reports.ModeHackerOne, Markdown: hackerone.Serialize(sections)}
	got := ExportMarkdown(h1)
	assert.True(t, strings.HasPrefix(got, "# Stored XSS\n"))
	assert.Contains(t, got, "**Asset:** app.acme.test")
	assert.Contains(t, got, "## Impact\n\nSession theft.")
	assert.NotContains(t, got, "<<<")

	standard := &reports.Report{Mode: reports.ModeStandard, Markdown: "# Title\n\n<<<ASSET>>>x<<<END_ASSET>>>"}
	assert.Equal(t, standard.Markdown, ExportMarkdown(standard))

	assert.Equal(t, "", ExportMarkdown(nil))
}

func TestPreview_RewritesMediaAndSanitizes(t *testing.T) {
	f := newFixture(t, "# Finding\n\nSee @{img} and @img-zzzzzz.\n\n<script>alert(1)</script>\n", reports.ModeStandard)
	svc := f.service(&captureRenderer{})

	preview, err := svc.Preview(context.Background(), f.project.ID, f.report.ID)
	require.NoError(t, err)

	assert.Contains(t, preview.Markdown, `<img src="media://%2Fdata%2Fimages%2F`+f.image.ID+`.png"`)
	assert.Contains(t, preview.HTML, `src="/media?path=%2Fdata%2Fimages%2F`+f.image.ID+`.png"`)
	assert.Contains(t, preview.HTML, `alt="Login form"`)
	assert.Contains(t, preview.HTML, "Image not found: img-zzzzzz")
	assert.Contains(t, preview.HTML, "<h1")
	assert.NotContains(t, preview.HTML, "<script")
	assert.NotContains(t, preview.HTML, "media://")
}

func TestPreview_MissingReport(t *testing.T) {
	f := newFixture(t, "x", reports.ModeStandard)
	svc := f.service(&captureRenderer{})

	_, err := svc.Preview(context.Background(), f.project.ID, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMarkdown_WritesFileLinks(t *testing.T) {
	f := newFixture(t, "Screenshot: @{img}", reports.ModeStandard)
	svc := f.service(&captureRenderer{})
	ctx := context.Background()

	require.NoError(t, svc.Markdown(ctx, f.project.ID, f.report.ID, "/exports/acme/login.md"))

	data, err := afero.ReadFile(f.fs, "/exports/acme/login.md")
	require.NoError(t, err)
	assert.Equal(t, `Screenshot: <img src="file://%2Fdata%2Fimages%2F`+f.image.ID+`.png" alt="Login form" />`, string(data))

	err = svc.Markdown(ctx, f.project.ID, f.report.ID, "relative.md")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRenderPDF_InlinesImages(t *testing.T) {
	f := newFixture(t, "# Report\n\n@{img}\n\n@img-zzzzzz", reports.ModeStandard)
	renderer := &captureRenderer{}
	svc := f.service(renderer)

	var buf bytes.Buffer
	require.NoError(t, svc.RenderPDF(context.Background(), f.project.ID, f.report.ID, &buf))

	require.NotNil(t, renderer.doc)
	assert.Equal(t, "Login Bug", renderer.doc.Title)
	assert.Equal(t, "#ff0000", renderer.doc.AccentColor)
	assert.Contains(t, renderer.doc.Markdown, `<img src="data:image/png;base64,`)
	assert.Contains(t, renderer.doc.Markdown, "*(Image not found: img-zzzzzz)*")
	assert.NotContains(t, renderer.doc.Markdown, "@"+f.image.ID)
}

func TestPDF_GoFPDF(t *testing.T) {
	markdown := strings.Join([]string{
		"# Stored XSS in profile",
		"",
		"**Severity:** High. A *stored* payload in `bio` runs for every visitor.",
		"",
		"## Steps",
		"",
		"1. Log in",
		"2. Save `<svg onload=alert(1)>` as bio",
		"   - nested bullet",
		"",
		"@{img}",
		"",
		"```http",
		"POST /profile HTTP/1.1",
		"```",
		"",
		"> quoted note",
		"",
		"| Field | Value |",
		"|---|---|",
		"| bio | payload |",
		"",
		"---",
		"",
		"Unicode: café ✓",
	}, "\n")
	f := newFixture(t, markdown, reports.ModeStandard)
	svc := f.service(NewPDFRenderer())

	require.NoError(t, svc.PDF(context.Background(), f.project.ID, f.report.ID, "/exports/report.pdf"))

	data, err := afero.ReadFile(f.fs, "/exports/report.pdf")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	assert.Contains(t, string(data), "/Subtype /Image")
}

func TestGoFPDFRenderer_UnsupportedImageFallsBack(t *testing.T) {
	doc := &Document{
		Title:    "Fallback",
		Markdown: `<img src="data:image/webp;base64,AAAA" alt="broken" /> and ![remote](https://example.test/x.png)`,
	}
	var buf bytes.Buffer
	require.NoError(t, NewPDFRenderer().Render(context.Background(), doc, &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestGoFPDFRenderer_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewPDFRenderer().Render(ctx, &Document{Markdown: "# x"}, io.Discard)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseHexColor(t *testing.T) {
	def := rgb{1, 2, 3}
	assert.Equal(t, rgb{0x4a, 0xde, 0x80}, parseHexColor("#4ade80", def))
	assert.Equal(t, rgb{0xff, 0x00, 0xff}, parseHexColor("#f0f", def))
	assert.Equal(t, def, parseHexColor("green", def))
	assert.Equal(t, def, parseHexColor("", def))
}
