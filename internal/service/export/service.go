package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"aireporter/internal/domain"
	"aireporter/internal/domain/models/reports"
	"aireporter/internal/service/converter/sanitizer"
	"aireporter/internal/service/references"
)

// MediaRoute is the HTTP route that serves image files to the preview
const MediaRoute = "/media"

// ReportFinder looks up a report in the project tree
type ReportFinder interface {
	FindReport(ctx context.Context, projectID, reportID string) (*reports.Report, error)
}

// ImageSource lists a report's images and reads their bytes
type ImageSource interface {
	ForReport(ctx context.Context, reportID string) ([]reports.StoredImage, error)
	LoadData(ctx context.Context, path string) (string, error)
}

// SettingsReader supplies the accent color used for PDF headings
type SettingsReader interface {
	Get(ctx context.Context) (*reports.Settings, error)
}

// Options configures the export service
type Options struct {
	Reports  ReportFinder
	Images   ImageSource
	Settings SettingsReader
	Fs       afero.Fs
	Renderer PDFRenderer
	Logger   *slog.Logger
}

// Service renders reports for preview and writes Markdown and PDF exports.
// All three paths resolve image tokens through the references package.
type Service struct {
	reports   ReportFinder
	images    ImageSource
	settings  SettingsReader
	fs        afero.Fs
	renderer  PDFRenderer
	sanitizer *sanitizer.HTMLSanitizer
	md        goldmark.Markdown
	logger    *slog.Logger
}

// NewService creates the export service. A nil Fs writes to the OS
// filesystem and a nil Renderer uses gofpdf.
func NewService(opts Options) *Service {
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	renderer := opts.Renderer
	if renderer == nil {
		renderer = NewPDFRenderer()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		reports:   opts.Reports,
		images:    opts.Images,
		settings:  opts.Settings,
		fs:        fs,
		renderer:  renderer,
		sanitizer: sanitizer.NewPreviewSanitizer(),
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
		logger: logger,
	}
}

// Preview is a report rendered for display
type Preview struct {
	ReportID string       `json:"reportId"`
	Name     string       `json:"name"`
	Mode     reports.Mode `json:"mode"`
	Markdown string       `json:"markdown"`
	HTML     string       `json:"html"`
}

func (s *Service) load(ctx context.Context, projectID, reportID string) (*reports.Report, []reports.StoredImage, error) {
	report, err := s.reports.FindReport(ctx, projectID, reportID)
	if err != nil {
		return nil, nil, err
	}
	if report == nil {
		return nil, nil, &domain.NotFoundError{Message: fmt.Sprintf("report %q not found", reportID)}
	}
	images, err := s.images.ForReport(ctx, reportID)
	if err != nil {
		return nil, nil, fmt.Errorf("list images: %w", err)
	}
	return report, images, nil
}

// Preview resolves tokens to media:// links and renders sanitized HTML. The
// media URIs in the HTML are pointed at MediaRoute so a browser can load them.
func (s *Service) Preview(ctx context.Context, projectID, reportID string) (*Preview, error) {
	report, images, err := s.load(ctx, projectID, reportID)
	if err != nil {
		return nil, err
	}

	markdown := references.ResolveLinks(ExportMarkdown(report), images, references.SchemeMedia)

	var buf bytes.Buffer
	if err := s.md.Convert([]byte(markdown), &buf); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	rendered := references.RewriteMediaURIs(buf.String(), MediaRoute)

	return &Preview{
		ReportID: report.ID,
		Name:     report.Name,
		Mode:     report.Mode,
		Markdown: markdown,
		HTML:     s.sanitizer.Sanitize(rendered),
	}, nil
}

// RenderMarkdown returns the export Markdown with tokens resolved to file://
// links, portable to other viewers on this machine.
func (s *Service) RenderMarkdown(ctx context.Context, projectID, reportID string) (string, error) {
	report, images, err := s.load(ctx, projectID, reportID)
	if err != nil {
		return "", err
	}
	return references.ResolveLinks(ExportMarkdown(report), images, references.SchemeFile), nil
}

// Markdown writes the export Markdown to dst
func (s *Service) Markdown(ctx context.Context, projectID, reportID, dst string) error {
	if err := validateDestination(dst); err != nil {
		return err
	}
	content, err := s.RenderMarkdown(ctx, projectID, reportID)
	if err != nil {
		return err
	}
	if err := s.write(dst, []byte(content)); err != nil {
		s.logger.Error("markdown export failed", "report_id", reportID, "dst", dst, "error", err)
		return err
	}
	s.logger.Info("markdown exported", "report_id", reportID, "dst", dst)
	return nil
}

// RenderPDF resolves tokens to inline data and renders the report as a
// single-page PDF into w. Images that fail to load render as placeholders.
func (s *Service) RenderPDF(ctx context.Context, projectID, reportID string, w io.Writer) error {
	report, images, err := s.load(ctx, projectID, reportID)
	if err != nil {
		return err
	}

	content, err := references.ResolveInline(ctx, ExportMarkdown(report), images, s.images)
	if err != nil {
		s.logger.Warn("some images could not be embedded", "report_id", reportID, "error", err)
	}

	accent := reports.DefaultAccentColor
	if s.settings != nil {
		settings, err := s.settings.Get(ctx)
		if err != nil {
			s.logger.Warn("failed to read settings for export", "error", err)
		} else if settings.AccentColor != "" {
			accent = settings.AccentColor
		}
	}

	doc := &Document{Title: report.Name, Markdown: content, AccentColor: accent}
	if err := s.renderer.Render(ctx, doc, w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

// PDF renders the report and writes it to dst
func (s *Service) PDF(ctx context.Context, projectID, reportID, dst string) error {
	if err := validateDestination(dst); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := s.RenderPDF(ctx, projectID, reportID, &buf); err != nil {
		return err
	}
	if err := s.write(dst, buf.Bytes()); err != nil {
		s.logger.Error("pdf export failed", "report_id", reportID, "dst", dst, "error", err)
		return err
	}
	s.logger.Info("pdf exported", "report_id", reportID, "dst", dst, "bytes", buf.Len())
	return nil
}

func validateDestination(dst string) error {
	if dst == "" || !filepath.IsAbs(dst) {
		return &domain.ValidationError{Message: "destination must be an absolute path"}
	}
	return nil
}

func (s *Service) write(dst string, data []byte) error {
	if err := s.fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(dst), err)
	}
	if err := afero.WriteFile(s.fs, dst, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return nil
}
