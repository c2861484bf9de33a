// Package seed fills a store with a demo project for local development.
package seed

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"

	"aireporter/internal/domain/models/reports"
	reportsSvc "aireporter/internal/domain/services/reports"
)

const (
	ProjectName = "Acme"
	FolderName  = "Web"
	ReportName  = "Login Bug"
)

// demoFindings references the attached screenshot with {img}, replaced by
// the stored image id.
const demoFindings = `Login form at https://app.acme.test/login accepts the password reset
token from the query string without expiry checks.

Steps:
1. Request a reset for victim@acme.test
2. Reuse the token from an old email after 30 days
3. Password is changed and a session is issued

Screenshot of the accepted request: @{img}`

// Result lists what was created
type Result struct {
	Project *reports.Project
	Folder  *reports.Folder
	Report  *reports.Report
	Image   *reports.StoredImage
}

// Seeder creates demo data through the regular services, so ids, validation
// and image files follow the same rules as user-created data.
type Seeder struct {
	store  reportsSvc.StoreService
	images reportsSvc.ImageService
	logger *slog.Logger
}

// NewSeeder creates a seeder
func NewSeeder(store reportsSvc.StoreService, images reportsSvc.ImageService, logger *slog.Logger) *Seeder {
	return &Seeder{
		store:  store,
		images: images,
		logger: logger,
	}
}

// SeedDemo creates Acme > Web > Login Bug with one attached screenshot
func (s *Seeder) SeedDemo(ctx context.Context) (*Result, error) {
	project, err := s.store.CreateProject(ctx, &reportsSvc.CreateProjectRequest{
		Name:        ProjectName,
		Description: "Demo engagement",
	})
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	folder, err := s.store.CreateFolder(ctx, &reportsSvc.CreateFolderRequest{
		ProjectID: project.ID,
		Name:      FolderName,
	})
	if err != nil {
		return nil, fmt.Errorf("create folder: %w", err)
	}

	report, err := s.store.AddReport(ctx, &reportsSvc.AddReportRequest{
		ProjectID:      project.ID,
		Name:           ReportName,
		ParentFolderID: &folder.ID,
		Mode:           reports.ModeStandard,
	})
	if err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}

	dataURL, err := placeholderScreenshot()
	if err != nil {
		return nil, err
	}
	img, err := s.images.Store(ctx, &reportsSvc.StoreImageRequest{
		ReportID:    report.ID,
		DataURL:     dataURL,
		Description: "Reset token accepted",
	})
	if err != nil {
		return nil, fmt.Errorf("attach image: %w", err)
	}

	findings := bytes.ReplaceAll([]byte(demoFindings), []byte("{img}"), []byte(img.ID))
	text := string(findings)
	report, err = s.store.UpdateReport(ctx, project.ID, report.ID, &reportsSvc.UpdateReportRequest{Findings: &text})
	if err != nil {
		return nil, fmt.Errorf("write findings: %w", err)
	}

	project, err = s.store.GetProject(ctx, project.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("demo project seeded", "project_id", project.ID, "report_id", report.ID, "image_id", img.ID)
	return &Result{Project: project, Folder: folder, Report: report, Image: img}, nil
}

// Clear deletes every project, with their images
func (s *Seeder) Clear(ctx context.Context) error {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return err
	}
	for _, p := range projects {
		if err := s.store.DeleteProject(ctx, p.ID); err != nil {
			return fmt.Errorf("delete project %s: %w", p.ID, err)
		}
	}
	s.logger.Info("projects cleared", "count", len(projects))
	return nil
}

// placeholderScreenshot draws a small striped PNG
func placeholderScreenshot() (string, error) {
	img := image.NewRGBA(image.Rect(0, 0, 320, 180))
	for y := 0; y < 180; y++ {
		for x := 0; x < 320; x++ {
			c := color.RGBA{R: 13, G: 13, B: 13, A: 255}
			if (y/12)%2 == 0 {
				c = color.RGBA{R: 74, G: 222, B: 128, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode screenshot: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
