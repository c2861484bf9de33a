package images

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"aireporter/internal/domain"
	"aireporter/internal/domain/models/reports"
	"aireporter/internal/domain/repositories"
	reportsSvc "aireporter/internal/domain/services/reports"
)

type imageService struct {
	meta   repositories.ImageRepository
	files  repositories.FileStore
	logger *slog.Logger
}

// Service is the image service plus the cleanup hooks the tree store uses
// when reports are deleted.
type Service interface {
	reportsSvc.ImageService
	DetachForReports(ctx context.Context, reportIDs ...string) ([]reports.StoredImage, error)
	RemoveFiles(ctx context.Context, images []reports.StoredImage)
}

// NewService creates the image service
func NewService(meta repositories.ImageRepository, files repositories.FileStore, logger *slog.Logger) Service {
	return &imageService{meta: meta, files: files, logger: logger}
}

func imageNotFound(id string) error {
	return &domain.NotFoundError{Message: fmt.Sprintf("image %q not found", id)}
}

func (s *imageService) Store(ctx context.Context, req *reportsSvc.StoreImageRequest) (*reports.StoredImage, error) {
	if strings.TrimSpace(req.ReportID) == "" {
		return nil, &domain.ValidationError{Message: "reportId is required"}
	}
	data, ext, err := decodeDataURL(req.DataURL)
	if err != nil {
		return nil, err
	}

	var stored reports.StoredImage
	var path string
	err = s.meta.Update(ctx, func(images []reports.StoredImage) ([]reports.StoredImage, error) {
		id := NewID()
		for slices.ContainsFunc(images, func(img reports.StoredImage) bool { return img.ID == id }) {
			id = NewID()
		}

		path, err = s.files.Save(ctx, id+"."+ext, data)
		if err != nil {
			return nil, err
		}

		stored = reports.StoredImage{
			ID:          id,
			ReportID:    req.ReportID,
			Description: SanitizeDescription(req.Description),
			FilePath:    path,
			CreatedAt:   reports.Now(),
		}
		return append(images, stored), nil
	})
	if err != nil {
		if path != "" {
			if delErr := s.files.Delete(ctx, path); delErr != nil {
				s.logger.Warn("failed to remove orphaned image file", "path", path, "error", delErr)
			}
		}
		s.logger.Error("failed to store image", "report_id", req.ReportID, "error", err)
		return nil, err
	}

	s.logger.Info("image stored", "id", stored.ID, "report_id", stored.ReportID, "bytes", len(data))
	return &stored, nil
}

func (s *imageService) Replace(ctx context.Context, imageID, dataURL string) (*reports.StoredImage, error) {
	data, _, err := decodeDataURL(dataURL)
	if err != nil {
		return nil, err
	}

	var updated reports.StoredImage
	var oldPath string
	err = s.meta.Update(ctx, func(images []reports.StoredImage) ([]reports.StoredImage, error) {
		i := slices.IndexFunc(images, func(img reports.StoredImage) bool { return img.ID == imageID })
		if i < 0 {
			return nil, imageNotFound(imageID)
		}

		// Edited screenshots are always written back as PNG
		path, err := s.files.Save(ctx, imageID+".png", data)
		if err != nil {
			return nil, err
		}

		oldPath = images[i].FilePath
		images[i].FilePath = path
		updated = images[i]
		return images, nil
	})
	if err != nil {
		return nil, err
	}

	if oldPath != updated.FilePath {
		if err := s.files.Delete(ctx, oldPath); err != nil {
			s.logger.Warn("failed to remove replaced image file", "path", oldPath, "error", err)
		}
	}

	s.logger.Info("image replaced", "id", imageID, "path", updated.FilePath)
	return &updated, nil
}

func (s *imageService) Get(ctx context.Context, imageID string) (*reports.StoredImage, error) {
	images, err := s.meta.List(ctx)
	if err != nil {
		return nil, err
	}
	if i := slices.IndexFunc(images, func(img reports.StoredImage) bool { return img.ID == imageID }); i >= 0 {
		return &images[i], nil
	}
	return nil, nil
}

func (s *imageService) ForReport(ctx context.Context, reportID string) ([]reports.StoredImage, error) {
	images, err := s.meta.List(ctx)
	if err != nil {
		return nil, err
	}
	out := []reports.StoredImage{}
	for _, img := range images {
		if img.ReportID == reportID {
			out = append(out, img)
		}
	}
	return out, nil
}

func (s *imageService) UpdateDescription(ctx context.Context, imageID, description string) (*reports.StoredImage, error) {
	var updated reports.StoredImage
	err := s.meta.Update(ctx, func(images []reports.StoredImage) ([]reports.StoredImage, error) {
		i := slices.IndexFunc(images, func(img reports.StoredImage) bool { return img.ID == imageID })
		if i < 0 {
			return nil, imageNotFound(imageID)
		}
		images[i].Description = SanitizeDescription(description)
		updated = images[i]
		return images, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *imageService) Delete(ctx context.Context, imageID string) error {
	var removed *reports.StoredImage
	err := s.meta.Update(ctx, func(images []reports.StoredImage) ([]reports.StoredImage, error) {
		i := slices.IndexFunc(images, func(img reports.StoredImage) bool { return img.ID == imageID })
		if i < 0 {
			return images, nil
		}
		img := images[i]
		removed = &img
		return slices.Delete(images, i, i+1), nil
	})
	if err != nil || removed == nil {
		return err
	}

	if err := s.files.Delete(ctx, removed.FilePath); err != nil {
		s.logger.Error("failed to delete image file", "id", imageID, "path", removed.FilePath, "error", err)
		return err
	}

	s.logger.Info("image deleted", "id", imageID, "report_id", removed.ReportID)
	return nil
}

func (s *imageService) DeleteForReports(ctx context.Context, reportIDs ...string) error {
	removed, err := s.DetachForReports(ctx, reportIDs...)
	if err != nil {
		return err
	}
	s.RemoveFiles(ctx, removed)
	return nil
}

// DetachForReports drops the metadata of every image owned by reportIDs and
// returns what it removed. Files are left for RemoveFiles.
func (s *imageService) DetachForReports(ctx context.Context, reportIDs ...string) ([]reports.StoredImage, error) {
	if len(reportIDs) == 0 {
		return nil, nil
	}

	var removed []reports.StoredImage
	err := s.meta.Update(ctx, func(images []reports.StoredImage) ([]reports.StoredImage, error) {
		kept := images[:0]
		for _, img := range images {
			if slices.Contains(reportIDs, img.ReportID) {
				removed = append(removed, img)
				continue
			}
			kept = append(kept, img)
		}
		return kept, nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// RemoveFiles deletes image files, logging failures instead of returning them.
func (s *imageService) RemoveFiles(ctx context.Context, images []reports.StoredImage) {
	for _, img := range images {
		if err := s.files.Delete(ctx, img.FilePath); err != nil {
			s.logger.Warn("failed to delete image file", "id", img.ID, "path", img.FilePath, "error", err)
		}
	}
}

func (s *imageService) LoadData(ctx context.Context, path string) (string, error) {
	if !s.files.Contains(path) {
		return "", &domain.ValidationError{Message: "path is outside the image directory"}
	}

	data, err := s.files.Load(ctx, path)
	if err != nil {
		s.logger.Warn("failed to load image", "path", path, "error", err)
		return "", err
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return encodeDataURL(ext, data), nil
}

func (s *imageService) SaveAs(ctx context.Context, imageID, dst string) error {
	if !filepath.IsAbs(dst) {
		return &domain.ValidationError{Message: "destination must be an absolute path"}
	}

	img, err := s.Get(ctx, imageID)
	if err != nil {
		return err
	}
	if img == nil {
		return imageNotFound(imageID)
	}

	if err := s.files.Copy(ctx, img.FilePath, dst); err != nil {
		s.logger.Error("failed to export image", "id", imageID, "dst", dst, "error", err)
		return err
	}

	s.logger.Info("image exported", "id", imageID, "dst", dst)
	return nil
}
