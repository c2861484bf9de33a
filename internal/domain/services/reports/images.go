package reports

import (
	"context"

	"aireporter/internal/domain/models/reports"
)

// ImageService manages screenshots attached to reports.
type ImageService interface {
	// Store decodes a data URL, writes it to the file store and records its metadata
	Store(ctx context.Context, req *StoreImageRequest) (*reports.StoredImage, error)

	// Replace overwrites an image's bytes (as PNG), keeping its id
	Replace(ctx context.Context, imageID, dataURL string) (*reports.StoredImage, error)

	// Get returns nil if the image does not exist
	Get(ctx context.Context, imageID string) (*reports.StoredImage, error)

	// ForReport returns every image attached to a report, in attach order
	ForReport(ctx context.Context, reportID string) ([]reports.StoredImage, error)

	// UpdateDescription sanitizes and stores a new description
	UpdateDescription(ctx context.Context, imageID, description string) (*reports.StoredImage, error)

	// Delete removes an image's metadata and file. A missing image is a no-op.
	Delete(ctx context.Context, imageID string) error

	// DeleteForReports removes every image attached to any of reportIDs
	DeleteForReports(ctx context.Context, reportIDs ...string) error

	// LoadData reads an image file and returns it as a data URL
	LoadData(ctx context.Context, path string) (string, error)

	// SaveAs copies an image file to dst
	SaveAs(ctx context.Context, imageID, dst string) error
}

// StoreImageRequest represents an image upload
type StoreImageRequest struct {
	ReportID    string `json:"-"`
	DataURL     string `json:"dataUrl"`
	Description string `json:"description"`
}
