package repositories

import (
	"context"

	"aireporter/internal/domain/models/reports"
)

// ProjectsFn mutates the full project collection in memory and returns it.
type ProjectsFn func(projects []reports.Project) ([]reports.Project, error)

// ProjectRepository persists the whole project collection.
type ProjectRepository interface {
	// List loads every project, upgrading legacy records on the way
	List(ctx context.Context) ([]reports.Project, error)

	// Update loads, mutates and saves the collection as one atomic step
	Update(ctx context.Context, fn ProjectsFn) error
}

// ImagesFn mutates the full image metadata collection in memory and returns it.
type ImagesFn func(images []reports.StoredImage) ([]reports.StoredImage, error)

// ImageRepository persists image metadata. Image bytes live in the file store.
type ImageRepository interface {
	List(ctx context.Context) ([]reports.StoredImage, error)
	Update(ctx context.Context, fn ImagesFn) error
}

// SettingsRepository persists the global settings object.
type SettingsRepository interface {
	// Get returns nil if settings have never been saved
	Get(ctx context.Context) (*reports.Settings, error)

	// Put overwrites the stored settings
	Put(ctx context.Context, settings *reports.Settings) error
}
