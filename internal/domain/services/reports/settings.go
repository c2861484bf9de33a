package reports

import (
	"context"

	"aireporter/internal/domain/models/reports"
)

// SettingsService reads and saves the global settings object.
type SettingsService interface {
	// Get returns the stored settings merged over defaults, persisting the
	// defaults on first read
	Get(ctx context.Context) (*reports.Settings, error)

	// Save validates and overwrites the stored settings
	Save(ctx context.Context, settings *reports.Settings) (*reports.Settings, error)
}
