package settings

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"aireporter/internal/domain"
	"aireporter/internal/domain/models/reports"
	"aireporter/internal/domain/repositories"
	reportsSvc "aireporter/internal/domain/services/reports"
)

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Service implements the SettingsService interface
type Service struct {
	repo   repositories.SettingsRepository
	logger *slog.Logger
}

// NewService creates a new settings service
func NewService(repo repositories.SettingsRepository, logger *slog.Logger) reportsSvc.SettingsService {
	return &Service{repo: repo, logger: logger}
}

// Get retrieves the settings. The first read persists the defaults so every
// later reader sees the same object.
func (s *Service) Get(ctx context.Context) (*reports.Settings, error) {
	stored, err := s.repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	if stored != nil {
		return stored, nil
	}

	defaults := reports.DefaultSettings()
	if err := s.repo.Put(ctx, &defaults); err != nil {
		return nil, fmt.Errorf("persist default settings: %w", err)
	}
	s.logger.Debug("no settings found, persisted defaults")
	return &defaults, nil
}

// Save validates and overwrites the stored settings
func (s *Service) Save(ctx context.Context, settings *reports.Settings) (*reports.Settings, error) {
	if settings == nil {
		return nil, &domain.ValidationError{Message: "settings are required"}
	}

	next := *settings
	next.APIKey = strings.TrimSpace(next.APIKey)
	next.Model = strings.TrimSpace(next.Model)
	next.Theme = strings.TrimSpace(next.Theme)
	if next.Theme == "" {
		next.Theme = reports.DefaultTheme
	}
	if next.AccentColor == "" {
		next.AccentColor = reports.DefaultAccentColor
	}

	if err := validation.ValidateStruct(&next,
		validation.Field(&next.Temperature, validation.Min(0.0), validation.Max(2.0)),
		validation.Field(&next.Model, validation.Required, validation.Length(1, 128)),
		validation.Field(&next.AccentColor, validation.Match(hexColor).Error("must be a hex color like #4ade80")),
		validation.Field(&next.Theme, validation.In("dark", "light")),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if err := s.repo.Put(ctx, &next); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}

	s.logger.Info("settings saved",
		"model", next.Model,
		"temperature", next.Temperature,
		"theme", next.Theme,
		"has_api_key", next.APIKey != "",
	)
	return &next, nil
}
