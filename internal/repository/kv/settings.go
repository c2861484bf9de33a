package kv

import (
	"context"
	"encoding/json"
	"fmt"

	"aireporter/internal/domain/models/reports"
	"aireporter/internal/domain/repositories"
)

// SettingsRepository stores the settings object under the "settings" key.
type SettingsRepository struct {
	store repositories.KeyValueStore
}

// NewSettingsRepository creates a settings repository over store
func NewSettingsRepository(store repositories.KeyValueStore) *SettingsRepository {
	return &SettingsRepository{store: store}
}

// Get returns the stored settings merged over the defaults, or nil if
// settings have never been saved. Fields absent from the stored object keep
// their default values.
func (r *SettingsRepository) Get(ctx context.Context) (*reports.Settings, error) {
	data, err := r.store.Get(ctx, repositories.KeySettings)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if data == nil {
		return nil, nil
	}

	settings := reports.DefaultSettings()
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return &settings, nil
}

func (r *SettingsRepository) Put(ctx context.Context, settings *reports.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return r.store.Put(ctx, repositories.KeySettings, data)
}
