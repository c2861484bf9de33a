package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aireporter/internal/domain/models/reports"
	"aireporter/internal/domain/repositories"
	"aireporter/internal/repository/memory"
)

func TestSettingsRepository_MergesStoredOverDefaults(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Put(ctx, repositories.KeySettings, []byte(`{"apiKey":"k","model":"gemini-2.5-pro"}`)))

	repo := NewSettingsRepository(store)
	got, err := repo.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "k", got.APIKey)
	assert.Equal(t, "gemini-2.5-pro", got.Model)
	assert.Equal(t, reports.DefaultTemperature, got.Temperature)
	assert.Equal(t, reports.DefaultAccentColor, got.AccentColor)
	assert.Equal(t, reports.DefaultTheme, got.Theme)
}

func TestSettingsRepository_AbsentReturnsNil(t *testing.T) {
	got, err := NewSettingsRepository(memory.NewStore()).Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestImageRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewImageRepository(memory.NewStore())

	img := reports.StoredImage{ID: "img-abc123", ReportID: "r1", Description: "Login form", FilePath: "/data/images/img-abc123.png", CreatedAt: reports.Now()}
	require.NoError(t, repo.Update(ctx, func(images []reports.StoredImage) ([]reports.StoredImage, error) {
		return append(images, img), nil
	}))

	images, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, img, images[0])
}
