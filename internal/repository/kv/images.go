package kv

import (
	"context"

	"aireporter/internal/domain/models/reports"
	"aireporter/internal/domain/repositories"
)

// ImageRepository stores image metadata under the "images-meta" key.
type ImageRepository struct {
	collection[reports.StoredImage]
}

// NewImageRepository creates an image metadata repository over store
func NewImageRepository(store repositories.KeyValueStore) *ImageRepository {
	return &ImageRepository{collection[reports.StoredImage]{
		store:  store,
		key:    repositories.KeyImagesMeta,
		decode: decodeArray[reports.StoredImage](repositories.KeyImagesMeta),
	}}
}

func (r *ImageRepository) List(ctx context.Context) ([]reports.StoredImage, error) {
	return r.list(ctx)
}

func (r *ImageRepository) Update(ctx context.Context, fn repositories.ImagesFn) error {
	return r.update(ctx, fn)
}
