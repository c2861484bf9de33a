package kv

import (
	"context"
	"encoding/json"
	"fmt"

	"aireporter/internal/domain/repositories"
)

// collection is a JSON array stored whole under one key.
type collection[T any] struct {
	store  repositories.KeyValueStore
	key    string
	decode func(data []byte) ([]T, error)
}

func (c *collection[T]) list(ctx context.Context) ([]T, error) {
	data, err := c.store.Get(ctx, c.key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", c.key, err)
	}
	return c.decode(data)
}

func (c *collection[T]) update(ctx context.Context, fn func([]T) ([]T, error)) error {
	return c.store.Update(ctx, c.key, func(current []byte) ([]byte, error) {
		items, err := c.decode(current)
		if err != nil {
			return nil, err
		}
		next, err := fn(items)
		if err != nil {
			return nil, err
		}
		if next == nil {
			next = []T{}
		}
		data, err := json.Marshal(next)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", c.key, err)
		}
		return data, nil
	})
}

func decodeArray[T any](key string) func([]byte) ([]T, error) {
	return func(data []byte) ([]T, error) {
		items := []T{}
		if len(data) == 0 {
			return items, nil
		}
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		if items == nil {
			items = []T{}
		}
		return items, nil
	}
}
