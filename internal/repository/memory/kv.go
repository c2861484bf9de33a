package memory

import (
	"context"
	"maps"
	"sync"

	"aireporter/internal/domain/repositories"
)

type txKey struct{}

// Store is an in-process KeyValueStore. It backs tests and the "memory"
// storage backend; nothing survives a restart.
type Store struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{data: make(map[string][]byte)}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if !inTx(ctx) {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return clone(s.data[key]), nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if !inTx(ctx) {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	s.data[key] = clone(value)
	return nil
}

func (s *Store) Update(ctx context.Context, key string, fn repositories.UpdateFn) error {
	return s.ExecTx(ctx, func(ctx context.Context) error {
		next, err := fn(clone(s.data[key]))
		if err != nil {
			return err
		}
		s.data[key] = clone(next)
		return nil
	})
}

// ExecTx holds the store lock for the duration of fn and restores the
// previous contents if fn fails.
func (s *Store) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := maps.Clone(s.data)
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) Close() error { return nil }

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
