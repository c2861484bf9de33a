package repositories

import "context"

// Persisted keys. Each holds one JSON document.
const (
	KeyProjects   = "projects"
	KeyImagesMeta = "images-meta"
	KeySettings   = "settings"
)

// UpdateFn receives the current value (nil when the key is absent) and
// returns the value to store. Returning an error aborts without writing.
type UpdateFn func(current []byte) ([]byte, error)

// KeyValueStore is the persistence boundary. Every backend stores whole JSON
// documents under a small set of keys.
type KeyValueStore interface {
	TransactionManager

	// Get returns the stored value, or nil if the key has never been written
	Get(ctx context.Context, key string) ([]byte, error)

	// Put overwrites the value stored under key
	Put(ctx context.Context, key string, value []byte) error

	// Update performs an atomic read-modify-write of one key. No other
	// mutation of the same key can interleave between the read and the write.
	Update(ctx context.Context, key string, fn UpdateFn) error

	Close() error
}
