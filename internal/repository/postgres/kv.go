package postgres

import (
	"context"
	"fmt"

	"aireporter/internal/domain/repositories"
)

// Store is a KeyValueStore backed by one postgres table.
type Store struct {
	*TransactionManager
	cfg *RepositoryConfig
}

// NewStore creates the store and ensures its table exists.
func NewStore(ctx context.Context, cfg *RepositoryConfig) (*Store, error) {
	s := &Store{
		TransactionManager: NewTransactionManager(cfg.Pool, cfg.Logger),
		cfg:                cfg,
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key        TEXT PRIMARY KEY,
			value      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`, cfg.Tables.KV)
	if _, err := cfg.Pool.Exec(ctx, query); err != nil {
		return nil, fmt.Errorf("create %s: %w", cfg.Tables.KV, err)
	}

	cfg.Logger.Debug("postgres store ready", "table", cfg.Tables.KV)
	return s, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	query := fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, s.cfg.Tables.KV)

	var value []byte
	err := GetExecutor(ctx, s.cfg.Pool).QueryRow(ctx, query, key).Scan(&value)
	if IsPgNoRowsError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, s.cfg.Tables.KV)

	if _, err := GetExecutor(ctx, s.cfg.Pool).Exec(ctx, query, key, string(value)); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Update locks the row for the duration of the transaction so concurrent
// writers of the same key queue behind each other.
func (s *Store) Update(ctx context.Context, key string, fn repositories.UpdateFn) error {
	return s.ExecTx(ctx, func(ctx context.Context) error {
		exec := GetExecutor(ctx, s.cfg.Pool)

		// Materialize the row first so FOR UPDATE always has something to lock
		seed := fmt.Sprintf(`INSERT INTO %s (key, value) VALUES ($1, 'null') ON CONFLICT (key) DO NOTHING`, s.cfg.Tables.KV)
		if _, err := exec.Exec(ctx, seed, key); err != nil {
			return fmt.Errorf("seed %s: %w", key, err)
		}

		var current []byte
		lock := fmt.Sprintf(`SELECT value FROM %s WHERE key = $1 FOR UPDATE`, s.cfg.Tables.KV)
		if err := exec.QueryRow(ctx, lock, key).Scan(&current); err != nil {
			return fmt.Errorf("lock %s: %w", key, err)
		}
		if string(current) == "null" {
			current = nil
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		return s.Put(ctx, key, next)
	})
}

func (s *Store) Close() error {
	s.cfg.Pool.Close()
	return nil
}
