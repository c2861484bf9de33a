package sqlite

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := Open(filepath.Join(t.TempDir(), "test.db"), logger)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_GetMissingKey(t *testing.T) {
	store := openTestStore(t)

	got, err := store.Get(context.Background(), "projects")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != nil {
		t.Errorf("Get() = %q, want nil", got)
	}
}

func TestStore_PutOverwrites(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	for _, v := range []string{`[1]`, `[2]`} {
		if err := store.Put(ctx, "k", []byte(v)); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}

	got, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != `[2]` {
		t.Errorf("Get() = %s, want [2]", got)
	}
}

func TestStore_UpdateIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Update(ctx, "counter", func(current []byte) ([]byte, error) {
				n := 0
				if current != nil {
					n, _ = strconv.Atoi(string(current))
				}
				return []byte(strconv.Itoa(n + 1)), nil
			})
			if err != nil {
				t.Errorf("Update() error = %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, "counter")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != strconv.Itoa(writers) {
		t.Errorf("counter = %s, want %d", got, writers)
	}
}

func TestStore_ExecTxRollsBack(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	boom := errors.New("boom")

	err := store.ExecTx(ctx, func(ctx context.Context) error {
		if err := store.Put(ctx, "a", []byte(`1`)); err != nil {
			return err
		}
		// Nested update joins the outer transaction
		if err := store.Update(ctx, "b", func([]byte) ([]byte, error) { return []byte(`2`), nil }); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("ExecTx() error = %v, want boom", err)
	}

	for _, key := range []string{"a", "b"} {
		got, err := store.Get(ctx, key)
		if err != nil {
			t.Fatalf("Get(%s) error = %v", key, err)
		}
		if got != nil {
			t.Errorf("Get(%s) = %s, want nil after rollback", key, got)
		}
	}
}
