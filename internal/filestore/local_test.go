package filestore

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Local, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	store, err := NewLocal(fsys, "/data/images", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return store, fsys
}

func TestLocal_SaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	store, fsys := newTestStore(t)

	path, err := store.Save(ctx, "img-abc123.png", []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/data/images", "img-abc123.png"), path)

	data, err := store.Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)

	require.NoError(t, store.Delete(ctx, path))
	exists, err := afero.Exists(fsys, path)
	require.NoError(t, err)
	assert.False(t, exists)

	// Deleting again is not an error
	require.NoError(t, store.Delete(ctx, path))
}

func TestLocal_SaveRejectsPaths(t *testing.T) {
	store, _ := newTestStore(t)

	for _, name := range []string{"", "../escape.png", "nested/file.png"} {
		_, err := store.Save(context.Background(), name, []byte("x"))
		assert.Error(t, err, "name %q", name)
	}
}

func TestLocal_Copy(t *testing.T) {
	ctx := context.Background()
	store, fsys := newTestStore(t)

	src, err := store.Save(ctx, "img-abc123.jpg", []byte("jpeg"))
	require.NoError(t, err)

	require.NoError(t, store.Copy(ctx, src, "/home/user/Desktop/shot.jpg"))
	data, err := afero.ReadFile(fsys, "/home/user/Desktop/shot.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)
}

func TestLocal_Contains(t *testing.T) {
	store, _ := newTestStore(t)

	tests := []struct {
		path string
		want bool
	}{
		{"/data/images/img-abc123.png", true},
		{"/data/images", false},
		{"/data/images/../secret.txt", false},
		{"/etc/passwd", false},
		{"/data/images-other/x.png", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, store.Contains(tt.path))
		})
	}
}
