package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Local stores image bytes as plain files under a root directory.
// The filesystem is injected so tests can run on afero.NewMemMapFs.
type Local struct {
	fs     afero.Fs
	root   string
	logger *slog.Logger
}

// NewLocal creates a file store rooted at root, creating it if needed.
func NewLocal(fsys afero.Fs, root string, logger *slog.Logger) (*Local, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve image directory: %w", err)
	}
	if err := fsys.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create image directory: %w", err)
	}
	return &Local{fs: fsys, root: root, logger: logger}, nil
}

// Root returns the absolute directory holding stored files.
func (l *Local) Root() string {
	return l.root
}

func (l *Local) Save(ctx context.Context, name string, data []byte) (string, error) {
	if name == "" || filepath.Base(name) != name {
		return "", fmt.Errorf("invalid file name %q", name)
	}

	path := filepath.Join(l.root, name)
	if err := afero.WriteFile(l.fs, path, data, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}

	l.logger.Debug("file saved", "path", path, "bytes", len(data))
	return path, nil
}

func (l *Local) Load(ctx context.Context, path string) ([]byte, error) {
	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func (l *Local) Delete(ctx context.Context, path string) error {
	if !l.Contains(path) {
		return fmt.Errorf("refusing to delete %s outside %s", path, l.root)
	}
	if err := l.fs.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

func (l *Local) Copy(ctx context.Context, src, dst string) error {
	in, err := l.fs.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	if err := l.fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(dst), err)
	}

	out, err := l.fs.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	return out.Close()
}

// Contains reports whether path resolves to a file inside the store root.
func (l *Local) Contains(path string) bool {
	clean := filepath.Clean(path)
	rel, err := filepath.Rel(l.root, clean)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
