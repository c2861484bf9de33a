package repositories

import "context"

// FileStore is the bridge to image bytes on disk. Paths it returns are
// absolute and stable; they are what StoredImage.FilePath records.
type FileStore interface {
	// Save writes data under name and returns the absolute path
	Save(ctx context.Context, name string, data []byte) (string, error)

	// Load reads the file at path
	Load(ctx context.Context, path string) ([]byte, error)

	// Delete removes the file at path. Missing files are not an error.
	Delete(ctx context.Context, path string) error

	// Copy duplicates src to dst, which may lie outside the store root
	Copy(ctx context.Context, src, dst string) error

	// Contains reports whether path lies inside the store root
	Contains(path string) bool
}
