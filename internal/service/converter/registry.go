package converter

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"aireporter/internal/domain"
	reportsSvc "aireporter/internal/domain/services/reports"
)

// Registry routes imported findings files to a converter by extension.
//
// Thread-safe for concurrent access.
type Registry struct {
	mu         sync.RWMutex
	converters map[string]reportsSvc.ContentConverter // key: file extension (e.g., ".html")
}

// NewRegistry creates a registry with the standard converters registered.
func NewRegistry() *Registry {
	registry := &Registry{
		converters: make(map[string]reportsSvc.ContentConverter),
	}

	registry.Register(NewMarkdownConverter())
	registry.Register(NewTextConverter())
	registry.Register(NewHTMLConverter())

	return registry
}

// Register associates a converter with its supported extensions.
// Extensions are normalized to lowercase with a leading dot.
func (r *Registry) Register(converter reportsSvc.ContentConverter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ext := range converter.SupportedExtensions() {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		r.converters[ext] = converter
	}
}

// Get returns the converter for an extension, or nil. Lookup is case-insensitive.
func (r *Registry) Get(fileExt string) reportsSvc.ContentConverter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.converters[strings.ToLower(fileExt)]
}

// Convert picks a converter by the filename's extension and runs it.
func (r *Registry) Convert(ctx context.Context, filename string, content []byte) (string, error) {
	ext := filepath.Ext(filename)
	converter := r.Get(ext)

	if converter == nil {
		return "", fmt.Errorf("%w: unsupported file type %q", domain.ErrValidation, ext)
	}

	return converter.Convert(ctx, content)
}

// SupportedExtensions returns all registered file extensions, sorted.
func (r *Registry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.converters))
	for ext := range r.converters {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
