package converter

import (
	"context"
	"strings"

	reportsSvc "aireporter/internal/domain/services/reports"
)

// passthroughConverter handles formats that are already valid markdown.
type passthroughConverter struct {
	name string
	exts []string
}

// NewMarkdownConverter returns markdown files unchanged.
func NewMarkdownConverter() reportsSvc.ContentConverter {
	return &passthroughConverter{name: "markdown", exts: []string{".md", ".markdown"}}
}

// NewTextConverter returns plain text unchanged, since it is valid markdown.
func NewTextConverter() reportsSvc.ContentConverter {
	return &passthroughConverter{name: "plaintext", exts: []string{".txt", ".text", ".log"}}
}

func (c *passthroughConverter) Convert(ctx context.Context, input []byte) (string, error) {
	return strings.TrimSpace(strings.ReplaceAll(string(input), "\r\n", "\n")), nil
}

func (c *passthroughConverter) SupportedExtensions() []string {
	return c.exts
}

func (c *passthroughConverter) Name() string {
	return c.name
}
