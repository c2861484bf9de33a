package reports

import "context"

// ContentConverter converts imported findings content to markdown.
// Each converter handles a specific file type (html, txt, md).
//
// Implementations should be stateless and thread-safe.
type ContentConverter interface {
	// Convert transforms input content to markdown.
	Convert(ctx context.Context, input []byte) (markdown string, err error)

	// SupportedExtensions returns file extensions this converter handles,
	// including the leading dot (e.g., [".html", ".htm"]).
	SupportedExtensions() []string

	// Name returns a human-readable converter name for logging.
	Name() string
}
