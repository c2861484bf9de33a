package sanitizer

import (
	"github.com/microcosm-cc/bluemonday"
)

// HTMLSanitizer removes dangerous HTML elements and attributes.
//
// Thread-safe for concurrent use.
type HTMLSanitizer struct {
	policy *bluemonday.Policy
}

// NewHTMLSanitizer creates a sanitizer for imported content: the UGC policy
// plus inline data URI images.
func NewHTMLSanitizer() *HTMLSanitizer {
	policy := bluemonday.UGCPolicy()
	policy.AllowDataURIImages()

	return &HTMLSanitizer{policy: policy}
}

// NewPreviewSanitizer creates a sanitizer for rendered report HTML. On top of
// the import policy it keeps the media:// and file:// image sources produced
// by reference resolution, and the class attributes code highlighting needs.
func NewPreviewSanitizer() *HTMLSanitizer {
	policy := bluemonday.UGCPolicy()
	policy.AllowDataURIImages()
	policy.AllowURLSchemes("http", "https", "mailto", "media", "file")
	policy.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code", "pre", "span", "div")

	return &HTMLSanitizer{policy: policy}
}

// Sanitize strips scripts, event handlers and javascript: URLs while
// preserving formatting, headings, lists, links, images, tables and code.
func (s *HTMLSanitizer) Sanitize(html string) string {
	return s.policy.Sanitize(html)
}
