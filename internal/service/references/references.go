// Package references expands inline @img-<id> tokens in report text into
// image tags. Live preview, Markdown export and PDF export all resolve
// through this package so a token renders the same way everywhere.
package references

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"

	"aireporter/internal/domain/models/reports"
)

// TokenPattern matches a reference token and captures the image id.
var TokenPattern = regexp.MustCompile(`@(img-[a-z0-9]+)`)

// Scheme selects the URI scheme used for linked images.
type Scheme string

const (
	// SchemeMedia is served by the host's media endpoint for live preview.
	SchemeMedia Scheme = "media"
	// SchemeFile is portable to other Markdown viewers on the same machine.
	SchemeFile Scheme = "file"
)

// Placeholder is what an unresolvable token renders as.
func Placeholder(id string) string {
	return fmt.Sprintf("*(Image not found: %s)*", id)
}

// ImageTag renders an HTML image tag for src with the description as alt text.
func ImageTag(src, alt string) string {
	return fmt.Sprintf(`<img src="%s" alt="%s" />`, html.EscapeString(src), html.EscapeString(alt))
}

// URI builds "<scheme>://<url-encoded absolute path>".
func URI(scheme Scheme, path string) string {
	return string(scheme) + "://" + url.PathEscape(path)
}

// TokenIDs returns the distinct image ids referenced in text, in first-seen order.
func TokenIDs(text string) []string {
	var ids []string
	seen := make(map[string]struct{})
	for _, m := range TokenPattern.FindAllStringSubmatch(text, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		ids = append(ids, m[1])
	}
	return ids
}

func index(images []reports.StoredImage) map[string]reports.StoredImage {
	byID := make(map[string]reports.StoredImage, len(images))
	for _, img := range images {
		byID[img.ID] = img
	}
	return byID
}

// ResolveLinks replaces every token with an image tag pointing at the
// image's file through scheme. Unknown ids become a visible placeholder.
func ResolveLinks(text string, images []reports.StoredImage, scheme Scheme) string {
	byID := index(images)
	return TokenPattern.ReplaceAllStringFunc(text, func(token string) string {
		id := token[1:]
		img, ok := byID[id]
		if !ok {
			return Placeholder(id)
		}
		return ImageTag(URI(scheme, img.FilePath), img.Description)
	})
}

// Loader reads an image file and returns it as a data URL.
type Loader interface {
	LoadData(ctx context.Context, path string) (string, error)
}

// ResolveInline replaces every token with an image tag carrying the image
// bytes as a data URI. Each distinct id is loaded once. Ids that are unknown
// or fail to load become the placeholder; the returned error reports load
// failures but the text is always fully resolved.
func ResolveInline(ctx context.Context, text string, images []reports.StoredImage, loader Loader) (string, error) {
	byID := index(images)
	tags := make(map[string]string)
	var failed []string

	for _, id := range TokenIDs(text) {
		img, ok := byID[id]
		if !ok {
			tags[id] = Placeholder(id)
			continue
		}
		data, err := loader.LoadData(ctx, img.FilePath)
		if err != nil {
			failed = append(failed, id)
			tags[id] = Placeholder(id)
			continue
		}
		tags[id] = ImageTag(data, img.Description)
	}

	resolved := TokenPattern.ReplaceAllStringFunc(text, func(token string) string {
		return tags[token[1:]]
	})

	if len(failed) > 0 {
		return resolved, fmt.Errorf("failed to load images: %s", strings.Join(failed, ", "))
	}
	return resolved, nil
}

// StripDangling removes tokens whose id is not among images, so the model is
// never asked about a screenshot it was not told about.
func StripDangling(text string, images []reports.StoredImage) string {
	byID := index(images)
	return TokenPattern.ReplaceAllStringFunc(text, func(token string) string {
		if _, ok := byID[token[1:]]; ok {
			return token
		}
		return ""
	})
}

// AttachmentSummary lists attached images for the model, one per line, as
// `{img-id: "description"}` under an [ATTACHED SCREENSHOTS] header. It is
// empty when nothing is attached.
func AttachmentSummary(images []reports.StoredImage) string {
	if len(images) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\n[ATTACHED SCREENSHOTS]")
	for _, img := range images {
		fmt.Fprintf(&b, "\n{%s: %q}", img.ID, img.Description)
	}
	return b.String()
}

// MediaURL builds a media:// URI for path, with an optional cache-busting
// parameter so an edited image reloads in the preview.
func MediaURL(path, bust string) string {
	u := URI(SchemeMedia, path)
	if bust != "" {
		u += "?t=" + url.QueryEscape(bust)
	}
	return u
}

// DecodeMediaPath turns a media:// URI, or the part after the scheme, back
// into an absolute path: the query string is dropped and the rest is
// URL-decoded.
func DecodeMediaPath(raw string) (string, error) {
	raw = strings.TrimPrefix(raw, string(SchemeMedia)+"://")
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[:i]
	}
	path, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("decode media path: %w", err)
	}
	if path == "" {
		return "", fmt.Errorf("empty media path")
	}
	return path, nil
}

var mediaURIPattern = regexp.MustCompile(`media://[^"'\s<>)]+`)

// RewriteMediaURIs points every media:// URI in text at an HTTP route that
// serves the file, as route?path=<query-escaped absolute path>. URIs that do
// not decode are left alone. A URI taken from an HTML attribute is
// entity-unescaped first, so "&amp;" in a path decodes back to "&".
func RewriteMediaURIs(text, route string) string {
	return mediaURIPattern.ReplaceAllStringFunc(text, func(uri string) string {
		path, err := DecodeMediaPath(html.UnescapeString(uri))
		if err != nil {
			return uri
		}
		return route + "?path=" + url.QueryEscape(path)
	})
}
