package images

import (
	"encoding/base64"
	"fmt"
	"math/rand/v2"
	"mime"
	"regexp"
	"strings"

	"aireporter/internal/config"
	"aireporter/internal/domain"
)

// DefaultDescription replaces descriptions that sanitize to nothing.
const DefaultDescription = "Screenshot"

var (
	disallowedChars = regexp.MustCompile(`[^\p{L}\p{N}\s.,!?()\-]`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
	dataURLPattern  = regexp.MustCompile(`^data:image/([a-zA-Z0-9.+-]+);base64,`)
)

// SanitizeDescription keeps letters, digits, whitespace and .,!?()- then
// collapses whitespace and caps the result at 100 characters.
func SanitizeDescription(desc string) string {
	clean := disallowedChars.ReplaceAllString(desc, "")
	clean = strings.TrimSpace(whitespaceRun.ReplaceAllString(clean, " "))

	if runes := []rune(clean); len(runes) > config.MaxImageDescriptionLength {
		clean = strings.TrimSpace(string(runes[:config.MaxImageDescriptionLength]))
	}
	if clean == "" {
		return DefaultDescription
	}
	return clean
}

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewID returns "img-" followed by six lowercase base36 characters.
func NewID() string {
	var b strings.Builder
	b.WriteString("img-")
	for i := 0; i < 6; i++ {
		b.WriteByte(idAlphabet[rand.IntN(len(idAlphabet))])
	}
	return b.String()
}

// decodeDataURL splits a base64 image data URL into its bytes and the file
// extension to store it under. jpeg is stored as jpg.
func decodeDataURL(dataURL string) ([]byte, string, error) {
	m := dataURLPattern.FindStringSubmatch(dataURL)
	if m == nil {
		return nil, "", &domain.ValidationError{Message: "image must be a base64 data URL"}
	}

	ext := strings.ToLower(m[1])
	if i := strings.IndexByte(ext, '+'); i >= 0 {
		ext = ext[:i]
	}
	if ext == "jpeg" {
		ext = "jpg"
	}

	data, err := base64.StdEncoding.DecodeString(dataURL[len(m[0]):])
	if err != nil {
		return nil, "", &domain.ValidationError{Message: fmt.Sprintf("invalid base64 image data: %v", err)}
	}
	if len(data) == 0 {
		return nil, "", &domain.ValidationError{Message: "image data is empty"}
	}
	if len(data) > config.MaxImageBytes {
		return nil, "", &domain.ValidationError{Message: fmt.Sprintf("image exceeds %d bytes", config.MaxImageBytes)}
	}
	return data, ext, nil
}

// encodeDataURL builds a data URL, deriving the mime type from ext.
func encodeDataURL(ext string, data []byte) string {
	mimeType := mime.TypeByExtension("." + ext)
	if mimeType == "" || !strings.HasPrefix(mimeType, "image/") {
		if ext == "jpg" {
			ext = "jpeg"
		}
		mimeType = "image/" + ext
	}
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
