package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
)

// MaxBodyBytes caps request bodies. Image uploads arrive as data URLs, so
// the limit is sized for screenshots rather than for text.
const MaxBodyBytes = 32 << 20

// ErrNotJSON is returned by ParseJSON when the request is not declared as
// application/json.
var ErrNotJSON = errors.New("content type must be application/json")

// ParseJSON decodes JSON from the request body into the given destination.
// The body must be declared as application/json, so a browser can only send
// it cross-origin after a CORS preflight. Validation is performed downstream
// by the services.
func ParseJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return ErrNotJSON
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	return nil
}

// ParseOptionalJSON is ParseJSON for endpoints whose body may be omitted.
// An empty body leaves dest untouched.
func ParseOptionalJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := ParseJSON(w, r, dest)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
