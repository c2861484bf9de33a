package generation

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"aireporter/internal/domain"
	domainllm "aireporter/internal/domain/services/llm"
)

// User-facing messages per failure kind
const (
	msgConfiguration = "Please configure your API key in Settings"
	msgRateLimit     = "Rate Limit Exceeded. Try another model or wait."
	msgModelNotFound = "Model not available. Please switch models."
	msgSafetyBlock   = "Blocked by safety filters. Review content."
	msgOverloaded    = "AI Service overloaded. Try again later."
	msgTimeout       = "Generation timed out. Try again later."
)

// maxUnknownLength is how much of an unclassified message is shown
const maxUnknownLength = 60

var (
	remoteMethodPrefix = regexp.MustCompile(`^Error invoking remote method '[^']*':\s*(?:Error:\s*)?`)
	bracketPrefix      = regexp.MustCompile(`^(?:\[[^\]]*\]\s*)+`)
)

// Classify converts any failure from the model call into a GenerationError.
// Typed upstream status wins; message substrings are the fallback for
// errors that carry no status.
func Classify(err error) *domain.GenerationError {
	if err == nil {
		return nil
	}

	var genErr *domain.GenerationError
	if errors.As(err, &genErr) {
		return genErr
	}

	if errors.Is(err, domainllm.ErrMissingAPIKey) {
		return &domain.GenerationError{Kind: domain.GenerationConfiguration, Message: msgConfiguration, Cause: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.GenerationError{Kind: domain.GenerationOverloaded, Message: msgTimeout, Cause: err}
	}

	var upstream *domainllm.UpstreamError
	if errors.As(err, &upstream) {
		if upstream.Blocked {
			return &domain.GenerationError{Kind: domain.GenerationSafetyBlock, Message: msgSafetyBlock, Cause: err}
		}
		switch upstream.StatusCode {
		case http.StatusTooManyRequests:
			return &domain.GenerationError{Kind: domain.GenerationRateLimit, Message: msgRateLimit, Cause: err}
		case http.StatusNotFound:
			return &domain.GenerationError{Kind: domain.GenerationModelNotFound, Message: msgModelNotFound, Cause: err}
		case http.StatusServiceUnavailable:
			return &domain.GenerationError{Kind: domain.GenerationOverloaded, Message: msgOverloaded, Cause: err}
		}
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "API_KEY"):
		return &domain.GenerationError{Kind: domain.GenerationConfiguration, Message: msgConfiguration, Cause: err}
	case strings.Contains(msg, "429") || strings.Contains(lower, "quota") || strings.Contains(lower, "too many requests"):
		return &domain.GenerationError{Kind: domain.GenerationRateLimit, Message: msgRateLimit, Cause: err}
	case strings.Contains(msg, "404") || strings.Contains(lower, "not found"):
		return &domain.GenerationError{Kind: domain.GenerationModelNotFound, Message: msgModelNotFound, Cause: err}
	case strings.Contains(lower, "safety") || strings.Contains(lower, "blocked"):
		return &domain.GenerationError{Kind: domain.GenerationSafetyBlock, Message: msgSafetyBlock, Cause: err}
	case strings.Contains(msg, "503") || strings.Contains(lower, "overloaded"):
		return &domain.GenerationError{Kind: domain.GenerationOverloaded, Message: msgOverloaded, Cause: err}
	}

	return &domain.GenerationError{Kind: domain.GenerationUnknown, Message: "Error: " + CleanMessage(msg), Cause: err}
}

// CleanMessage strips transport framing from an upstream message and cuts it
// to a displayable length.
func CleanMessage(msg string) string {
	msg = strings.TrimSpace(msg)
	msg = remoteMethodPrefix.ReplaceAllString(msg, "")
	msg = bracketPrefix.ReplaceAllString(msg, "")
	msg = strings.TrimSpace(msg)

	if utf8.RuneCountInString(msg) <= maxUnknownLength {
		return msg
	}
	return string([]rune(msg)[:maxUnknownLength]) + "..."
}
