package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrMissingAPIKey is returned when the selected provider needs a key and none
// is configured in settings or the environment.
var ErrMissingAPIKey = errors.New("API_KEY_NOT_SET")

// Provider defines the interface that all LLM providers must implement.
// Generation is a single blocking call: one prompt in, one Markdown text out.
type Provider interface {
	// Generate sends the prompt to the model and returns the response text
	Generate(ctx context.Context, req *GenerateRequest) (string, error)

	// Name returns the provider name (e.g., "gemini", "anthropic")
	Name() string
}

// GenerateRequest contains the parameters for a generation request.
type GenerateRequest struct {
	Prompt string

	// Model is the provider's model identifier (e.g., "gemini-2.5-flash")
	Model string

	Temperature float64
}

// UpstreamError is a failure reported by the model provider. Providers map
// their SDK errors to it so callers can classify without knowing the SDK.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Message    string

	// Blocked is set when the provider refused on safety grounds
	Blocked bool
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: [%d] %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}
