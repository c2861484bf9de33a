package llm

import (
	"fmt"
	"strings"
)

// Provider names
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderLorem     = "lorem"
)

// ModelInfo contains parsed provider and model information
type ModelInfo struct {
	Provider string // Provider name: "gemini", "anthropic", "lorem"
	Model    string // Model identifier for that provider
}

// ParseModel extracts provider information from a model string
//
// Supported formats:
//   - "gemini-2.5-flash" → {Provider: "gemini", Model: "gemini-2.5-flash"}
//   - "claude-haiku-4-5" → {Provider: "anthropic", Model: "claude-haiku-4-5"}
//   - "lorem-fast" → {Provider: "lorem", Model: "lorem-fast"}
//   - "anthropic/claude-haiku-4-5" → {Provider: "anthropic", Model: "claude-haiku-4-5"}
//
// Rules:
//   - If model contains "/" → split on first "/" to extract provider
//   - Else → infer provider from model prefix, defaulting to gemini
func ParseModel(modelStr string) (*ModelInfo, error) {
	modelStr = strings.TrimSpace(modelStr)
	if modelStr == "" {
		return nil, fmt.Errorf("model string cannot be empty")
	}

	if provider, model, ok := strings.Cut(modelStr, "/"); ok {
		if provider == "" {
			return nil, fmt.Errorf("provider cannot be empty in model string: %s", modelStr)
		}
		if model == "" {
			return nil, fmt.Errorf("model cannot be empty in model string: %s", modelStr)
		}
		provider = strings.ToLower(provider)
		if !isKnownProvider(provider) {
			return nil, fmt.Errorf("unsupported provider: %s", provider)
		}
		return &ModelInfo{Provider: provider, Model: model}, nil
	}

	return &ModelInfo{
		Provider: inferProvider(modelStr),
		Model:    modelStr,
	}, nil
}

func isKnownProvider(name string) bool {
	switch name {
	case ProviderGemini, ProviderAnthropic, ProviderLorem:
		return true
	}
	return false
}

// inferProvider infers the provider from model name prefix
func inferProvider(model string) string {
	modelLower := strings.ToLower(model)

	if strings.HasPrefix(modelLower, "claude-") {
		return ProviderAnthropic
	}

	// Lorem mock provider (for testing)
	if strings.HasPrefix(modelLower, "lorem-") {
		return ProviderLorem
	}

	return ProviderGemini
}
