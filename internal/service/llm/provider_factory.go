package llm

import (
	"context"
	"fmt"

	"aireporter/internal/config"
	domainllm "aireporter/internal/domain/services/llm"
	"aireporter/internal/service/llm/providers/anthropic"
	"aireporter/internal/service/llm/providers/gemini"
	"aireporter/internal/service/llm/providers/lorem"
)

// ProviderFactory creates provider instances and decides which API key each
// one uses.
type ProviderFactory struct {
	config *config.Config
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(cfg *config.Config) *ProviderFactory {
	return &ProviderFactory{
		config: cfg,
	}
}

// ResolveKey picks the API key for a provider. The key saved in settings
// wins; the environment key for that provider is the fallback. Lorem needs
// no key.
func (f *ProviderFactory) ResolveKey(providerName, settingsKey string) string {
	if providerName == ProviderLorem {
		return ""
	}
	if settingsKey != "" {
		return settingsKey
	}
	switch providerName {
	case ProviderGemini:
		return f.config.GeminiAPIKey
	case ProviderAnthropic:
		return f.config.AnthropicAPIKey
	}
	return ""
}

// GetProvider returns a new provider instance for the given provider name
//
// Supported providers:
//   - "gemini" - Google Gemini models (default)
//   - "anthropic" - Claude models via Anthropic API
//   - "lorem" - Mock provider for testing (no API key required)
func (f *ProviderFactory) GetProvider(ctx context.Context, providerName, apiKey string) (domainllm.Provider, error) {
	switch providerName {
	case ProviderGemini:
		if apiKey == "" {
			return nil, domainllm.ErrMissingAPIKey
		}
		return gemini.NewProvider(ctx, apiKey)

	case ProviderAnthropic:
		if apiKey == "" {
			return nil, domainllm.ErrMissingAPIKey
		}
		return anthropic.NewProvider(apiKey)

	case ProviderLorem:
		return lorem.NewProvider(), nil

	default:
		return nil, fmt.Errorf("unsupported provider: %s", providerName)
	}
}
