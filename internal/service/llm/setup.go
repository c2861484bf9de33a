package llm

import (
	"fmt"
	"log/slog"

	"aireporter/internal/config"
)

// SetupProviders initializes the provider factory and registry for routing.
// Returns a configured ProviderRegistry or an error if setup fails.
func SetupProviders(cfg *config.Config, logger *slog.Logger) (*ProviderRegistry, error) {
	registry := NewProviderRegistry(NewProviderFactory(cfg))

	if err := registry.Validate(); err != nil {
		return nil, fmt.Errorf("provider registry validation failed: %w", err)
	}

	if cfg.GeminiAPIKey != "" {
		logger.Info("provider available", "name", ProviderGemini, "models", "gemini-*")
	} else {
		logger.Warn("GEMINI_API_KEY not set - gemini needs a key saved in settings")
	}
	if cfg.AnthropicAPIKey != "" {
		logger.Info("provider available", "name", ProviderAnthropic, "models", "claude-*")
	}
	logger.Info("provider available", "name", ProviderLorem, "models", "lorem-*")

	return registry, nil
}
