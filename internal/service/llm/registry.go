package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	domainllm "aireporter/internal/domain/services/llm"
)

// ProviderRegistry routes a model string to a provider instance. Instances are
// cached per provider and key, so saving a new key in settings takes effect
// on the next generation without a restart.
type ProviderRegistry struct {
	factory *ProviderFactory
	cache   map[string]domainllm.Provider
	mu      sync.RWMutex
}

// NewProviderRegistry creates a new provider registry.
func NewProviderRegistry(factory *ProviderFactory) *ProviderRegistry {
	return &ProviderRegistry{
		factory: factory,
		cache:   make(map[string]domainllm.Provider),
	}
}

// Resolve parses the model string and returns the provider that serves it,
// with the provider-specific model id. A provider that needs a key and has
// none yields ErrMissingAPIKey.
func (r *ProviderRegistry) Resolve(ctx context.Context, modelStr, settingsKey string) (domainllm.Provider, string, error) {
	info, err := ParseModel(modelStr)
	if err != nil {
		return nil, "", err
	}

	provider, err := r.GetProvider(ctx, info.Provider, r.factory.ResolveKey(info.Provider, settingsKey))
	if err != nil {
		return nil, "", err
	}
	return provider, info.Model, nil
}

// GetProvider returns the cached provider for name and key, creating it on
// first use.
func (r *ProviderRegistry) GetProvider(ctx context.Context, name, apiKey string) (domainllm.Provider, error) {
	if name == "" {
		return nil, fmt.Errorf("provider cannot be empty")
	}
	cacheKey := name + ":" + fingerprint(apiKey)

	// Fast path: check cache with read lock
	r.mu.RLock()
	if cached, exists := r.cache[cacheKey]; exists {
		r.mu.RUnlock()
		return cached, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another goroutine may have created the provider while we waited for the lock
	if cached, exists := r.cache[cacheKey]; exists {
		return cached, nil
	}

	provider, err := r.factory.GetProvider(ctx, name, apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider '%s': %w", name, err)
	}

	// Drop instances built with an older key for the same provider
	for k := range r.cache {
		if len(k) > len(name) && k[:len(name)+1] == name+":" {
			delete(r.cache, k)
		}
	}
	r.cache[cacheKey] = provider

	return provider, nil
}

// Validate checks if the factory is properly configured.
// Should be called at startup to fail fast if misconfigured.
func (r *ProviderRegistry) Validate() error {
	if r.factory == nil {
		return fmt.Errorf("provider factory is not configured")
	}
	return nil
}

func fingerprint(key string) string {
	if key == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}

// ResolveKey reports the key a provider would be created with, so callers
// can tell whether it is usable without creating it.
func (r *ProviderRegistry) ResolveKey(providerName, settingsKey string) string {
	return r.factory.ResolveKey(providerName, settingsKey)
}
