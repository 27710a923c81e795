package embedder

import (
	"fmt"
	"os"
	"strings"
)

// Config holds embedder configuration
type Config struct {
	Provider  string `mapstructure:"provider"`
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	Model     string `mapstructure:"model"`
	CacheSize int    `mapstructure:"cache_size"`
}

// NewFromEnv creates an embedder based on environment variables
// Priority:
// 1. KTC_EMBEDDING_PROVIDER (openai, local)
// 2. OPENAI_API_KEY present selects openai
// 3. Default to local
func NewFromEnv() (Embedder, error) {
	return New(Config{
		Provider:  DetectProvider(),
		APIKey:    os.Getenv(EnvOpenAIAPIKey),
		CacheSize: DefaultCacheSize,
	})
}

// New creates an embedder with explicit configuration. An empty provider
// is resolved with DetectProvider.
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = DetectProvider()
	}

	switch provider {
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cache, WithBaseURL(cfg.BaseURL), WithModel(cfg.Model))
	case ProviderLocal:
		return NewLocalProvider(cache)
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
}

// DetectProvider returns the provider that would be used based on current environment
func DetectProvider() string {
	provider := os.Getenv(EnvProvider)
	if provider != "" {
		return strings.ToLower(provider)
	}

	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}

	return ProviderLocal
}
