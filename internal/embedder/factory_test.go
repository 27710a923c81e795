package embedder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectProvider(t *testing.T) {
	tests := []struct {
		name      string
		provider  string
		openaiKey string
		want      string
	}{
		{"explicit openai", "openai", "", ProviderOpenAI},
		{"explicit local with key present", "local", "sk-test", ProviderLocal},
		{"explicit mixed case", "OpenAI", "", ProviderOpenAI},
		{"key present", "", "sk-test", ProviderOpenAI},
		{"nothing set", "", "", ProviderLocal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvProvider, tt.provider)
			t.Setenv(EnvOpenAIAPIKey, tt.openaiKey)
			assert.Equal(t, tt.want, DetectProvider())
		})
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Run("defaults to local", func(t *testing.T) {
		t.Setenv(EnvProvider, "")
		t.Setenv(EnvOpenAIAPIKey, "")

		emb, err := NewFromEnv()
		require.NoError(t, err)
		defer func() { _ = emb.Close() }()
		assert.Equal(t, ProviderLocal, emb.Provider())
	})

	t.Run("openai from key", func(t *testing.T) {
		t.Setenv(EnvProvider, "")
		t.Setenv(EnvOpenAIAPIKey, "sk-test")

		emb, err := NewFromEnv()
		require.NoError(t, err)
		assert.Equal(t, ProviderOpenAI, emb.Provider())
	})

	t.Run("openai without key fails", func(t *testing.T) {
		t.Setenv(EnvProvider, "openai")
		t.Setenv(EnvOpenAIAPIKey, "")

		_, err := NewFromEnv()
		assert.ErrorIs(t, err, ErrNoProviderEnabled)
	})

	t.Run("unknown provider", func(t *testing.T) {
		t.Setenv(EnvProvider, "jina")

		_, err := NewFromEnv()
		assert.ErrorIs(t, err, ErrUnsupportedModel)
	})
}

func TestNew(t *testing.T) {
	t.Setenv(EnvProvider, "")
	t.Setenv(EnvOpenAIAPIKey, "")

	tests := []struct {
		name    string
		cfg     Config
		want    string
		wantErr error
	}{
		{"local", Config{Provider: "local", CacheSize: 10}, ProviderLocal, nil},
		{"empty provider detects", Config{}, ProviderLocal, nil},
		{"openai with key", Config{Provider: "openai", APIKey: "sk-test", Model: "m"}, ProviderOpenAI, nil},
		{"openai without key", Config{Provider: "openai"}, "", ErrNoProviderEnabled},
		{"invalid", Config{Provider: "bogus"}, "", ErrUnsupportedModel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emb, err := New(tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, emb.Provider())
		})
	}
}
