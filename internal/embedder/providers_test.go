package embedder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = RetryConfig{
	MaxRetries: 3,
	BaseDelay:  time.Millisecond,
	MaxDelay:   5 * time.Millisecond,
	Multiplier: 2.0,
}

// embeddingServer answers like the embeddings endpoint, returning data in
// reverse order. failures makes the first n calls return status.
func embeddingServer(t *testing.T, failures int32, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		if n <= failures {
			http.Error(w, `{"error":"nope"}`, status)
			return
		}

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		type item struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		data := make([]item, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, item{Index: i, Embedding: []float32{float32(len(req.Input[i])), 1}})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"model": req.Model, "data": data})
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func newTestOpenAI(t *testing.T, url string, cache *Cache) *OpenAIProvider {
	t.Helper()
	p, err := NewOpenAIProvider("test-key", cache, WithBaseURL(url+"/"), WithRetryConfig(fastRetry))
	require.NoError(t, err)
	return p
}

func TestOpenAIProvider(t *testing.T) {
	t.Run("batch preserves input order", func(t *testing.T) {
		server, calls := embeddingServer(t, 0, 0)
		p := newTestOpenAI(t, server.URL, nil)

		resp, err := p.GenerateBatch(context.Background(), BatchEmbeddingRequest{Texts: []string{"a", "bbb", "cc"}})
		require.NoError(t, err)
		require.Len(t, resp.Embeddings, 3)
		assert.Equal(t, float32(1), resp.Embeddings[0].Vector[0])
		assert.Equal(t, float32(3), resp.Embeddings[1].Vector[0])
		assert.Equal(t, float32(2), resp.Embeddings[2].Vector[0])
		assert.Equal(t, ProviderOpenAI, resp.Provider)
		assert.Equal(t, DefaultOpenAIModel, resp.Model)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("single embedding", func(t *testing.T) {
		server, _ := embeddingServer(t, 0, 0)
		p := newTestOpenAI(t, server.URL, nil)

		emb, err := p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "hello"})
		require.NoError(t, err)
		assert.Equal(t, []float32{5, 1}, emb.Vector)
		assert.Equal(t, 2, emb.Dimension)
		assert.Equal(t, ComputeHash("hello"), emb.Hash)
	})

	t.Run("cache avoids repeat calls", func(t *testing.T) {
		server, calls := embeddingServer(t, 0, 0)
		p := newTestOpenAI(t, server.URL, NewCache(10))
		ctx := context.Background()

		_, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "cached"})
		require.NoError(t, err)
		_, err = p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "cached"})
		require.NoError(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("metadata", func(t *testing.T) {
		p, err := NewOpenAIProvider("test-key", nil, WithModel("text-embedding-3-large"))
		require.NoError(t, err)
		defer func() { _ = p.Close() }()

		assert.Equal(t, ProviderOpenAI, p.Provider())
		assert.Equal(t, "text-embedding-3-large", p.Model())
		assert.Equal(t, OpenAIDimension, p.Dimension())
	})

	t.Run("missing key", func(t *testing.T) {
		t.Setenv(EnvOpenAIAPIKey, "")
		_, err := NewOpenAIProvider("", nil)
		assert.ErrorIs(t, err, ErrNoProviderEnabled)
	})

	t.Run("batch too large", func(t *testing.T) {
		p, err := NewOpenAIProvider("test-key", nil)
		require.NoError(t, err)

		texts := make([]string, MaxBatchSize+1)
		for i := range texts {
			texts[i] = fmt.Sprintf("t%d", i)
		}
		_, err = p.GenerateBatch(context.Background(), BatchEmbeddingRequest{Texts: texts})
		assert.ErrorIs(t, err, ErrBatchTooLarge)
	})
}

func TestOpenAIProvider_Retry(t *testing.T) {
	t.Run("recovers from server errors", func(t *testing.T) {
		server, calls := embeddingServer(t, 2, http.StatusInternalServerError)
		p := newTestOpenAI(t, server.URL, nil)

		_, err := p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "x"})
		require.NoError(t, err)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("rate limiting is retried", func(t *testing.T) {
		server, calls := embeddingServer(t, 1, http.StatusTooManyRequests)
		p := newTestOpenAI(t, server.URL, nil)

		_, err := p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "x"})
		require.NoError(t, err)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		server, calls := embeddingServer(t, 10, http.StatusUnauthorized)
		p := newTestOpenAI(t, server.URL, nil)

		_, err := p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "x"})
		assert.ErrorIs(t, err, ErrProviderFailed)
		assert.Contains(t, err.Error(), "401")
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		server, calls := embeddingServer(t, 10, http.StatusBadGateway)
		p := newTestOpenAI(t, server.URL, nil)

		_, err := p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "x"})
		assert.ErrorIs(t, err, ErrProviderFailed)
		assert.Equal(t, int32(fastRetry.MaxRetries), calls.Load())
	})
}

func TestRetryWithBackoff(t *testing.T) {
	t.Run("succeeds after transient error", func(t *testing.T) {
		callCount := 0
		result, err := retryWithBackoff(context.Background(), fastRetry, func() (string, error) {
			callCount++
			if callCount < 2 {
				return "", fmt.Errorf("transient error")
			}
			return "success", nil
		})
		assert.NoError(t, err)
		assert.Equal(t, "success", result)
		assert.Equal(t, 2, callCount)
	})

	t.Run("exponential backoff timing", func(t *testing.T) {
		config := RetryConfig{
			MaxRetries: 3,
			BaseDelay:  10 * time.Millisecond,
			MaxDelay:   100 * time.Millisecond,
			Multiplier: 2.0,
		}

		callCount := 0
		start := time.Now()
		_, err := retryWithBackoff(context.Background(), config, func() (int, error) {
			callCount++
			return 0, fmt.Errorf("always fails")
		})

		assert.Error(t, err)
		assert.Equal(t, 3, callCount)
		// 10ms + 20ms between the three attempts
		assert.GreaterOrEqual(t, time.Since(start).Milliseconds(), int64(30))
	})

	t.Run("returns last error", func(t *testing.T) {
		callCount := 0
		_, err := retryWithBackoff(context.Background(), fastRetry, func() (bool, error) {
			callCount++
			return false, fmt.Errorf("error %d", callCount)
		})
		assert.EqualError(t, err, "error 3")
	})

	t.Run("permanent error stops immediately", func(t *testing.T) {
		sentinel := errors.New("bad request")
		callCount := 0
		_, err := retryWithBackoff(context.Background(), fastRetry, func() (int, error) {
			callCount++
			return 0, permanent(sentinel)
		})
		assert.ErrorIs(t, err, sentinel)
		assert.Equal(t, 1, callCount)
	})

	t.Run("zero retries still attempts once", func(t *testing.T) {
		callCount := 0
		_, err := retryWithBackoff(context.Background(), RetryConfig{}, func() (int, error) {
			callCount++
			return 1, nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 1, callCount)
	})

	t.Run("context cancellation during backoff", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		config := RetryConfig{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: time.Second, Multiplier: 1}

		callCount := 0
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		start := time.Now()
		_, err := retryWithBackoff(ctx, config, func() (int, error) {
			callCount++
			return 0, fmt.Errorf("fail")
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, callCount)
		assert.Less(t, time.Since(start), 500*time.Millisecond)
	})
}
