package embedder

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

var benchChunk = strings.Repeat("func (s *Server) handleRequest(ctx context.Context, req *Request) error {\n\treturn nil\n}\n", 10)

func BenchmarkLocalProvider(b *testing.B) {
	ctx := context.Background()

	b.Run("uncached", func(b *testing.B) {
		provider, _ := NewLocalProvider(nil)
		req := EmbeddingRequest{Text: benchChunk}
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			if _, err := provider.GenerateEmbedding(ctx, req); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("cached", func(b *testing.B) {
		provider, _ := NewLocalProvider(NewCache(16))
		req := EmbeddingRequest{Text: benchChunk}
		_, _ = provider.GenerateEmbedding(ctx, req)
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, err := provider.GenerateEmbedding(ctx, req); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("batch-50", func(b *testing.B) {
		provider, _ := NewLocalProvider(nil)
		texts := make([]string, DefaultBatchSize)
		for i := range texts {
			texts[i] = fmt.Sprintf("%s// chunk %d\n", benchChunk, i)
		}
		req := BatchEmbeddingRequest{Texts: texts}
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, err := provider.GenerateBatch(ctx, req); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func BenchmarkFeatures(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = Features(benchChunk)
	}
}

func BenchmarkConcurrentCache(b *testing.B) {
	cache := NewCache(1000)
	emb := &Embedding{Vector: make([]float32, LocalDimension), Dimension: LocalDimension}

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			key := fmt.Sprintf("hash-%d", i%2000)
			if i%3 == 0 {
				cache.Set(key, emb)
			} else {
				_, _ = cache.Get(key)
			}
			i++
		}
	})
}
