package embedder

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// LocalProvider embeds text offline by hashing identifier features into a
// fixed-size vector. Texts sharing identifiers land near each other, which
// is enough for retrieval over a single repository without network access.
type LocalProvider struct {
	model     string
	dimension int
	cache     *Cache
}

// NewLocalProvider creates a new local embedder
func NewLocalProvider(cache *Cache) (*LocalProvider, error) {
	return &LocalProvider{
		model:     DefaultLocalModel,
		dimension: LocalDimension,
		cache:     cache,
	}, nil
}

func (l *LocalProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	resp, err := l.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{req.Text}, Model: req.Model})
	if err != nil {
		return nil, err
	}
	return resp.Embeddings[0], nil
}

func (l *LocalProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	embeddings, err := embedCached(l.cache, l.model, req.Texts, func(texts []string) ([]*Embedding, error) {
		out := make([]*Embedding, len(texts))
		for i, text := range texts {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			out[i] = &Embedding{
				Vector:    l.embed(text),
				Dimension: l.dimension,
				Provider:  ProviderLocal,
				Model:     l.model,
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("local embedding: %w", err)
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderLocal,
		Model:      l.model,
	}, nil
}

// embed hashes each feature into a signed bucket and L2-normalizes the sum
func (l *LocalProvider) embed(text string) []float32 {
	vector := make([]float32, l.dimension)
	features := Features(text)
	if len(features) == 0 {
		features = []string{strings.TrimSpace(text)}
	}

	for _, f := range features {
		h := fnv.New64a()
		_, _ = h.Write([]byte(f))
		sum := h.Sum64()
		idx := int(sum % uint64(l.dimension))
		if sum>>63 == 1 {
			vector[idx]--
		} else {
			vector[idx]++
		}
	}

	return NormalizeVector(vector)
}

func (l *LocalProvider) Dimension() int {
	return l.dimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return l.model
}

func (l *LocalProvider) Close() error {
	return nil
}

// Features splits text into lowercase identifier features. Each word is
// kept whole and also broken at camelCase, snake_case and digit boundaries,
// so "parseToken" yields "parsetoken", "parse" and "token".
func Features(text string) []string {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	features := make([]string, 0, len(words)*2)
	for _, w := range words {
		lw := strings.ToLower(w)
		features = append(features, lw)
		parts := splitIdentifier(w)
		if len(parts) > 1 {
			for _, p := range parts {
				features = append(features, strings.ToLower(p))
			}
		}
	}
	return features
}

// splitIdentifier breaks a word at lower-to-upper and letter-digit changes
func splitIdentifier(w string) []string {
	runes := []rune(w)
	var parts []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		boundary := (unicode.IsLower(prev) && unicode.IsUpper(cur)) ||
			(unicode.IsLetter(prev) && unicode.IsDigit(cur)) ||
			(unicode.IsDigit(prev) && unicode.IsLetter(cur)) ||
			// "HTTPServer" splits before the last capital of an acronym
			(i+1 < len(runes) && unicode.IsUpper(prev) && unicode.IsUpper(cur) && unicode.IsLower(runes[i+1]))
		if boundary {
			parts = append(parts, string(runes[start:i]))
			start = i
		}
	}
	return append(parts, string(runes[start:]))
}

// NormalizeVector normalizes a vector to unit length (for cosine similarity)
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val * val)
	}

	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}

	return result
}
