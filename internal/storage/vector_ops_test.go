package storage

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupSearchData stores three chunks with 3-d embeddings
func setupSearchData(t *testing.T) *SQLiteStorage {
	t.Helper()
	storage := setupTestDB(t)
	ctx := context.Background()

	goFile := seedFile(t, storage, "demo", "server/handler.go")
	mdFile := seedFile(t, storage, "demo", "docs/guide.md")

	rows := []struct {
		chunk  *Chunk
		vector []float32
	}{
		{testChunk("demo", goFile.ID, "h1", "server/handler.go", "func ServeHTTP handles incoming requests\n", 1, 1), []float32{1, 0, 0}},
		{testChunk("demo", goFile.ID, "h2", "server/handler.go", "func parseToken validates the bearer token\n", 2, 2), []float32{0.7, 0.7, 0}},
		{testChunk("demo", mdFile.ID, "d1", "docs/guide.md", "# Guide\nHow requests reach the handler\n", 1, 2), []float32{0, 0, 1}},
	}
	rows[2].chunk.Lang = "markdown"
	rows[2].chunk.IsFallback = true

	for _, r := range rows {
		require.NoError(t, storage.UpsertChunk(ctx, r.chunk))
		require.NoError(t, storage.UpsertEmbedding(ctx, &Embedding{
			RepoID:    "demo",
			ChunkID:   r.chunk.ID,
			Vector:    SerializeVector(r.vector),
			Dimension: len(r.vector),
			Provider:  "local",
			Model:     "test",
		}))
	}
	return storage
}

func TestSearchVector_RanksByCosine(t *testing.T) {
	storage := setupSearchData(t)

	results, err := storage.SearchVector(context.Background(), "demo", []float32{1, 0, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "h1", results[0].ChunkID)
	assert.InDelta(t, 1.0, results[0].SimilarityScore, 1e-6)
	assert.Equal(t, "h2", results[1].ChunkID)
	assert.Equal(t, "d1", results[2].ChunkID)
}

func TestSearchVector_Filters(t *testing.T) {
	storage := setupSearchData(t)
	ctx := context.Background()
	query := []float32{1, 0, 0}

	tests := []struct {
		name    string
		filters *SearchFilters
		limit   int
		want    []string
	}{
		{"limit", nil, 1, []string{"h1"}},
		{"zero limit returns all", nil, 0, []string{"h1", "h2", "d1"}},
		{"lang", &SearchFilters{Langs: []string{"markdown"}}, 10, []string{"d1"}},
		{"file pattern", &SearchFilters{FilePattern: "server/*"}, 10, []string{"h1", "h2"}},
		{"exclude fallback", &SearchFilters{ExcludeFallback: true}, 10, []string{"h1", "h2"}},
		{"min relevance", &SearchFilters{MinRelevance: 0.5}, 10, []string{"h1", "h2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := storage.SearchVector(ctx, "demo", query, tt.limit, tt.filters)
			require.NoError(t, err)
			ids := make([]string, len(results))
			for i, r := range results {
				ids[i] = r.ChunkID
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestSearchVector_OtherRepoIsolated(t *testing.T) {
	storage := setupSearchData(t)

	results, err := storage.SearchVector(context.Background(), "other", []float32{1, 0, 0}, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchVector_SkipsDimensionMismatch(t *testing.T) {
	storage := setupSearchData(t)

	results, err := storage.SearchVector(context.Background(), "demo", []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchText(t *testing.T) {
	storage := setupSearchData(t)
	ctx := context.Background()

	results, err := storage.SearchText(ctx, "demo", "bearer token", 10, nil)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "h2", results[0].ChunkID)
	assert.Greater(t, results[0].BM25Score, 0.0)
	assert.LessOrEqual(t, results[0].BM25Score, 1.0)

	results, err = storage.SearchText(ctx, "demo", "requests", 10, &SearchFilters{Langs: []string{"markdown"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "d1", results[0].ChunkID)
}

func TestSearchText_FollowsChunkUpdates(t *testing.T) {
	storage := setupSearchData(t)
	ctx := context.Background()

	c, err := storage.GetChunk(ctx, "demo", "h1")
	require.NoError(t, err)
	c.Text = "func Shutdown drains connections\n"
	require.NoError(t, storage.UpsertChunk(ctx, c))

	results, err := storage.SearchText(ctx, "demo", "ServeHTTP", 10, nil)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = storage.SearchText(ctx, "demo", "drains", 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "h1", results[0].ChunkID)
}

func TestSearchText_HostileInput(t *testing.T) {
	storage := setupSearchData(t)
	ctx := context.Background()

	// FTS5 operators and quotes are neutralised
	_, err := storage.SearchText(ctx, "demo", `token" OR NOT (x* NEAR y)`, 10, nil)
	assert.NoError(t, err)

	_, err = storage.SearchText(ctx, "demo", "  ()*\"  ", 10, nil)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSanitizeFTSQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"hello", `"hello"`},
		{"parse token", `"parse" OR "token"`},
		{"Token token", `"Token"`},
		{`a"b`, `"a" OR "b"`},
		{"snake_case AND x", `"snake_case" OR "AND" OR "x"`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFTSQuery(tt.in), tt.in)
	}
}

func TestVectorSerialization(t *testing.T) {
	v := []float32{0, 1.5, -2.25, float32(math.Pi)}
	assert.Equal(t, v, DeserializeVector(SerializeVector(v)))
	assert.Len(t, SerializeVector(v), 16)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, []float32{1, 1}))
}
