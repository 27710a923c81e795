package retriever

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/knowthecode/internal/embedder"
	"github.com/dshills/knowthecode/internal/storage"
	"github.com/dshills/knowthecode/pkg/types"
)

// Mode defines how candidate chunks are found
type Mode string

const (
	ModeHybrid  Mode = "hybrid"  // Vector + BM25 with RRF
	ModeVector  Mode = "vector"  // Vector similarity only
	ModeKeyword Mode = "keyword" // BM25 text search only
)

// Request limits and defaults
const (
	DefaultTopK        = 5
	MaxTopK            = 100
	DefaultRRFConstant = 60
	DefaultCacheSize   = 1000
	DefaultCacheTTL    = time.Hour
)

var (
	// ErrEmptyQuery is returned for a blank question
	ErrEmptyQuery = errors.New("query cannot be empty")
	// ErrRepoNotFound is returned when the repository was never ingested
	ErrRepoNotFound = errors.New("repository not found")
	// ErrNoEmbedder is returned for vector retrieval without an embedder
	ErrNoEmbedder = errors.New("vector retrieval requires an embedder")
	// ErrUnsupportedMode is returned for an unknown Mode
	ErrUnsupportedMode = errors.New("unsupported retrieval mode")
)

// Request contains parameters for one retrieval
type Request struct {
	RepoID      string
	Query       string
	TopK        int
	Mode        Mode
	Filters     *storage.SearchFilters
	UseCache    bool
	RRFConstant float64 // k in 1/(k + rank)
}

// Response contains the ranked chunks and search metadata
type Response struct {
	Results       []types.SearchResult
	Mode          Mode
	Duration      time.Duration
	CacheHit      bool
	VectorResults int
	TextResults   int
}

// Chunks returns the result chunks in rank order
func (r *Response) Chunks() []types.Chunk {
	out := make([]types.Chunk, 0, len(r.Results))
	for _, res := range r.Results {
		if res.Chunk != nil {
			out = append(out, *res.Chunk)
		}
	}
	return out
}

type cacheEntry struct {
	response  *Response
	expiresAt time.Time
}

// Retriever finds the chunks of an ingested repository relevant to a question
type Retriever struct {
	storage  storage.Storage
	embedder embedder.Embedder
	logger   *slog.Logger
	cacheTTL time.Duration

	cacheMu sync.RWMutex
	cache   *lru.Cache[[32]byte, *cacheEntry]
}

// Option configures a Retriever
type Option func(*Retriever)

// WithLogger sets the structured logger
func WithLogger(l *slog.Logger) Option {
	return func(r *Retriever) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithCacheTTL sets how long cached responses stay valid
func WithCacheTTL(ttl time.Duration) Option {
	return func(r *Retriever) {
		if ttl > 0 {
			r.cacheTTL = ttl
		}
	}
}

// New creates a Retriever. emb may be nil, in which case only keyword
// retrieval is available and hybrid requests fall back to it.
func New(store storage.Storage, emb embedder.Embedder, opts ...Option) *Retriever {
	cache, err := lru.New[[32]byte, *cacheEntry](DefaultCacheSize)
	if err != nil {
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}

	r := &Retriever{
		storage:  store,
		embedder: emb,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		cacheTTL: DefaultCacheTTL,
		cache:    cache,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve returns the TopK chunks most relevant to req.Query
func (r *Retriever) Retrieve(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	if err := r.normalize(&req); err != nil {
		return nil, err
	}

	if req.UseCache {
		if cached := r.checkCache(req); cached != nil {
			cached.CacheHit = true
			cached.Duration = time.Since(start)
			return cached, nil
		}
	}

	exists, err := r.storage.RepoExists(ctx, req.RepoID)
	if err != nil {
		return nil, fmt.Errorf("failed to check repository: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrRepoNotFound, req.RepoID)
	}

	var resp *Response
	switch req.Mode {
	case ModeHybrid:
		resp, err = r.hybrid(ctx, req)
	case ModeVector:
		resp, err = r.vector(ctx, req)
	case ModeKeyword:
		resp, err = r.keyword(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	resp.Mode = req.Mode
	resp.Duration = time.Since(start)
	r.logger.Debug("retrieved",
		"repo", req.RepoID,
		"mode", string(req.Mode),
		"results", len(resp.Results),
		"vector", resp.VectorResults,
		"text", resp.TextResults,
		"duration", resp.Duration)

	if req.UseCache && len(resp.Results) > 0 {
		r.storeInCache(req, resp)
	}
	return resp, nil
}

// normalize validates req and fills in defaults
func (r *Retriever) normalize(req *Request) error {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return ErrEmptyQuery
	}
	if req.RepoID == "" {
		return fmt.Errorf("%w: empty repository id", ErrRepoNotFound)
	}

	if req.TopK <= 0 {
		req.TopK = DefaultTopK
	}
	if req.TopK > MaxTopK {
		req.TopK = MaxTopK
	}
	if req.RRFConstant <= 0 {
		req.RRFConstant = DefaultRRFConstant
	}

	switch req.Mode {
	case "":
		req.Mode = ModeHybrid
	case ModeHybrid, ModeVector, ModeKeyword:
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedMode, req.Mode)
	}

	if r.embedder == nil {
		switch req.Mode {
		case ModeVector:
			return ErrNoEmbedder
		case ModeHybrid:
			r.logger.Debug("no embedder, using keyword retrieval", "repo", req.RepoID)
			req.Mode = ModeKeyword
		}
	}
	return nil
}

// hybrid runs vector and text search concurrently and fuses them with RRF.
// One side may fail as long as the other succeeds.
func (r *Retriever) hybrid(ctx context.Context, req Request) (*Response, error) {
	var (
		vectorRes          []storage.VectorResult
		textRes            []storage.TextResult
		vectorErr, textErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vectorRes, vectorErr = r.searchVector(gctx, req, req.TopK*2)
		return nil
	})
	g.Go(func() error {
		textRes, textErr = r.storage.SearchText(gctx, req.RepoID, req.Query, req.TopK*2, req.Filters)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if vectorErr != nil && textErr != nil {
		return nil, fmt.Errorf("both searches failed: vector=%w, text=%v", vectorErr, textErr)
	}
	if vectorErr != nil {
		r.logger.Warn("vector search failed, using text results", "repo", req.RepoID, "error", vectorErr)
	}
	if textErr != nil && !errors.Is(textErr, storage.ErrEmptyQuery) {
		r.logger.Warn("text search failed, using vector results", "repo", req.RepoID, "error", textErr)
	}

	ranked := applyRRF(vectorRes, textRes, req.RRFConstant)
	results, err := r.fetchResults(ctx, req.RepoID, ranked, req.TopK)
	if err != nil {
		return nil, err
	}

	return &Response{
		Results:       results,
		VectorResults: len(vectorRes),
		TextResults:   len(textRes),
	}, nil
}

func (r *Retriever) vector(ctx context.Context, req Request) (*Response, error) {
	vectorRes, err := r.searchVector(ctx, req, req.TopK)
	if err != nil {
		return nil, err
	}

	ranked := make([]rankedResult, len(vectorRes))
	for i, vr := range vectorRes {
		ranked[i] = rankedResult{chunkID: vr.ChunkID, score: max(0, vr.SimilarityScore), rank: i + 1}
	}

	results, err := r.fetchResults(ctx, req.RepoID, ranked, req.TopK)
	if err != nil {
		return nil, err
	}
	return &Response{Results: results, VectorResults: len(vectorRes)}, nil
}

func (r *Retriever) keyword(ctx context.Context, req Request) (*Response, error) {
	textRes, err := r.storage.SearchText(ctx, req.RepoID, req.Query, req.TopK, req.Filters)
	if errors.Is(err, storage.ErrEmptyQuery) {
		// Nothing matchable, e.g. a query made only of punctuation
		return &Response{Results: []types.SearchResult{}}, nil
	}
	if err != nil {
		return nil, err
	}

	ranked := make([]rankedResult, len(textRes))
	for i, tr := range textRes {
		ranked[i] = rankedResult{chunkID: tr.ChunkID, score: tr.BM25Score, rank: i + 1}
	}

	results, err := r.fetchResults(ctx, req.RepoID, ranked, req.TopK)
	if err != nil {
		return nil, err
	}
	return &Response{Results: results, TextResults: len(textRes)}, nil
}

func (r *Retriever) searchVector(ctx context.Context, req Request, limit int) ([]storage.VectorResult, error) {
	emb, err := r.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: req.Query})
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}
	return r.storage.SearchVector(ctx, req.RepoID, emb.Vector, limit, req.Filters)
}

// rankedResult is a chunk with its fused score and 1-based rank
type rankedResult struct {
	chunkID string
	score   float64
	rank    int
}

// applyRRF merges the two rankings: RRF(d) = sum over lists of 1/(k + rank(d)).
// Ties are broken by chunk id so output order is deterministic.
func applyRRF(vectorRes []storage.VectorResult, textRes []storage.TextResult, k float64) []rankedResult {
	if k <= 0 {
		k = DefaultRRFConstant
	}

	scores := make(map[string]float64, len(vectorRes)+len(textRes))
	for rank, vr := range vectorRes {
		scores[vr.ChunkID] += 1.0 / (k + float64(rank+1))
	}
	for rank, tr := range textRes {
		scores[tr.ChunkID] += 1.0 / (k + float64(rank+1))
	}

	results := make([]rankedResult, 0, len(scores))
	for id, score := range scores {
		results = append(results, rankedResult{chunkID: id, score: score})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].chunkID < results[j].chunkID
	})
	for i := range results {
		results[i].rank = i + 1
	}
	return results
}

// fetchResults loads the chunks for the first limit ranked ids. Chunks
// deleted since the search ran are skipped and ranks are reassigned.
func (r *Retriever) fetchResults(ctx context.Context, repoID string, ranked []rankedResult, limit int) ([]types.SearchResult, error) {
	results := make([]types.SearchResult, 0, min(limit, len(ranked)))

	for _, rr := range ranked {
		if len(results) == limit {
			break
		}
		chunk, err := r.storage.GetChunk(ctx, repoID, rr.chunkID)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load chunk %s: %w", rr.chunkID, err)
		}

		c := chunk.Chunk
		results = append(results, types.SearchResult{
			Rank:           len(results) + 1,
			RelevanceScore: min(1, rr.score),
			Chunk:          &c,
		})
	}
	return results, nil
}

func (r *Retriever) checkCache(req Request) *Response {
	key := cacheKey(req)

	r.cacheMu.RLock()
	entry, ok := r.cache.Get(key)
	if !ok {
		r.cacheMu.RUnlock()
		return nil
	}
	if time.Now().After(entry.expiresAt) {
		r.cacheMu.RUnlock()
		r.cacheMu.Lock()
		r.cache.Remove(key)
		r.cacheMu.Unlock()
		return nil
	}
	resp := copyResponse(entry.response)
	r.cacheMu.RUnlock()
	return resp
}

func (r *Retriever) storeInCache(req Request, resp *Response) {
	entry := &cacheEntry{
		response:  copyResponse(resp),
		expiresAt: time.Now().Add(r.cacheTTL),
	}
	r.cacheMu.Lock()
	r.cache.Add(cacheKey(req), entry)
	r.cacheMu.Unlock()
}

// InvalidateCache drops every cached response. Call it after re-ingesting.
func (r *Retriever) InvalidateCache() {
	r.cacheMu.Lock()
	r.cache.Purge()
	r.cacheMu.Unlock()
}

func copyResponse(src *Response) *Response {
	dst := *src
	dst.Results = make([]types.SearchResult, len(src.Results))
	for i, res := range src.Results {
		dst.Results[i] = res
		if res.Chunk != nil {
			c := *res.Chunk
			dst.Results[i].Chunk = &c
		}
	}
	return &dst
}

// cacheKey hashes every request field that affects the result
func cacheKey(req Request) [32]byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s|%s|%s|%d|%g", req.RepoID, req.Mode, req.Query, req.TopK, req.RRFConstant)
	if f := req.Filters; f != nil {
		fmt.Fprintf(&sb, "|filters:%s|%s|%t|%.2f",
			strings.Join(f.Langs, ","), f.FilePattern, f.ExcludeFallback, f.MinRelevance)
	}
	return sha256.Sum256([]byte(sb.String()))
}
