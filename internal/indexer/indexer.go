package indexer

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/knowthecode/internal/chunker"
	"github.com/dshills/knowthecode/internal/embedder"
	"github.com/dshills/knowthecode/internal/reader"
	"github.com/dshills/knowthecode/internal/storage"
	"github.com/dshills/knowthecode/pkg/types"
)

// Defaults applied by Config normalization
const (
	DefaultBatchSize   = 20
	DefaultFileTimeout = 30 * time.Second
)

var (
	// ErrIndexInProgress is returned when the repo is already being indexed
	ErrIndexInProgress = errors.New("indexing already in progress")
	// ErrEmptyRepoID is returned when no repository id is given
	ErrEmptyRepoID = errors.New("repository id is required")
)

// Indexer coordinates the ingest pipeline: chunk -> embed -> store
type Indexer struct {
	chunker  *chunker.Chunker
	embedder embedder.Embedder
	storage  storage.Storage
	logger   *slog.Logger

	mu    sync.Mutex
	locks map[string]*IndexLock
}

// Option configures an Indexer
type Option func(*Indexer)

// WithChunker replaces the default chunker
func WithChunker(c *chunker.Chunker) Option {
	return func(idx *Indexer) {
		if c != nil {
			idx.chunker = c
		}
	}
}

// WithLogger sets the structured logger
func WithLogger(l *slog.Logger) Option {
	return func(idx *Indexer) {
		if l != nil {
			idx.logger = l
		}
	}
}

// Config contains configuration for one ingest
type Config struct {
	Workers        int           `mapstructure:"workers"`          // Concurrent chunking workers (default: runtime.NumCPU())
	BatchSize      int           `mapstructure:"batch_size"`       // Files committed per transaction (default: 20)
	EmbedBatchSize int           `mapstructure:"embed_batch_size"` // Texts per embedding request (default: embedder.DefaultBatchSize)
	FileTimeout    time.Duration `mapstructure:"file_timeout"`     // Structural parse limit per file
	MaxFileBytes   int64         `mapstructure:"max_file_bytes"`   // Reader size limit for IndexRepo
	Force          bool          // Re-chunk files whose content hash is unchanged
	Prune          bool          // Delete stored files that are absent from the input
	RootPath       string        // Recorded on the repo
	URL            string        // Recorded on the repo
}

// DefaultConfig returns the default ingest configuration
func DefaultConfig() *Config {
	return &Config{
		Workers:        runtime.NumCPU(),
		BatchSize:      DefaultBatchSize,
		EmbedBatchSize: embedder.DefaultBatchSize,
		FileTimeout:    DefaultFileTimeout,
		MaxFileBytes:   reader.DefaultMaxFileBytes,
	}
}

func (c *Config) normalize() *Config {
	out := DefaultConfig()
	if c == nil {
		return out
	}
	cp := *c
	if cp.Workers <= 0 {
		cp.Workers = out.Workers
	}
	if cp.BatchSize <= 0 {
		cp.BatchSize = out.BatchSize
	}
	if cp.EmbedBatchSize <= 0 || cp.EmbedBatchSize > embedder.MaxBatchSize {
		cp.EmbedBatchSize = out.EmbedBatchSize
	}
	if cp.FileTimeout <= 0 {
		cp.FileTimeout = out.FileTimeout
	}
	if cp.MaxFileBytes <= 0 {
		cp.MaxFileBytes = out.MaxFileBytes
	}
	return &cp
}

// Statistics contains statistics about the indexing operation
type Statistics struct {
	RunID             string
	FilesIndexed      int
	FilesSkipped      int
	FilesFailed       int
	FilesRemoved      int
	ChunksCreated     int
	EmbeddingsCreated int
	Summary           chunker.Summary // Strategy counters of the files indexed in this run
	Duration          time.Duration
	ErrorMessages     []string
}

// fileWork is one input file on its way through the pipeline
type fileWork struct {
	rec      types.FileRecord
	hash     [32]byte
	existing *storage.File
	result   chunker.Result
}

// New creates a new Indexer. emb may be nil, in which case chunks are
// stored without embeddings.
func New(store storage.Storage, emb embedder.Embedder, opts ...Option) *Indexer {
	idx := &Indexer{
		chunker:  chunker.New(),
		embedder: emb,
		storage:  store,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		locks:    make(map[string]*IndexLock),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Chunker returns the chunker used for ingest
func (idx *Indexer) Chunker() *chunker.Chunker {
	return idx.chunker
}

// IndexRepo reads every supported file under root and indexes it as repoID.
// Files previously stored for the repo but no longer present are removed.
func (idx *Indexer) IndexRepo(ctx context.Context, repoID, root string, config *Config) (*Statistics, error) {
	cfg := config.normalize()
	records, err := reader.ReadRepo(ctx, root, reader.Options{
		MaxFileBytes: cfg.MaxFileBytes,
		Logger:       idx.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read repository: %w", err)
	}

	if cfg.RootPath == "" {
		cfg.RootPath = root
	}
	cfg.Prune = true
	return idx.IndexRecords(ctx, repoID, records, cfg)
}

// IndexRecords chunks, embeds and stores records under repoID. Unchanged
// files are skipped by content hash. The returned Statistics are non-nil
// whenever a run was recorded, even if err is set.
func (idx *Indexer) IndexRecords(ctx context.Context, repoID string, records []types.FileRecord, config *Config) (*Statistics, error) {
	if repoID == "" {
		return nil, ErrEmptyRepoID
	}
	cfg := config.normalize()

	lock := idx.lockFor(repoID)
	if !lock.TryAcquire() {
		return nil, fmt.Errorf("%w: %s", ErrIndexInProgress, repoID)
	}
	defer lock.Release()

	startTime := time.Now()

	repo, err := idx.getOrCreateRepo(ctx, repoID, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create repo: %w", err)
	}

	run := &storage.Run{RepoID: repoID}
	if err := idx.storage.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create ingest run: %w", err)
	}

	stats := &Statistics{
		RunID:         run.ID,
		ErrorMessages: make([]string, 0),
	}
	idx.logger.Info("indexing started", "repo", repoID, "run", run.ID, "files", len(records))

	err = idx.index(ctx, repo, records, cfg, stats)
	if err == nil {
		err = idx.updateRepoStats(ctx, repo)
	}
	stats.Duration = time.Since(startTime)

	// Record the outcome even when ctx was cancelled
	if ferr := idx.finishRun(context.WithoutCancel(ctx), run, stats, err); ferr != nil && err == nil {
		err = fmt.Errorf("failed to finish ingest run: %w", ferr)
	}

	if err != nil {
		idx.logger.Error("indexing failed", "repo", repoID, "run", run.ID, "error", err)
		return stats, err
	}

	idx.logger.Info("indexing complete",
		"repo", repoID,
		"run", run.ID,
		"indexed", stats.FilesIndexed,
		"skipped", stats.FilesSkipped,
		"failed", stats.FilesFailed,
		"removed", stats.FilesRemoved,
		"chunks", stats.ChunksCreated,
		"fallback_files", stats.Summary.Fallbacks(),
		"duration", stats.Duration)
	return stats, nil
}

// index runs the chunk phase concurrently, then persists in batches
func (idx *Indexer) index(ctx context.Context, repo *storage.Repo, records []types.FileRecord, cfg *Config, stats *Statistics) error {
	files, err := idx.storage.ListFiles(ctx, repo.ID)
	if err != nil {
		return fmt.Errorf("failed to list stored files: %w", err)
	}
	existing := make(map[string]*storage.File, len(files))
	for _, f := range files {
		existing[f.FilePath] = f
	}

	records = idx.dedupe(records, stats)

	work, err := idx.chunkFiles(ctx, records, existing, cfg, stats)
	if err != nil {
		return err
	}

	for i := 0; i < len(work); i += cfg.BatchSize {
		end := min(i+cfg.BatchSize, len(work))
		if err := idx.persistBatch(ctx, repo.ID, work[i:end], cfg, stats); err != nil {
			return err
		}
	}

	if cfg.Prune {
		return idx.prune(ctx, records, existing, stats)
	}
	return nil
}

// dedupe drops repeated paths, keeping the first occurrence
func (idx *Indexer) dedupe(records []types.FileRecord, stats *Statistics) []types.FileRecord {
	seen := make(map[string]bool, len(records))
	out := make([]types.FileRecord, 0, len(records))
	for _, rec := range records {
		if seen[rec.Path] {
			stats.FilesFailed++
			stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: duplicate path", rec.Path))
			continue
		}
		seen[rec.Path] = true
		out = append(out, rec)
	}
	return out
}

// chunkFiles hashes every record and chunks the changed ones on a bounded
// worker pool. The result keeps input order.
func (idx *Indexer) chunkFiles(ctx context.Context, records []types.FileRecord, existing map[string]*storage.File, cfg *Config, stats *Statistics) ([]*fileWork, error) {
	slots := make([]*fileWork, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)

	for i, rec := range records {
		hash := sha256.Sum256([]byte(rec.Content))
		prev := existing[rec.Path]
		if prev != nil && prev.ContentHash == hash && !cfg.Force {
			stats.FilesSkipped++
			continue
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fctx, cancel := context.WithTimeout(gctx, cfg.FileTimeout)
			defer cancel()

			slots[i] = &fileWork{
				rec:      rec,
				hash:     hash,
				existing: prev,
				result:   idx.chunker.Chunk(fctx, rec),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	work := make([]*fileWork, 0, len(slots))
	for _, w := range slots {
		if w != nil {
			work = append(work, w)
		}
	}
	return work, nil
}

// persistBatch embeds the chunks of a batch and stores them in one transaction
func (idx *Indexer) persistBatch(ctx context.Context, repoID string, batch []*fileWork, cfg *Config, stats *Statistics) error {
	vectors, err := idx.embedBatch(ctx, batch, cfg)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		for _, w := range batch {
			stats.FilesFailed++
			stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", w.rec.Path, err))
		}
		idx.logger.Warn("embedding failed, batch skipped", "repo", repoID, "files", len(batch), "error", err)
		return nil
	}

	tx, err := idx.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	type stored struct {
		w          *fileWork
		chunks     int
		embeddings int
	}
	done := make([]stored, 0, len(batch))

	for _, w := range batch {
		if err := validateChunks(w.result.Chunks); err != nil {
			stats.FilesFailed++
			stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", w.rec.Path, err))
			continue
		}

		chunks, embeddings, err := idx.storeFile(ctx, tx, repoID, w, vectors)
		if err != nil {
			return fmt.Errorf("failed to store %s: %w", w.rec.Path, err)
		}
		done = append(done, stored{w: w, chunks: chunks, embeddings: embeddings})
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	for _, s := range done {
		stats.FilesIndexed++
		stats.ChunksCreated += s.chunks
		stats.EmbeddingsCreated += s.embeddings
		stats.Summary.Add(s.w.result)
		if s.w.result.ParseErr != nil {
			idx.logger.Warn("parse failed, stored fallback chunks",
				"path", s.w.rec.Path,
				"strategy", string(s.w.result.Strategy),
				"error", s.w.result.ParseErr)
		}
	}
	return nil
}

// validateChunks checks every chunk of a file and rejects an id that is
// reused for different text, since the store keeps one row per id
func validateChunks(chunks []types.Chunk) error {
	texts := make(map[string]string, len(chunks))
	for i := range chunks {
		if err := chunks[i].Validate(); err != nil {
			return fmt.Errorf("%w: %v", storage.ErrInvalidChunk, err)
		}
		if prev, ok := texts[chunks[i].ID]; ok && prev != chunks[i].Text {
			return fmt.Errorf("%w: id %s reused for different text at lines %d-%d",
				storage.ErrInvalidChunk, chunks[i].ID, chunks[i].StartLine, chunks[i].EndLine)
		}
		texts[chunks[i].ID] = chunks[i].Text
	}
	return nil
}

// storeFile writes one file, replacing any chunks stored for a previous version
func (idx *Indexer) storeFile(ctx context.Context, tx storage.Tx, repoID string, w *fileWork, vectors map[string]*embedder.Embedding) (int, int, error) {
	res := w.result
	lang := res.Lang
	if lang == "" && len(res.Chunks) > 0 {
		lang = res.Chunks[0].Lang
	}

	file := &storage.File{
		RepoID:      repoID,
		FilePath:    w.rec.Path,
		Lang:        lang,
		ContentHash: w.hash,
		SizeBytes:   int64(len(w.rec.Content)),
		Strategy:    string(res.Strategy),
	}
	if res.ParseErr != nil {
		msg := res.ParseErr.Error()
		file.ParseError = &msg
	}

	if err := tx.UpsertFile(ctx, file); err != nil {
		return 0, 0, err
	}

	if w.existing != nil {
		if err := tx.DeleteChunksByFile(ctx, file.ID); err != nil {
			return 0, 0, fmt.Errorf("failed to delete old chunks: %w", err)
		}
	}

	// Identical chunks of one file share an id and collapse to one row;
	// validateChunks has rejected ids reused for different text
	seen := make(map[string]bool, len(res.Chunks))
	embedded := 0
	for _, c := range res.Chunks {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true

		if err := tx.UpsertChunk(ctx, storage.NewChunk(repoID, file.ID, c, chunker.EstimateTokens(c.Text))); err != nil {
			return 0, 0, err
		}

		emb, ok := vectors[c.ID]
		if !ok {
			continue
		}
		if err := tx.UpsertEmbedding(ctx, &storage.Embedding{
			RepoID:    repoID,
			ChunkID:   c.ID,
			Vector:    storage.SerializeVector(emb.Vector),
			Dimension: len(emb.Vector),
			Provider:  emb.Provider,
			Model:     emb.Model,
		}); err != nil {
			return 0, 0, fmt.Errorf("failed to store embedding: %w", err)
		}
		embedded++
	}

	return len(seen), embedded, nil
}

// embedBatch embeds every distinct non-empty chunk text of the batch
func (idx *Indexer) embedBatch(ctx context.Context, batch []*fileWork, cfg *Config) (map[string]*embedder.Embedding, error) {
	vectors := make(map[string]*embedder.Embedding)
	if idx.embedder == nil {
		return vectors, nil
	}

	var ids, texts []string
	seen := make(map[string]bool)
	for _, w := range batch {
		for _, c := range w.result.Chunks {
			if c.Text == "" || seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			ids = append(ids, c.ID)
			texts = append(texts, c.Text)
		}
	}

	for i := 0; i < len(texts); i += cfg.EmbedBatchSize {
		end := min(i+cfg.EmbedBatchSize, len(texts))
		resp, err := idx.embedder.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: texts[i:end]})
		if err != nil {
			return nil, fmt.Errorf("failed to generate embeddings: %w", err)
		}
		if len(resp.Embeddings) != end-i {
			return nil, fmt.Errorf("%w: got %d embeddings for %d chunks", embedder.ErrProviderFailed, len(resp.Embeddings), end-i)
		}
		for j, emb := range resp.Embeddings {
			vectors[ids[i+j]] = emb
		}
	}
	return vectors, nil
}

// prune deletes stored files that are not part of this ingest
func (idx *Indexer) prune(ctx context.Context, records []types.FileRecord, existing map[string]*storage.File, stats *Statistics) error {
	present := make(map[string]bool, len(records))
	for _, rec := range records {
		present[rec.Path] = true
	}
	for path, f := range existing {
		if present[path] {
			continue
		}
		if err := idx.storage.DeleteFile(ctx, f.ID); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
		stats.FilesRemoved++
		idx.logger.Debug("removed file", "path", path)
	}
	return nil
}

// getOrCreateRepo retrieves an existing repo or creates a new one
func (idx *Indexer) getOrCreateRepo(ctx context.Context, repoID string, cfg *Config) (*storage.Repo, error) {
	repo, err := idx.storage.GetRepo(ctx, repoID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if repo == nil {
		repo = &storage.Repo{ID: repoID}
	}

	if cfg.RootPath != "" {
		repo.RootPath = cfg.RootPath
	}
	if cfg.URL != "" {
		repo.URL = cfg.URL
	}
	if err := idx.storage.UpsertRepo(ctx, repo); err != nil {
		return nil, err
	}
	return repo, nil
}

// updateRepoStats refreshes the repo's file and chunk counts
func (idx *Indexer) updateRepoStats(ctx context.Context, repo *storage.Repo) error {
	status, err := idx.storage.Stats(ctx, repo.ID)
	if err != nil {
		return err
	}

	repo.TotalFiles = status.FilesCount
	repo.TotalChunks = status.ChunksCount
	repo.LastIndexedAt = time.Now()
	return idx.storage.UpsertRepo(ctx, repo)
}

func (idx *Indexer) finishRun(ctx context.Context, run *storage.Run, stats *Statistics, runErr error) error {
	run.Status = storage.RunSucceeded
	if runErr != nil {
		run.Status = storage.RunFailed
		run.Error = runErr.Error()
	}
	run.FilesIndexed = stats.FilesIndexed
	run.FilesSkipped = stats.FilesSkipped
	run.FilesFailed = stats.FilesFailed
	run.Chunks = stats.ChunksCreated
	run.FallbackFiles = stats.Summary.Fallbacks()
	return idx.storage.FinishRun(ctx, run)
}

// lockFor returns the lock guarding ingests of repoID
func (idx *Indexer) lockFor(repoID string) *IndexLock {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	l, ok := idx.locks[repoID]
	if !ok {
		l = &IndexLock{}
		idx.locks[repoID] = l
	}
	return l
}
