package storage

import (
	"context"
	"time"

	"github.com/dshills/knowthecode/pkg/types"
)

// Storage defines the interface for persisting and querying ingested repositories
type Storage interface {
	// Repo operations
	UpsertRepo(ctx context.Context, repo *Repo) error
	GetRepo(ctx context.Context, repoID string) (*Repo, error)
	RepoExists(ctx context.Context, repoID string) (bool, error)

	// File operations
	UpsertFile(ctx context.Context, file *File) error
	GetFile(ctx context.Context, repoID, filePath string) (*File, error)
	ListFiles(ctx context.Context, repoID string) ([]*File, error)
	DeleteFile(ctx context.Context, fileID int64) error

	// Chunk operations
	UpsertChunk(ctx context.Context, chunk *Chunk) error
	GetChunk(ctx context.Context, repoID, chunkID string) (*Chunk, error)
	ListChunksByFile(ctx context.Context, fileID int64) ([]*Chunk, error)
	DeleteChunksByFile(ctx context.Context, fileID int64) error

	// Embedding operations
	UpsertEmbedding(ctx context.Context, embedding *Embedding) error
	GetEmbedding(ctx context.Context, repoID, chunkID string) (*Embedding, error)

	// Search operations
	SearchVector(ctx context.Context, repoID string, vector []float32, limit int, filters *SearchFilters) ([]VectorResult, error)
	SearchText(ctx context.Context, repoID string, query string, limit int, filters *SearchFilters) ([]TextResult, error)

	// Ingest run operations
	CreateRun(ctx context.Context, run *Run) error
	FinishRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, runID string) (*Run, error)

	// Status operations
	Stats(ctx context.Context, repoID string) (*RepoStatus, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// Repo is an ingested repository namespace
type Repo struct {
	ID            string // Namespace, e.g. "knowthecode"
	RootPath      string
	URL           string
	TotalFiles    int
	TotalChunks   int
	IndexVersion  string
	LastIndexedAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// File is a tracked repository file
type File struct {
	ID            int64
	RepoID        string
	FilePath      string // Relative to repo root
	Lang          string
	ContentHash   [32]byte
	SizeBytes     int64
	Strategy      string  // Chunking strategy used
	ParseError    *string // Nullable
	LastIndexedAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Chunk is a stored chunk. The embedded types.Chunk keeps the wire field names.
type Chunk struct {
	types.Chunk
	RepoID     string
	FileID     int64
	TokenCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Embedding represents a vector embedding for a chunk
type Embedding struct {
	RepoID    string
	ChunkID   string
	Vector    []byte // Serialized float32 array
	Dimension int
	Provider  string
	Model     string
	CreatedAt time.Time
}

// Run status values
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// Run records one ingest of a repository
type Run struct {
	ID            string // ULID, assigned by CreateRun when empty
	RepoID        string
	Status        string
	FilesIndexed  int
	FilesSkipped  int
	FilesFailed   int
	Chunks        int
	FallbackFiles int
	Error         string
	StartedAt     time.Time
	FinishedAt    time.Time
}

// SearchFilters contains filters for narrowing search results
type SearchFilters struct {
	Langs           []string // Filter by chunk language tag
	FilePattern     string   // Glob pattern for file paths
	ExcludeFallback bool     // Only structural chunks
	MinRelevance    float64  // Minimum relevance score
}

// VectorResult represents a result from vector similarity search
type VectorResult struct {
	ChunkID         string
	SimilarityScore float64
}

// TextResult represents a result from full-text search
type TextResult struct {
	ChunkID   string
	BM25Score float64
}

// RepoStatus contains statistics about an ingested repository
type RepoStatus struct {
	Repo            *Repo
	FilesCount      int
	ChunksCount     int
	FallbackChunks  int
	EmbeddingsCount int
	IndexSizeMB     float64
	LastRun         *Run
	Health          HealthStatus
}

// HealthStatus represents the health of the index
type HealthStatus struct {
	DatabaseAccessible  bool
	EmbeddingsAvailable bool
	FTSIndexesBuilt     bool
}

// NewChunk wraps a chunker chunk for storage
func NewChunk(repoID string, fileID int64, c types.Chunk, tokenCount int) *Chunk {
	return &Chunk{
		Chunk:      c,
		RepoID:     repoID,
		FileID:     fileID,
		TokenCount: tokenCount,
	}
}
