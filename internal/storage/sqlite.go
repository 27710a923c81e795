package storage

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidChunk is returned when a chunk fails validation before a write
	ErrInvalidChunk = errors.New("invalid chunk")
)

// IndexVersion is recorded on every repo so stale indexes can be detected
const IndexVersion = "1"

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// Repo operations

func (s *SQLiteStorage) upsertRepoWithQuerier(ctx context.Context, q querier, repo *Repo) error {
	query := `
		INSERT INTO repos (id, root_path, url, total_files, total_chunks, index_version, last_indexed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			root_path = excluded.root_path,
			url = excluded.url,
			total_files = excluded.total_files,
			total_chunks = excluded.total_chunks,
			index_version = excluded.index_version,
			last_indexed_at = excluded.last_indexed_at,
			updated_at = excluded.updated_at
		RETURNING created_at
	`
	if repo.IndexVersion == "" {
		repo.IndexVersion = IndexVersion
	}
	var lastIndexed interface{}
	if !repo.LastIndexedAt.IsZero() {
		lastIndexed = repo.LastIndexedAt
	}

	now := time.Now()
	err := q.QueryRowContext(ctx, query,
		repo.ID, repo.RootPath, repo.URL, repo.TotalFiles, repo.TotalChunks,
		repo.IndexVersion, lastIndexed, now, now).Scan(&repo.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert repo: %w", err)
	}
	repo.UpdatedAt = now
	return nil
}

// UpsertRepo creates the repo namespace or updates its metadata
func (s *SQLiteStorage) UpsertRepo(ctx context.Context, repo *Repo) error {
	return s.upsertRepoWithQuerier(ctx, s.querier(), repo)
}

func (s *SQLiteStorage) getRepoWithQuerier(ctx context.Context, q querier, repoID string) (*Repo, error) {
	query := `
		SELECT id, root_path, url, total_files, total_chunks,
		       index_version, last_indexed_at, created_at, updated_at
		FROM repos
		WHERE id = ?
	`
	var repo Repo
	var rootPath, url sql.NullString
	var lastIndexedAt sql.NullTime
	err := q.QueryRowContext(ctx, query, repoID).Scan(
		&repo.ID, &rootPath, &url, &repo.TotalFiles, &repo.TotalChunks,
		&repo.IndexVersion, &lastIndexedAt, &repo.CreatedAt, &repo.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	repo.RootPath = rootPath.String
	repo.URL = url.String
	if lastIndexedAt.Valid {
		repo.LastIndexedAt = lastIndexedAt.Time
	}
	return &repo, nil
}

func (s *SQLiteStorage) GetRepo(ctx context.Context, repoID string) (*Repo, error) {
	return s.getRepoWithQuerier(ctx, s.querier(), repoID)
}

func (s *SQLiteStorage) repoExistsWithQuerier(ctx context.Context, q querier, repoID string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM repos WHERE id = ?", repoID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RepoExists reports whether the namespace has been ingested before
func (s *SQLiteStorage) RepoExists(ctx context.Context, repoID string) (bool, error) {
	return s.repoExistsWithQuerier(ctx, s.querier(), repoID)
}

// File operations

func (s *SQLiteStorage) upsertFileWithQuerier(ctx context.Context, q querier, file *File) error {
	query := `
		INSERT INTO files (repo_id, file_path, lang, content_hash, size_bytes, strategy, parse_error, last_indexed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(repo_id, file_path) DO UPDATE SET
			lang = excluded.lang,
			content_hash = excluded.content_hash,
			size_bytes = excluded.size_bytes,
			strategy = excluded.strategy,
			parse_error = excluded.parse_error,
			last_indexed_at = excluded.last_indexed_at,
			updated_at = excluded.updated_at
		RETURNING id
	`
	now := time.Now()
	err := q.QueryRowContext(ctx, query,
		file.RepoID, file.FilePath, file.Lang, file.ContentHash[:],
		file.SizeBytes, file.Strategy, file.ParseError, now, now, now).Scan(&file.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert file: %w", err)
	}

	file.LastIndexedAt = now
	file.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpsertFile(ctx context.Context, file *File) error {
	return s.upsertFileWithQuerier(ctx, s.querier(), file)
}

const fileColumns = `id, repo_id, file_path, lang, content_hash, size_bytes, strategy,
		       parse_error, last_indexed_at, created_at, updated_at`

// rowScanner is implemented by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFile(sc rowScanner) (*File, error) {
	var file File
	var hash []byte
	var lang, strategy, parseError sql.NullString
	err := sc.Scan(
		&file.ID, &file.RepoID, &file.FilePath, &lang, &hash, &file.SizeBytes,
		&strategy, &parseError, &file.LastIndexedAt, &file.CreatedAt, &file.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	copy(file.ContentHash[:], hash)
	file.Lang = lang.String
	file.Strategy = strategy.String
	if parseError.Valid {
		file.ParseError = &parseError.String
	}
	return &file, nil
}

func (s *SQLiteStorage) getFileWithQuerier(ctx context.Context, q querier, repoID, filePath string) (*File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE repo_id = ? AND file_path = ?`
	file, err := scanFile(q.QueryRowContext(ctx, query, repoID, filePath))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return file, err
}

func (s *SQLiteStorage) GetFile(ctx context.Context, repoID, filePath string) (*File, error) {
	return s.getFileWithQuerier(ctx, s.querier(), repoID, filePath)
}

func (s *SQLiteStorage) listFilesWithQuerier(ctx context.Context, q querier, repoID string) ([]*File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE repo_id = ? ORDER BY file_path`
	rows, err := q.QueryContext(ctx, query, repoID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	files := make([]*File, 0)
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

func (s *SQLiteStorage) ListFiles(ctx context.Context, repoID string) ([]*File, error) {
	return s.listFilesWithQuerier(ctx, s.querier(), repoID)
}

func (s *SQLiteStorage) deleteFileWithQuerier(ctx context.Context, q querier, fileID int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, fileID)
	return err
}

// DeleteFile removes a file; its chunks and embeddings cascade
func (s *SQLiteStorage) DeleteFile(ctx context.Context, fileID int64) error {
	return s.deleteFileWithQuerier(ctx, s.querier(), fileID)
}

// Chunk operations

// upsertChunkWithQuerier writes a chunk keyed by its content-addressed id,
// so re-ingesting unchanged input updates rows in place
func (s *SQLiteStorage) upsertChunkWithQuerier(ctx context.Context, q querier, chunk *Chunk) error {
	if err := chunk.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidChunk, err)
	}

	query := `
		INSERT INTO chunks (
			repo_id, id, file_id, file_path, start_line, end_line, text, lang,
			is_fallback, token_count, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(repo_id, id)
		DO UPDATE SET
			file_id = excluded.file_id,
			file_path = excluded.file_path,
			start_line = excluded.start_line,
			end_line = excluded.end_line,
			text = excluded.text,
			lang = excluded.lang,
			is_fallback = excluded.is_fallback,
			token_count = excluded.token_count,
			updated_at = excluded.updated_at
		RETURNING created_at, updated_at
	`
	now := time.Now()
	err := q.QueryRowContext(ctx, query,
		chunk.RepoID, chunk.ID, chunk.FileID, chunk.FilePath,
		chunk.StartLine, chunk.EndLine, chunk.Text, chunk.Lang,
		chunk.IsFallback, chunk.TokenCount, now, now,
	).Scan(&chunk.CreatedAt, &chunk.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert chunk: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) UpsertChunk(ctx context.Context, chunk *Chunk) error {
	return s.upsertChunkWithQuerier(ctx, s.querier(), chunk)
}

const chunkColumns = `repo_id, id, file_id, file_path, start_line, end_line, text, lang,
		       is_fallback, token_count, created_at, updated_at`

func scanChunk(sc rowScanner) (*Chunk, error) {
	var chunk Chunk
	var tokens sql.NullInt64
	err := sc.Scan(
		&chunk.RepoID, &chunk.ID, &chunk.FileID, &chunk.FilePath,
		&chunk.StartLine, &chunk.EndLine, &chunk.Text, &chunk.Lang,
		&chunk.IsFallback, &tokens, &chunk.CreatedAt, &chunk.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	chunk.TokenCount = int(tokens.Int64)
	return &chunk, nil
}

func (s *SQLiteStorage) getChunkWithQuerier(ctx context.Context, q querier, repoID, chunkID string) (*Chunk, error) {
	query := `SELECT ` + chunkColumns + ` FROM chunks WHERE repo_id = ? AND id = ?`
	chunk, err := scanChunk(q.QueryRowContext(ctx, query, repoID, chunkID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return chunk, err
}

func (s *SQLiteStorage) GetChunk(ctx context.Context, repoID, chunkID string) (*Chunk, error) {
	return s.getChunkWithQuerier(ctx, s.querier(), repoID, chunkID)
}

func (s *SQLiteStorage) listChunksByFileWithQuerier(ctx context.Context, q querier, fileID int64) ([]*Chunk, error) {
	query := `SELECT ` + chunkColumns + ` FROM chunks WHERE file_id = ? ORDER BY start_line, end_line, id`
	rows, err := q.QueryContext(ctx, query, fileID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	chunks := make([]*Chunk, 0)
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

func (s *SQLiteStorage) ListChunksByFile(ctx context.Context, fileID int64) ([]*Chunk, error) {
	return s.listChunksByFileWithQuerier(ctx, s.querier(), fileID)
}

func (s *SQLiteStorage) deleteChunksByFileWithQuerier(ctx context.Context, q querier, fileID int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM chunks WHERE file_id = ?`, fileID)
	return err
}

func (s *SQLiteStorage) DeleteChunksByFile(ctx context.Context, fileID int64) error {
	return s.deleteChunksByFileWithQuerier(ctx, s.querier(), fileID)
}

// Embedding operations

func (s *SQLiteStorage) upsertEmbeddingWithQuerier(ctx context.Context, q querier, embedding *Embedding) error {
	query := `
		INSERT INTO embeddings (repo_id, chunk_id, vector, dimension, provider, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(repo_id, chunk_id) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension,
			provider = excluded.provider,
			model = excluded.model
	`
	now := time.Now()
	_, err := q.ExecContext(ctx, query,
		embedding.RepoID, embedding.ChunkID, embedding.Vector, embedding.Dimension,
		embedding.Provider, embedding.Model, now)
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}
	embedding.CreatedAt = now
	return nil
}

func (s *SQLiteStorage) UpsertEmbedding(ctx context.Context, embedding *Embedding) error {
	return s.upsertEmbeddingWithQuerier(ctx, s.querier(), embedding)
}

func (s *SQLiteStorage) getEmbeddingWithQuerier(ctx context.Context, q querier, repoID, chunkID string) (*Embedding, error) {
	query := `
		SELECT repo_id, chunk_id, vector, dimension, provider, model, created_at
		FROM embeddings
		WHERE repo_id = ? AND chunk_id = ?
	`
	var embedding Embedding
	err := q.QueryRowContext(ctx, query, repoID, chunkID).Scan(
		&embedding.RepoID, &embedding.ChunkID, &embedding.Vector,
		&embedding.Dimension, &embedding.Provider, &embedding.Model,
		&embedding.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &embedding, nil
}

func (s *SQLiteStorage) GetEmbedding(ctx context.Context, repoID, chunkID string) (*Embedding, error) {
	return s.getEmbeddingWithQuerier(ctx, s.querier(), repoID, chunkID)
}

// Search operations

func (s *SQLiteStorage) SearchVector(ctx context.Context, repoID string, queryVector []float32, limit int, filters *SearchFilters) ([]VectorResult, error) {
	return searchVector(ctx, s.querier(), repoID, queryVector, limit, filters)
}

func (s *SQLiteStorage) SearchText(ctx context.Context, repoID string, query string, limit int, filters *SearchFilters) ([]TextResult, error) {
	return searchText(ctx, s.querier(), repoID, query, limit, filters)
}

// Ingest run operations

func (s *SQLiteStorage) createRunWithQuerier(ctx context.Context, q querier, run *Run) error {
	if run.ID == "" {
		run.ID = ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
	}
	if run.Status == "" {
		run.Status = RunRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	query := `INSERT INTO ingest_runs (id, repo_id, status, started_at) VALUES (?, ?, ?, ?)`
	if _, err := q.ExecContext(ctx, query, run.ID, run.RepoID, run.Status, run.StartedAt); err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// CreateRun records the start of an ingest and assigns a ULID
func (s *SQLiteStorage) CreateRun(ctx context.Context, run *Run) error {
	return s.createRunWithQuerier(ctx, s.querier(), run)
}

func (s *SQLiteStorage) finishRunWithQuerier(ctx context.Context, q querier, run *Run) error {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	query := `
		UPDATE ingest_runs
		SET status = ?, files_indexed = ?, files_skipped = ?, files_failed = ?,
		    chunks = ?, fallback_files = ?, error = ?, finished_at = ?
		WHERE id = ?
	`
	res, err := q.ExecContext(ctx, query,
		run.Status, run.FilesIndexed, run.FilesSkipped, run.FilesFailed,
		run.Chunks, run.FallbackFiles, run.Error, run.FinishedAt, run.ID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// FinishRun stores the final status and counters of a run
func (s *SQLiteStorage) FinishRun(ctx context.Context, run *Run) error {
	return s.finishRunWithQuerier(ctx, s.querier(), run)
}

const runColumns = `id, repo_id, status, files_indexed, files_skipped, files_failed,
		       chunks, fallback_files, error, started_at, finished_at`

func scanRun(sc rowScanner) (*Run, error) {
	var run Run
	var errText sql.NullString
	var finished sql.NullTime
	err := sc.Scan(
		&run.ID, &run.RepoID, &run.Status, &run.FilesIndexed, &run.FilesSkipped,
		&run.FilesFailed, &run.Chunks, &run.FallbackFiles, &errText,
		&run.StartedAt, &finished,
	)
	if err != nil {
		return nil, err
	}
	run.Error = errText.String
	if finished.Valid {
		run.FinishedAt = finished.Time
	}
	return &run, nil
}

func (s *SQLiteStorage) getRunWithQuerier(ctx context.Context, q querier, runID string) (*Run, error) {
	run, err := scanRun(q.QueryRowContext(ctx, `SELECT `+runColumns+` FROM ingest_runs WHERE id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

func (s *SQLiteStorage) GetRun(ctx context.Context, runID string) (*Run, error) {
	return s.getRunWithQuerier(ctx, s.querier(), runID)
}

// Status operations

func (s *SQLiteStorage) statsWithQuerier(ctx context.Context, q querier, repoID string) (*RepoStatus, error) {
	repo, err := s.getRepoWithQuerier(ctx, q, repoID)
	if err != nil {
		return nil, err
	}
	status := &RepoStatus{Repo: repo}

	counts := []struct {
		dst   *int
		query string
	}{
		{&status.FilesCount, "SELECT COUNT(*) FROM files WHERE repo_id = ?"},
		{&status.ChunksCount, "SELECT COUNT(*) FROM chunks WHERE repo_id = ?"},
		{&status.FallbackChunks, "SELECT COUNT(*) FROM chunks WHERE repo_id = ? AND is_fallback = 1"},
		{&status.EmbeddingsCount, "SELECT COUNT(*) FROM embeddings WHERE repo_id = ?"},
	}
	for _, c := range counts {
		if err := q.QueryRowContext(ctx, c.query, repoID).Scan(c.dst); err != nil {
			return nil, err
		}
	}

	last, err := scanRun(q.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM ingest_runs WHERE repo_id = ? ORDER BY started_at DESC, id DESC LIMIT 1`, repoID))
	switch {
	case err == nil:
		status.LastRun = last
	case !errors.Is(err, sql.ErrNoRows):
		return nil, err
	}

	// Calculate database size
	var pageCount, pageSize int
	if err := q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.IndexSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	status.Health = HealthStatus{
		DatabaseAccessible:  true,
		EmbeddingsAvailable: status.EmbeddingsCount > 0,
		FTSIndexesBuilt:     true, // FTS indexes are created with migrations
	}
	return status, nil
}

// Stats returns counters for an ingested repo
func (s *SQLiteStorage) Stats(ctx context.Context, repoID string) (*RepoStatus, error) {
	return s.statsWithQuerier(ctx, s.querier(), repoID)
}

// Transaction implementations delegate to the storage helpers with the tx querier

func (t *sqliteTx) UpsertRepo(ctx context.Context, repo *Repo) error {
	return t.storage.upsertRepoWithQuerier(ctx, t.querier(), repo)
}

func (t *sqliteTx) GetRepo(ctx context.Context, repoID string) (*Repo, error) {
	return t.storage.getRepoWithQuerier(ctx, t.querier(), repoID)
}

func (t *sqliteTx) RepoExists(ctx context.Context, repoID string) (bool, error) {
	return t.storage.repoExistsWithQuerier(ctx, t.querier(), repoID)
}

func (t *sqliteTx) UpsertFile(ctx context.Context, file *File) error {
	return t.storage.upsertFileWithQuerier(ctx, t.querier(), file)
}

func (t *sqliteTx) GetFile(ctx context.Context, repoID, filePath string) (*File, error) {
	return t.storage.getFileWithQuerier(ctx, t.querier(), repoID, filePath)
}

func (t *sqliteTx) ListFiles(ctx context.Context, repoID string) ([]*File, error) {
	return t.storage.listFilesWithQuerier(ctx, t.querier(), repoID)
}

func (t *sqliteTx) DeleteFile(ctx context.Context, fileID int64) error {
	return t.storage.deleteFileWithQuerier(ctx, t.querier(), fileID)
}

func (t *sqliteTx) UpsertChunk(ctx context.Context, chunk *Chunk) error {
	return t.storage.upsertChunkWithQuerier(ctx, t.querier(), chunk)
}

func (t *sqliteTx) GetChunk(ctx context.Context, repoID, chunkID string) (*Chunk, error) {
	return t.storage.getChunkWithQuerier(ctx, t.querier(), repoID, chunkID)
}

func (t *sqliteTx) ListChunksByFile(ctx context.Context, fileID int64) ([]*Chunk, error) {
	return t.storage.listChunksByFileWithQuerier(ctx, t.querier(), fileID)
}

func (t *sqliteTx) DeleteChunksByFile(ctx context.Context, fileID int64) error {
	return t.storage.deleteChunksByFileWithQuerier(ctx, t.querier(), fileID)
}

func (t *sqliteTx) UpsertEmbedding(ctx context.Context, embedding *Embedding) error {
	return t.storage.upsertEmbeddingWithQuerier(ctx, t.querier(), embedding)
}

func (t *sqliteTx) GetEmbedding(ctx context.Context, repoID, chunkID string) (*Embedding, error) {
	return t.storage.getEmbeddingWithQuerier(ctx, t.querier(), repoID, chunkID)
}

func (t *sqliteTx) SearchVector(ctx context.Context, repoID string, vector []float32, limit int, filters *SearchFilters) ([]VectorResult, error) {
	return searchVector(ctx, t.querier(), repoID, vector, limit, filters)
}

func (t *sqliteTx) SearchText(ctx context.Context, repoID string, query string, limit int, filters *SearchFilters) ([]TextResult, error) {
	return searchText(ctx, t.querier(), repoID, query, limit, filters)
}

func (t *sqliteTx) CreateRun(ctx context.Context, run *Run) error {
	return t.storage.createRunWithQuerier(ctx, t.querier(), run)
}

func (t *sqliteTx) FinishRun(ctx context.Context, run *Run) error {
	return t.storage.finishRunWithQuerier(ctx, t.querier(), run)
}

func (t *sqliteTx) GetRun(ctx context.Context, runID string) (*Run, error) {
	return t.storage.getRunWithQuerier(ctx, t.querier(), runID)
}

func (t *sqliteTx) Stats(ctx context.Context, repoID string) (*RepoStatus, error) {
	return t.storage.statsWithQuerier(ctx, t.querier(), repoID)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}
