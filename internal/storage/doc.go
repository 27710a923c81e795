// Package storage provides SQLite-based persistence for ingested repositories.
//
// The storage layer manages:
//   - Repository namespaces
//   - File records and content hashes
//   - Chunks keyed by their content-addressed id
//   - Vector embeddings
//   - Ingest run history
//   - Full-text search indexes
//
// # Database Schema
//
// Tables:
//   - repos: Repository namespace (root path, clone URL, counters)
//   - files: Repo-relative paths, SHA-256 hashes, chunking strategy
//   - chunks: Chunk text and line range, primary key (repo_id, id)
//   - embeddings: One vector per chunk, cascades with the chunk
//   - ingest_runs: ULID-keyed ingest history
//   - chunks_fts: FTS5 external-content index over chunk text
//
// Schema changes are applied in order by ApplyMigrations, which compares
// semantic versions recorded in schema_version.
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("knowthecode.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	if err := tx.UpsertFile(ctx, file); err != nil {
//	    return err
//	}
//	for _, c := range chunks {
//	    if err := tx.UpsertChunk(ctx, storage.NewChunk(repoID, file.ID, c, tokens)); err != nil {
//	        return err
//	    }
//	}
//	return tx.Commit()
//
// Chunk ids are derived from path, line range and text, so upserting the
// same chunk twice updates one row.
//
// # Search
//
// SearchVector scores every stored embedding of a repo with cosine similarity
// in Go. SearchText runs a BM25 query against chunks_fts; free text is reduced
// to quoted terms joined by OR before it reaches FTS5.
//
// # Build Tags
//
// The default build uses modernc.org/sqlite and needs no C compiler:
//
//	CGO_ENABLED=0 go build ./...
//
// The sqlite_cgo tag switches to github.com/mattn/go-sqlite3, which needs
// sqlite_fts5 for the full-text index:
//
//	CGO_ENABLED=1 go build -tags "sqlite_cgo sqlite_fts5" ./...
package storage
