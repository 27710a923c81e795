// Package indexer coordinates the ingest pipeline for a repository.
//
// The indexer chunks files concurrently, embeds the chunks in batches and
// persists files, chunks and embeddings to storage, one transaction per
// batch of files. Every ingest is recorded as a run with a ULID.
//
// # Basic Usage
//
//	idx := indexer.New(store, emb, indexer.WithLogger(logger))
//
//	stats, err := idx.IndexRepo(ctx, "demo", "/src/demo", nil)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("Indexed %d files (%d fallback) in %v\n",
//	    stats.FilesIndexed, stats.Summary.Fallbacks(), stats.Duration)
//
// IndexRecords accepts pre-read file records instead of a directory.
//
// # Incremental Indexing
//
// Each file's SHA-256 content hash is stored. On the next ingest unchanged
// files are skipped, changed files have their old chunks and embeddings
// replaced, and with Config.Prune files missing from the input are deleted.
// Config.Force re-chunks everything.
//
// # Concurrency
//
// Chunking runs on an errgroup limited to Config.Workers goroutines, each
// file bounded by Config.FileTimeout. Storage writes are sequential.
// Concurrent ingests of the same repo fail with ErrIndexInProgress.
//
// # Error Handling
//
// Per-file problems (duplicate paths, invalid chunks, embedding failures
// for a batch) are counted in Statistics.FilesFailed with a message in
// Statistics.ErrorMessages, and indexing continues. Storage errors and
// context cancellation abort the run, which is then recorded as failed.
package indexer
