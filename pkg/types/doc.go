// Package types provides shared type definitions for knowthecode.
//
// This package defines the records that cross package boundaries: the
// FileRecord handed to the chunker, the Chunk it produces, and the
// SearchResult returned by retrieval.
//
// # Core Types
//
// FileRecord is a repository file, already decoded as UTF-8:
//
//	rec := types.FileRecord{
//	    Path:    "pkg/server/handler.py",
//	    Content: source,
//	}
//
// Chunk is a line-addressed slice of a file:
//
//	chunk := types.Chunk{
//	    ID:         "5f0c...",
//	    FilePath:   "pkg/server/handler.py",
//	    StartLine:  12,
//	    EndLine:    48,
//	    Text:       body,
//	    Lang:       "python",
//	    IsFallback: false,
//	}
//
// Chunks serialize to JSON with the field names id, file_path, start_line,
// end_line, text, lang and is_fallback. Downstream metadata storage keys off
// these names.
//
// # Validation
//
//	if err := chunk.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
// Line numbers are 1-indexed and inclusive; StartLine must not exceed EndLine.
package types
