// Package chunker divides repository files into bounded, line-addressed
// chunks for embedding and retrieval.
//
// # Basic Usage
//
//	c := chunker.New()
//	chunks := c.ChunkFile(types.FileRecord{Path: "app/main.py", Content: src})
//	for _, ch := range chunks {
//	    fmt.Printf("%s:%d-%d %s\n", ch.FilePath, ch.StartLine, ch.EndLine, ch.ID[:12])
//	}
//
// ChunkFile is total: it never returns an error and never returns an empty
// slice. Use Chunk to also learn which strategy was used and whether a
// structural parser failed.
//
// # Strategies
//
// The language is detected from the file extension (or a well-known base
// name such as Dockerfile). Strategies are tried in order:
//   - structural: a parser.Handle is registered for the language; selected
//     syntax nodes become regions, uncovered lines between them become gap
//     regions, and each region is expanded by Overlap lines
//   - markdown: one chunk per heading section
//   - json: one chunk per top-level key or array element, re-serialized
//   - generic: greedy line blocks of at most MaxChars bytes
//   - degenerate: one chunk with the whole content
//
// Regions smaller than MinChars are merged into the previous chunk when the
// result stays within MaxChars. Regions larger than MaxChars are split into
// line blocks that repeat Overlap lines of the previous block. A single line
// longer than MaxChars is never split.
//
// # Identity
//
// Chunk IDs are the hex SHA-256 of the path, line range and first 200 bytes
// of text (see MakeID), so re-chunking unchanged input yields the same IDs.
//
// # Configuration
//
//	c := chunker.New(
//	    chunker.WithConfig(chunker.Config{MaxChars: 4000, MinChars: 300, Overlap: 3}),
//	    chunker.WithLogger(logger),
//	)
package chunker
