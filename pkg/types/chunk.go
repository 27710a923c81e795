package types

import (
	"errors"
	"fmt"
)

// Language tags used when no detected language applies
const (
	LangUnknown  = "unknown"
	LangText     = "text"
	LangJSON     = "json"
	LangMarkdown = "markdown"
)

// FileRecord is a repository file handed to the chunker
type FileRecord struct {
	Path    string `json:"path"`    // Repo-relative, forward slashes
	Content string `json:"content"` // Decoded UTF-8 text
}

// Chunk is a bounded, line-addressed slice of a file ready for embedding.
// The JSON field names are consumed by downstream metadata storage and must not change.
type Chunk struct {
	ID         string `json:"id"`
	FilePath   string `json:"file_path"`
	StartLine  int    `json:"start_line"` // 1-indexed, inclusive
	EndLine    int    `json:"end_line"`   // 1-indexed, inclusive
	Text       string `json:"text"`
	Lang       string `json:"lang"`
	IsFallback bool   `json:"is_fallback"`
}

// Validate checks the positional invariants of the chunk
func (c *Chunk) Validate() error {
	if c.ID == "" {
		return ErrMissingChunkID
	}

	if c.FilePath == "" {
		return ErrMissingFilePath
	}

	if c.StartLine <= 0 || c.EndLine <= 0 {
		return errors.New("line numbers must be positive")
	}

	if c.StartLine > c.EndLine {
		return fmt.Errorf("start line %d is after end line %d", c.StartLine, c.EndLine)
	}

	if c.Lang == "" {
		return errors.New("language tag is required")
	}

	return nil
}

// LineCount returns the number of lines the chunk spans
func (c *Chunk) LineCount() int {
	return c.EndLine - c.StartLine + 1
}

// Overlaps reports whether two chunks of the same file share at least one line
func (c *Chunk) Overlaps(other *Chunk) bool {
	if c.FilePath != other.FilePath {
		return false
	}
	return c.StartLine <= other.EndLine && other.StartLine <= c.EndLine
}
