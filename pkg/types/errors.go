package types

import "errors"

// Domain errors for type validation
var (
	// Chunk errors
	ErrMissingChunkID  = errors.New("chunk ID is required")
	ErrMissingFilePath = errors.New("file path is required")

	// Search result errors
	ErrInvalidRank           = errors.New("rank must be >= 1")
	ErrInvalidRelevanceScore = errors.New("relevance score must be between 0 and 1")
	ErrMissingChunk          = errors.New("chunk is required")
)
