package types

// SearchResult represents a single retrieved chunk with relevance information
type SearchResult struct {
	Rank int // Position in result set (1-based)

	// Scoring
	RelevanceScore float64 // Fused score from vector + BM25 via RRF

	Chunk *Chunk
}

// Validate checks if the search result is valid
func (sr *SearchResult) Validate() error {
	if sr.Rank < 1 {
		return ErrInvalidRank
	}

	if sr.RelevanceScore < 0 || sr.RelevanceScore > 1 {
		return ErrInvalidRelevanceScore
	}

	if sr.Chunk == nil {
		return ErrMissingChunk
	}

	return sr.Chunk.Validate()
}
