package chunker

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dshills/knowthecode/internal/parser"
	"github.com/dshills/knowthecode/pkg/types"
)

// Strategy names the chunking path taken for a file
type Strategy string

const (
	StrategyStructural Strategy = "structural"
	StrategyMarkdown   Strategy = "markdown"
	StrategyJSON       Strategy = "json"
	StrategyGeneric    Strategy = "generic"
	StrategyDegenerate Strategy = "degenerate"
)

// Result is the outcome of chunking one file
type Result struct {
	Chunks   []types.Chunk
	Lang     string // Detected language, "" if unknown
	Strategy Strategy
	// ParseErr is set when a structural parser existed but failed.
	// It is informational; Chunks is still populated by a fallback.
	ParseErr error
}

// Chunker converts files into bounded, line-addressed chunks.
// It holds no per-file state and is safe for concurrent use.
type Chunker struct {
	cfg      Config
	registry *parser.Registry
	logger   *slog.Logger
}

// New creates a Chunker with the default size policy and parser registry
func New(opts ...Option) *Chunker {
	c := &Chunker{
		cfg:      DefaultConfig(),
		registry: parser.Default(),
		logger:   discardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the active size policy
func (c *Chunker) Config() Config {
	return c.cfg
}

// Registry returns the structural parser registry in use
func (c *Chunker) Registry() *parser.Registry {
	return c.registry
}

// ChunkFile returns the chunks of rec in document order. It never fails and
// never returns an empty slice.
func (c *Chunker) ChunkFile(rec types.FileRecord) []types.Chunk {
	return c.Chunk(context.Background(), rec).Chunks
}

// Chunk runs the strategy decision table for one file:
// structural parser if registered, then the markdown, JSON or generic
// fallback, then a single degenerate whole-file chunk.
func (c *Chunker) Chunk(ctx context.Context, rec types.FileRecord) Result {
	lang := DetectLanguage(rec.Path)
	li := NewLineIndex(rec.Content)
	res := Result{Lang: lang}

	if h, ok := c.registry.Lookup(lang); ok && li.Count() > 0 {
		chunks, err := c.structural(ctx, h, rec, lang, li)
		if err != nil {
			res.ParseErr = err
			c.logger.Warn("structural parse failed, using fallback",
				"path", rec.Path,
				"lang", lang,
				"error", err)
		} else if len(chunks) > 0 {
			res.Chunks = chunks
			res.Strategy = StrategyStructural
			return res
		}
	}

	if chunks, strategy, ok := c.fallback(rec, lang, li); ok {
		res.Chunks = chunks
		res.Strategy = strategy
		c.logger.Debug("fallback chunking",
			"path", rec.Path,
			"strategy", string(strategy),
			"chunks", len(chunks))
		return res
	}

	res.Chunks = []types.Chunk{degenerate(rec, lang, li)}
	res.Strategy = StrategyDegenerate
	return res
}

func (c *Chunker) structural(ctx context.Context, h parser.Handle, rec types.FileRecord, lang string, li *LineIndex) ([]types.Chunk, error) {
	spans, err := parser.SelectSpans(ctx, h, []byte(rec.Content))
	if err != nil {
		return nil, err
	}
	return c.buildStructural(rec.Path, lang, li, spans), nil
}

// fallback picks the parser-free strategy from the language tag, sniffing
// unknown files that look like JSON
func (c *Chunker) fallback(rec types.FileRecord, lang string, li *LineIndex) ([]types.Chunk, Strategy, bool) {
	switch {
	case lang == types.LangMarkdown:
		if chunks, ok := c.markdownChunks(rec.Path, li); ok {
			return chunks, StrategyMarkdown, true
		}
	case lang == types.LangJSON || (lang == "" && looksLikeJSON(rec.Content)):
		if chunks, ok := c.jsonChunks(rec.Path, rec.Content, li); ok {
			return chunks, StrategyJSON, true
		}
	}

	tag := lang
	if tag == "" {
		tag = types.LangText
	}
	if chunks, ok := c.genericChunks(rec.Path, tag, li); ok {
		return chunks, StrategyGeneric, true
	}
	return nil, "", false
}

func looksLikeJSON(content string) bool {
	t := strings.TrimSpace(content)
	return strings.HasPrefix(t, "{") || strings.HasPrefix(t, "[")
}

// degenerate covers the whole file with one chunk; an empty file yields
// lines 1-1 with empty text
func degenerate(rec types.FileRecord, lang string, li *LineIndex) types.Chunk {
	if lang == "" {
		lang = types.LangUnknown
	}
	end := max(1, li.Count())
	return types.Chunk{
		ID:         MakeID(rec.Path, 1, end, rec.Content),
		FilePath:   rec.Path,
		StartLine:  1,
		EndLine:    end,
		Text:       rec.Content,
		Lang:       lang,
		IsFallback: true,
	}
}

// ChunkFiles chunks every record in order and tallies the strategies used
func (c *Chunker) ChunkFiles(ctx context.Context, recs []types.FileRecord) ([]types.Chunk, Summary) {
	var all []types.Chunk
	var sum Summary
	for _, rec := range recs {
		res := c.Chunk(ctx, rec)
		sum.Add(res)
		all = append(all, res.Chunks...)
	}
	return all, sum
}

// Summary counts how files were chunked
type Summary struct {
	Files         int `json:"files"`
	Chunks        int `json:"chunks"`
	Structural    int `json:"structural"`
	Markdown      int `json:"markdown"`
	JSON          int `json:"json"`
	Generic       int `json:"generic"`
	Degenerate    int `json:"degenerate"`
	ParseFailures int `json:"parse_failures"`
}

// Add records one file's result
func (s *Summary) Add(res Result) {
	s.Files++
	s.Chunks += len(res.Chunks)
	if res.ParseErr != nil {
		s.ParseFailures++
	}
	switch res.Strategy {
	case StrategyStructural:
		s.Structural++
	case StrategyMarkdown:
		s.Markdown++
	case StrategyJSON:
		s.JSON++
	case StrategyGeneric:
		s.Generic++
	case StrategyDegenerate:
		s.Degenerate++
	}
}

// Merge adds the counts of other into s
func (s *Summary) Merge(other Summary) {
	s.Files += other.Files
	s.Chunks += other.Chunks
	s.Structural += other.Structural
	s.Markdown += other.Markdown
	s.JSON += other.JSON
	s.Generic += other.Generic
	s.Degenerate += other.Degenerate
	s.ParseFailures += other.ParseFailures
}

// Fallbacks returns the number of files chunked without a structural parser
func (s Summary) Fallbacks() int {
	return s.Files - s.Structural
}

// EstimateTokens estimates token count using the chars/4 heuristic
func EstimateTokens(text string) int {
	return (len(text) + TokensPerChar - 1) / TokensPerChar
}
