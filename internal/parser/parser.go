package parser

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrSyntax is returned when the source does not parse cleanly
	ErrSyntax = errors.New("syntax error")
	// ErrParserPanic is returned when a grammar panics on malformed input
	ErrParserPanic = errors.New("parser panic")
	// ErrEmptySource is returned for zero-byte input
	ErrEmptySource = errors.New("empty source")
)

// Span is a byte range of a chunk-worthy syntax node
type Span struct {
	Start int    // Inclusive byte offset
	End   int    // Exclusive byte offset
	Kind  string // Grammar node type, e.g. "function_definition"
}

// Handle selects chunk-worthy spans from source text for one language
type Handle interface {
	// Spans parses content and returns the selected node spans in document order.
	// When no node below the root matches, a single whole-file span is returned.
	Spans(ctx context.Context, content []byte) ([]Span, error)
}

// Registry maps language tags to structural parser handles.
// It is populated once and read-only afterwards, so lookups need no locking.
type Registry struct {
	handles map[string]Handle
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		handles: make(map[string]Handle),
	}
}

// Register adds a handle for a language. Only call before the registry is shared.
func (r *Registry) Register(lang string, h Handle) {
	r.handles[lang] = h
}

// Lookup returns the handle registered for lang
func (r *Registry) Lookup(lang string) (Handle, bool) {
	h, ok := r.handles[lang]
	return h, ok
}

// Has reports whether a structural parser exists for lang
func (r *Registry) Has(lang string) bool {
	_, ok := r.handles[lang]
	return ok
}

// Languages returns the registered language tags, sorted
func (r *Registry) Languages() []string {
	langs := make([]string, 0, len(r.handles))
	for lang := range r.handles {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Default returns the process-wide registry, probing available grammars on first use
var Default = sync.OnceValue(func() *Registry {
	r := NewRegistry()
	r.Register("go", NewGoHandle())
	registerGrammars(r)
	return r
})

// SelectSpans runs h and converts panics inside the grammar into errors
func SelectSpans(ctx context.Context, h Handle, content []byte) (spans []Span, err error) {
	if len(content) == 0 {
		return nil, ErrEmptySource
	}

	defer func() {
		if r := recover(); r != nil {
			spans = nil
			err = fmt.Errorf("%w: %v", ErrParserPanic, r)
		}
	}()

	return h.Spans(ctx, content)
}

// wholeFile is the fallback anchor span covering all of content
func wholeFile(content []byte, kind string) []Span {
	return []Span{{Start: 0, End: len(content), Kind: kind}}
}
