package chunker

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/knowthecode/internal/parser"
	"github.com/dshills/knowthecode/pkg/types"
)

// stubHandle returns fixed spans for any input
type stubHandle struct {
	spans []parser.Span
	err   error
}

func (s stubHandle) Spans(context.Context, []byte) ([]parser.Span, error) {
	return s.spans, s.err
}

// newStubChunker registers h under lang in a private registry
func newStubChunker(lang string, h parser.Handle, cfg Config) *Chunker {
	r := parser.NewRegistry()
	r.Register(lang, h)
	return New(WithRegistry(r), WithConfig(cfg))
}

// spanOf returns the byte span of the first occurrence of sub in content
func spanOf(t *testing.T, content, sub, kind string) parser.Span {
	t.Helper()
	i := strings.Index(content, sub)
	require.GreaterOrEqual(t, i, 0, "substring %q not found", sub)
	return parser.Span{Start: i, End: i + len(sub), Kind: kind}
}

func TestRegions_FillsGaps(t *testing.T) {
	content := "a\nb\nc\nd\ne\n"
	li := NewLineIndex(content)

	rs := regions(li, []parser.Span{
		{Start: 2, End: 3}, // line 1
		{Start: 6, End: 7}, // line 3
	})
	assert.Equal(t, []region{
		{start: 0, end: 0},
		{start: 1, end: 1, expand: true},
		{start: 2, end: 2},
		{start: 3, end: 3, expand: true},
		{start: 4, end: 4},
	}, rs)
}

func TestRegions_SharedLineIsNotDuplicated(t *testing.T) {
	content := "x = 1; y = 2\nz = 3\n"
	li := NewLineIndex(content)

	rs := regions(li, []parser.Span{
		{Start: 0, End: 5},
		{Start: 7, End: 12},
		{Start: 13, End: 18},
	})
	assert.Equal(t, []region{
		{start: 0, end: 0, expand: true},
		{start: 1, end: 1, expand: true},
	}, rs)
}

func TestBuildStructural_MergesSmallIntoPrevious(t *testing.T) {
	content := "func alpha() {\n\treturn compute(1, 2, 3)\n}\nconst x = 1\n"
	h := stubHandle{spans: []parser.Span{
		spanOf(t, content, "func alpha() {\n\treturn compute(1, 2, 3)\n}", "function"),
		spanOf(t, content, "const x = 1", "const"),
	}}
	c := newStubChunker("go", h, Config{MaxChars: 200, MinChars: 40, Overlap: 0})

	chunks := c.ChunkFile(types.FileRecord{Path: "a.go", Content: content})
	require.Len(t, chunks, 1)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 4, chunks[0].EndLine)
	assert.Equal(t, content, chunks[0].Text)
	assert.Equal(t, MakeID("a.go", 1, 4, content), chunks[0].ID)
	assert.False(t, chunks[0].IsFallback)
}

func TestBuildStructural_MergeRespectsMaxChars(t *testing.T) {
	content := "func alpha() {\n\treturn compute(1, 2, 3)\n}\nconst x = 1\n"
	h := stubHandle{spans: []parser.Span{
		spanOf(t, content, "func alpha() {\n\treturn compute(1, 2, 3)\n}", "function"),
		spanOf(t, content, "const x = 1", "const"),
	}}
	c := newStubChunker("go", h, Config{MaxChars: 50, MinChars: 40, Overlap: 0})

	chunks := c.ChunkFile(types.FileRecord{Path: "a.go", Content: content})
	require.Len(t, chunks, 2)
	assert.Equal(t, 3, chunks[0].EndLine)
	assert.Equal(t, 4, chunks[1].StartLine)
	assert.Equal(t, "const x = 1\n", chunks[1].Text)

	// The small last region has a predecessor but stays standalone:
	// the size bound wins over merge-small
	assert.Less(t, len(chunks[1].Text), 40)
	assert.Greater(t, len(chunks[0].Text)+len(chunks[1].Text), 50)
	for _, ch := range chunks {
		assert.LessOrEqual(t, len(ch.Text), 50)
	}
}

func TestBuildStructural_CarriesLeadingSmallRegion(t *testing.T) {
	content := "const x = 1\nfunc alpha() {\n\treturn compute(1, 2, 3)\n}\n"
	h := stubHandle{spans: []parser.Span{
		spanOf(t, content, "const x = 1", "const"),
		spanOf(t, content, "func alpha() {\n\treturn compute(1, 2, 3)\n}", "function"),
	}}
	c := newStubChunker("go", h, Config{MaxChars: 200, MinChars: 40, Overlap: 0})

	chunks := c.ChunkFile(types.FileRecord{Path: "a.go", Content: content})
	require.Len(t, chunks, 1)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 4, chunks[0].EndLine)
	assert.Equal(t, content, chunks[0].Text)
}

func TestBuildStructural_OverlapExpandsRegions(t *testing.T) {
	var b strings.Builder
	for i := 1; i <= 30; i++ {
		fmt.Fprintf(&b, "statement number %02d of the module body\n", i)
	}
	content := b.String()
	h := stubHandle{spans: []parser.Span{
		spanOf(t, content, "statement number 10 of the module body", "stmt"),
		spanOf(t, content, "statement number 20 of the module body", "stmt"),
	}}
	c := newStubChunker("python", h, Config{MaxChars: 2000, MinChars: 0, Overlap: 2})

	chunks := c.ChunkFile(types.FileRecord{Path: "m.py", Content: content})
	require.Len(t, chunks, 5)

	// gap, span+overlap, gap, span+overlap, gap
	ranges := make([][2]int, len(chunks))
	for i, ch := range chunks {
		ranges[i] = [2]int{ch.StartLine, ch.EndLine}
	}
	assert.Equal(t, [][2]int{{1, 9}, {8, 12}, {11, 19}, {18, 22}, {21, 30}}, ranges)
}

func TestBuildStructural_SplitsLargeRegion(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 100; i++ {
		fmt.Fprintf(&b, "line %04d\n", i)
	}
	content := b.String()
	h := stubHandle{spans: []parser.Span{{Start: 0, End: len(content), Kind: "module"}}}
	c := newStubChunker("python", h, Config{MaxChars: 200, MinChars: 10, Overlap: 2})

	chunks := c.ChunkFile(types.FileRecord{Path: "big.py", Content: content})
	require.Greater(t, len(chunks), 1)

	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 20, chunks[0].EndLine)
	for i, ch := range chunks {
		assert.LessOrEqual(t, len(ch.Text), 200)
		assert.False(t, ch.IsFallback)
		if i > 0 {
			assert.Equal(t, chunks[i-1].EndLine-1, ch.StartLine, "two lines of overlap")
		}
	}
	assert.Equal(t, 100, chunks[len(chunks)-1].EndLine)
}

func TestLineBlocks_ForwardProgress(t *testing.T) {
	content := strings.Repeat("123456789\n", 10)
	li := NewLineIndex(content)

	// Overlap larger than a block must still advance
	blocks := lineBlocks(li, 0, 9, 20, 5)
	require.NotEmpty(t, blocks)
	assert.Equal(t, 0, blocks[0].start)
	assert.Equal(t, 9, blocks[len(blocks)-1].end)
	for i := 1; i < len(blocks); i++ {
		assert.Greater(t, blocks[i].start, blocks[i-1].start)
		assert.Greater(t, blocks[i].end, blocks[i-1].end)
		assert.LessOrEqual(t, blocks[i].start, blocks[i-1].end+1)
	}
}

func TestLineBlocks_OversizeLineIsIrreducible(t *testing.T) {
	content := "short\n" + strings.Repeat("x", 300) + "\nshort\n"
	li := NewLineIndex(content)

	blocks := lineBlocks(li, 0, 2, 100, 2)
	assert.Equal(t, []lineRange{{0, 0}, {1, 1}, {2, 2}}, blocks)
}

func TestLineBlocks_NoOverlap(t *testing.T) {
	content := strings.Repeat("123456789\n", 6)
	li := NewLineIndex(content)

	blocks := lineBlocks(li, 0, 5, 20, 0)
	assert.Equal(t, []lineRange{{0, 1}, {2, 3}, {4, 5}}, blocks)
}
