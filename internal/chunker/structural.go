package chunker

import (
	"github.com/dshills/knowthecode/internal/parser"
	"github.com/dshills/knowthecode/pkg/types"
)

// region is a 0-indexed inclusive line range fed to the builder
type region struct {
	start, end int
	// expand is false for the uncovered gaps between selected spans
	expand bool
}

// lineRange is a 0-indexed inclusive line range
type lineRange struct {
	start, end int
}

// buildState is the per-file accumulator threaded through the builder loop
type buildState struct {
	chunks []types.Chunk
	// carry is a small leading region waiting to be prepended to the next region
	carry *lineRange
}

// regions converts selected spans into line regions in document order and
// fills the uncovered lines around them with gap regions, so that every line
// of the file belongs to exactly one region.
func regions(li *LineIndex, spans []parser.Span) []region {
	last := li.Count() - 1
	out := make([]region, 0, 2*len(spans)+1)
	cursor := 0

	for _, sp := range spans {
		s, e := li.LineRange(sp.Start, sp.End)
		if s < cursor {
			// Two nodes sharing a line
			s = cursor
		}
		if e > last {
			e = last
		}
		if s > e {
			continue
		}
		if s > cursor {
			out = append(out, region{start: cursor, end: s - 1})
		}
		out = append(out, region{start: s, end: e, expand: true})
		cursor = e + 1
	}

	if cursor <= last {
		out = append(out, region{start: cursor, end: last})
	}
	return out
}

// buildStructural turns selected spans into chunks applying the overlap,
// merge-small and split-large policies in a single left-to-right pass.
func (c *Chunker) buildStructural(filePath, lang string, li *LineIndex, spans []parser.Span) []types.Chunk {
	rs := regions(li, spans)
	st := buildState{}
	for i, r := range rs {
		st = c.step(st, filePath, lang, li, r, i == len(rs)-1)
	}
	return st.chunks
}

// step applies the size policies to one region and returns the updated accumulator.
// A small last region stays standalone when merging it would push the previous chunk past MaxChars.
func (c *Chunker) step(st buildState, filePath, lang string, li *LineIndex, r region, isLast bool) buildState {
	s, e := r.start, r.end
	if r.expand {
		s = max(0, s-c.cfg.Overlap)
		e = min(li.Count()-1, e+c.cfg.Overlap)
	}
	if st.carry != nil {
		s = min(s, st.carry.start)
		e = max(e, st.carry.end)
		st.carry = nil
	}

	size := li.SpanLen(s, e)
	switch {
	case size > c.cfg.MaxChars:
		for _, b := range lineBlocks(li, s, e, c.cfg.MaxChars, c.cfg.Overlap) {
			st.chunks = append(st.chunks, newChunk(filePath, lang, li, b.start, b.end, false))
		}

	case size < c.cfg.MinChars:
		if n := len(st.chunks); n > 0 {
			prev := st.chunks[n-1]
			ps := prev.StartLine - 1
			pe := max(prev.EndLine-1, e)
			if li.SpanLen(ps, pe) <= c.cfg.MaxChars {
				st.chunks[n-1] = newChunk(filePath, lang, li, ps, pe, false)
				return st
			}
		}
		if !isLast {
			st.carry = &lineRange{start: s, end: e}
			return st
		}
		st.chunks = append(st.chunks, newChunk(filePath, lang, li, s, e, false))

	default:
		st.chunks = append(st.chunks, newChunk(filePath, lang, li, s, e, false))
	}
	return st
}

// lineBlocks partitions lines first..last into greedy blocks of at most
// maxChars bytes. Each block after the first starts overlap lines before the
// previous block's end but always advances by at least one line. A single
// line wider than maxChars becomes a block of its own.
func lineBlocks(li *LineIndex, first, last, maxChars, overlap int) []lineRange {
	var blocks []lineRange
	i := first
	for i <= last {
		j := i
		for j < last && li.SpanLen(i, j+1) <= maxChars {
			j++
		}
		blocks = append(blocks, lineRange{start: i, end: j})
		if j >= last {
			break
		}

		next := j + 1 - overlap
		if next <= i {
			next = i + 1
		}
		// A block from next that cannot reach j+1 would add no new lines
		if li.SpanLen(next, j+1) > maxChars {
			next = j + 1
		}
		i = next
	}
	return blocks
}

// newChunk builds a chunk whose text is the exact slice of lines s..e
func newChunk(filePath, lang string, li *LineIndex, s, e int, fallback bool) types.Chunk {
	text := li.Slice(s, e)
	return types.Chunk{
		ID:         MakeID(filePath, s+1, e+1, text),
		FilePath:   filePath,
		StartLine:  s + 1,
		EndLine:    e + 1,
		Text:       text,
		Lang:       lang,
		IsFallback: fallback,
	}
}
