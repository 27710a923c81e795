package chunker

import "sort"

// LineIndex maps UTF-8 byte offsets of a file to 0-indexed line numbers.
//
// Offsets are bytes, not runes, because structural parsers report byte
// positions. Empty text is indexed as a single zero offset with Count() == 0.
// A trailing newline terminates the last line; it does not open a new one.
type LineIndex struct {
	content string
	starts  []int
}

// NewLineIndex builds the line-start table for content
func NewLineIndex(content string) *LineIndex {
	starts := make([]int, 1, 64)
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' && i+1 < len(content) {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{
		content: content,
		starts:  starts,
	}
}

// Starts returns the byte offset of every line start
func (li *LineIndex) Starts() []int {
	return li.starts
}

// Count returns the number of lines; zero for empty content
func (li *LineIndex) Count() int {
	if len(li.content) == 0 {
		return 0
	}
	return len(li.starts)
}

// LineOf returns the greatest line i such that Starts()[i] <= offset, clamped to 0
func (li *LineIndex) LineOf(offset int) int {
	if offset <= 0 {
		return 0
	}
	i := sort.Search(len(li.starts), func(i int) bool {
		return li.starts[i] > offset
	})
	return i - 1
}

// LineRange converts a [start, end) byte span to inclusive 0-indexed lines
func (li *LineIndex) LineRange(start, end int) (int, int) {
	first := li.LineOf(start)
	if end <= start {
		return first, first
	}
	return first, li.LineOf(end - 1)
}

// Slice returns the text of lines s..e (0-indexed, inclusive), terminators included
func (li *LineIndex) Slice(s, e int) string {
	return li.content[li.starts[s]:li.lineEnd(e)]
}

// SpanLen returns the byte length of lines s..e (0-indexed, inclusive)
func (li *LineIndex) SpanLen(s, e int) int {
	return li.lineEnd(e) - li.starts[s]
}

// LineLen returns the byte length of line i including its terminator
func (li *LineIndex) LineLen(i int) int {
	return li.lineEnd(i) - li.starts[i]
}

// lineEnd returns the exclusive byte offset where line i ends
func (li *LineIndex) lineEnd(i int) int {
	if i+1 < len(li.starts) {
		return li.starts[i+1]
	}
	return len(li.content)
}
