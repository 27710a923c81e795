package chunker

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/dshills/knowthecode/pkg/types"
)

var errNotContainer = errors.New("top level is not an object or array")

// markdownChunks splits a document at every line whose trimmed form starts
// with '#'. Lines before the first heading form their own section.
func (c *Chunker) markdownChunks(filePath string, li *LineIndex) ([]types.Chunk, bool) {
	n := li.Count()
	if n == 0 {
		return nil, false
	}

	var sections []lineRange
	start := 0
	for i := 1; i < n; i++ {
		if isHeading(li.Slice(i, i)) {
			sections = append(sections, lineRange{start: start, end: i - 1})
			start = i
		}
	}
	sections = append(sections, lineRange{start: start, end: n - 1})

	chunks := make([]types.Chunk, 0, len(sections))
	for _, sec := range sections {
		chunks = append(chunks, c.boundedChunks(filePath, types.LangMarkdown, li, sec.start, sec.end)...)
	}
	return chunks, true
}

func isHeading(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "#")
}

// genericChunks covers the whole file with greedy overlapping line blocks
func (c *Chunker) genericChunks(filePath, lang string, li *LineIndex) ([]types.Chunk, bool) {
	n := li.Count()
	if n == 0 {
		return nil, false
	}
	return c.blockChunks(filePath, lang, li, 0, n-1), true
}

// boundedChunks emits s..e as one chunk, or as line blocks when it is too large
func (c *Chunker) boundedChunks(filePath, lang string, li *LineIndex, s, e int) []types.Chunk {
	if li.SpanLen(s, e) <= c.cfg.MaxChars {
		return []types.Chunk{newChunk(filePath, lang, li, s, e, true)}
	}
	return c.blockChunks(filePath, lang, li, s, e)
}

func (c *Chunker) blockChunks(filePath, lang string, li *LineIndex, s, e int) []types.Chunk {
	blocks := lineBlocks(li, s, e, c.cfg.MaxChars, c.cfg.Overlap)
	chunks := make([]types.Chunk, 0, len(blocks))
	for _, b := range blocks {
		chunks = append(chunks, newChunk(filePath, lang, li, b.start, b.end, true))
	}
	return chunks
}

// jsonElement is one top-level key/value pair or array element
type jsonElement struct {
	start int // byte offset of the key or element
	end   int // byte offset just past the value
	text  string
}

// jsonChunks emits one chunk per top-level key (as a single-key object) or
// per array element. Scalars, empty containers and malformed documents
// report no result so the caller can use the generic strategy.
func (c *Chunker) jsonChunks(filePath, content string, li *LineIndex) ([]types.Chunk, bool) {
	elems, err := splitJSON([]byte(content))
	if err != nil || len(elems) == 0 {
		if err != nil {
			c.logger.Debug("json fallback rejected document", "path", filePath, "error", err)
		}
		return nil, false
	}

	last := li.Count() - 1
	chunks := make([]types.Chunk, 0, len(elems))
	// Elements of a minified document share line ranges; a repeated range
	// gets the element ordinal in its ID
	used := make(map[lineRange]bool, len(elems))
	// Source lines already emitted for oversized elements
	var emitted *lineRange

	for i, el := range elems {
		s := li.LineOf(el.start)
		if i == 0 {
			s = 0
		}
		e := last
		if i+1 < len(elems) {
			e = max(li.LineOf(elems[i+1].start)-1, li.LineOf(el.end-1), s)
		}

		if len(el.text) > c.cfg.MaxChars {
			if emitted != nil && s <= emitted.end {
				s = emitted.end + 1
			}
			if s > e {
				continue
			}
			for _, ch := range c.boundedChunks(filePath, types.LangJSON, li, s, e) {
				r := lineRange{start: ch.StartLine - 1, end: ch.EndLine - 1}
				if used[r] {
					ch.ID = elementID(filePath, ch.StartLine, ch.EndLine, i, ch.Text)
				}
				used[r] = true
				chunks = append(chunks, ch)
			}
			emitted = &lineRange{start: s, end: e}
			continue
		}

		r := lineRange{start: s, end: e}
		id := MakeID(filePath, s+1, e+1, el.text)
		if used[r] {
			id = elementID(filePath, s+1, e+1, i, el.text)
		}
		used[r] = true

		chunks = append(chunks, types.Chunk{
			ID:         id,
			FilePath:   filePath,
			StartLine:  s + 1,
			EndLine:    e + 1,
			Text:       el.text,
			Lang:       types.LangJSON,
			IsFallback: true,
		})
	}
	return chunks, true
}

// splitJSON tokenizes the top level of a JSON or JSONC document.
// Comments and trailing commas are blanked out first; jsonc keeps every
// byte offset and line break in place, so offsets map back to the source.
func splitJSON(src []byte) ([]jsonElement, error) {
	clean := jsonc.ToJSON(src)
	dec := json.NewDecoder(bytes.NewReader(clean))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok || (delim != '{' && delim != '[') {
		return nil, errNotContainer
	}
	isObject := delim == '{'

	var elems []jsonElement
	for dec.More() {
		start := skipSeparators(clean, int(dec.InputOffset()))

		var key string
		if isObject {
			tok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			k, ok := tok.(string)
			if !ok {
				return nil, errors.New("object key is not a string")
			}
			key = k
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		end := int(dec.InputOffset())

		text, err := reserialize(key, raw, isObject)
		if err != nil {
			return nil, err
		}
		elems = append(elems, jsonElement{start: start, end: end, text: text})
	}

	// Closing delimiter, then nothing but whitespace
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after top-level value")
	}
	return elems, nil
}

// reserialize renders an element as indented JSON; object members become
// single-key objects
func reserialize(key string, raw json.RawMessage, isObject bool) (string, error) {
	doc := []byte(raw)
	if isObject {
		var kb bytes.Buffer
		enc := json.NewEncoder(&kb)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(key); err != nil {
			return "", err
		}
		doc = make([]byte, 0, kb.Len()+len(raw)+3)
		doc = append(doc, '{')
		doc = append(doc, bytes.TrimRight(kb.Bytes(), "\n")...)
		doc = append(doc, ':')
		doc = append(doc, raw...)
		doc = append(doc, '}')
	}

	var out bytes.Buffer
	if err := json.Indent(&out, doc, "", "  "); err != nil {
		return "", err
	}
	return out.String(), nil
}

// skipSeparators advances past whitespace and commas to the next token
func skipSeparators(b []byte, off int) int {
	for off < len(b) {
		switch b[off] {
		case ' ', '\t', '\r', '\n', ',':
			off++
		default:
			return off
		}
	}
	return off
}
