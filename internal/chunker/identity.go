package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// IDPrefixBytes is how much of a chunk's text feeds its ID
const IDPrefixBytes = 200

// idSeparator cannot appear in a decimal line number and is rare in paths
const idSeparator = "\x1f"

// MakeID returns the content-addressed ID of a chunk.
//
// The ID is the hex SHA-256 of path, start line, end line and, when text is
// non-empty, the first IDPrefixBytes bytes of text. Re-chunking unchanged
// input yields the same IDs, so downstream upserts stay idempotent.
func MakeID(path string, startLine, endLine int, text string) string {
	return makeID(path, startLine, endLine, -1, text)
}

// elementID is MakeID for a chunk whose line range is already taken by an
// earlier chunk of the same file. The element ordinal keeps it distinct.
func elementID(path string, startLine, endLine, ordinal int, text string) string {
	return makeID(path, startLine, endLine, ordinal, text)
}

func makeID(path string, startLine, endLine, ordinal int, text string) string {
	h := sha256.New()
	h.Write([]byte(path))
	h.Write([]byte(idSeparator))
	h.Write([]byte(strconv.Itoa(startLine)))
	h.Write([]byte(idSeparator))
	h.Write([]byte(strconv.Itoa(endLine)))
	if ordinal >= 0 {
		h.Write([]byte(idSeparator + "#"))
		h.Write([]byte(strconv.Itoa(ordinal)))
	}
	if text != "" {
		if len(text) > IDPrefixBytes {
			text = text[:IDPrefixBytes]
		}
		h.Write([]byte(idSeparator))
		h.Write([]byte(text))
	}
	return hex.EncodeToString(h.Sum(nil))
}
