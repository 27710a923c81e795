//go:build !cgo || purego

package parser

// This file is compiled when building without CGO or with the purego tag.
// No Tree-sitter grammars are linked; only the go/ast handle is registered
// and every other language takes a fallback chunker.
//
// Build command:
//   CGO_ENABLED=0 go build -tags "purego" ./...

// GrammarMode describes how structural parsers are provided in this build
const GrammarMode = "purego"

func registerGrammars(*Registry) {}
