// Package parser selects chunk-worthy syntax regions from source files.
//
// Structural parsers are exposed through a Registry that maps a language tag
// to a Handle. The process-wide registry is built once on first use by
// probing which grammars are linked into the binary, and is read-only after
// that. A language without a registered handle is not an error: the chunker
// simply takes one of its fallback strategies.
//
// # Basic Usage
//
//	reg := parser.Default()
//	h, ok := reg.Lookup("python")
//	if !ok {
//	    // no grammar: use a fallback chunker
//	}
//	spans, err := parser.SelectSpans(ctx, h, content)
//
// # Handles
//
// Go source is always handled by go/parser (GoHandle), so Go files get
// structural chunks in every build. All other languages are handled by
// Tree-sitter grammars (TreeSitterHandle), which require CGO:
//
//	CGO_ENABLED=1 go build ./...                     # Tree-sitter grammars linked
//	CGO_ENABLED=0 go build -tags "purego" ./...      # go/ast only
//
// # Selection
//
// Each language declares the node types that are embedded independently
// (functions, classes, methods, module-scope declarations, export wrappers).
// The tree is walked pre-order; once a node matches, its subtree is not
// descended into, so a method inside a matched class stays part of the class
// span. If nothing below the root matches, a single whole-file span is
// returned and the chunker subdivides it by size.
//
// # Error Handling
//
// Syntax errors, error nodes in the tree and panics inside a grammar are all
// reported as errors (ErrSyntax, ErrParserPanic). Callers treat any error as
// "no structural result" and fall back.
package parser
