//go:build cgo && !purego

package parser

// This file is compiled when CGO is available. It registers the Tree-sitter
// grammars linked into the binary.
//
// Build command:
//   CGO_ENABLED=1 go build ./...
//
// Driver used: github.com/smacker/go-tree-sitter

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	tsc "github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/css"
	"github.com/smacker/go-tree-sitter/dockerfile"
	"github.com/smacker/go-tree-sitter/hcl"
	"github.com/smacker/go-tree-sitter/html"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/lua"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/protobuf"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/scala"
	"github.com/smacker/go-tree-sitter/sql"
	"github.com/smacker/go-tree-sitter/swift"
	"github.com/smacker/go-tree-sitter/toml"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	tstype "github.com/smacker/go-tree-sitter/typescript/typescript"
	"github.com/smacker/go-tree-sitter/yaml"
)

// GrammarMode describes how structural parsers are provided in this build
const GrammarMode = "treesitter"

// grammars returns the linked Tree-sitter languages keyed by language tag
func grammars() map[string]func() *sitter.Language {
	return map[string]func() *sitter.Language{
		"python":     python.GetLanguage,
		"javascript": javascript.GetLanguage,
		"typescript": tstype.GetLanguage,
		"tsx":        tsx.GetLanguage,
		"java":       java.GetLanguage,
		"c":          tsc.GetLanguage,
		"cpp":        cpp.GetLanguage,
		"csharp":     csharp.GetLanguage,
		"rust":       rust.GetLanguage,
		"ruby":       ruby.GetLanguage,
		"php":        php.GetLanguage,
		"kotlin":     kotlin.GetLanguage,
		"swift":      swift.GetLanguage,
		"scala":      scala.GetLanguage,
		"bash":       bash.GetLanguage,
		"lua":        lua.GetLanguage,
		"yaml":       yaml.GetLanguage,
		"toml":       toml.GetLanguage,
		"html":       html.GetLanguage,
		"css":        css.GetLanguage,
		"sql":        sql.GetLanguage,
		"protobuf":   protobuf.GetLanguage,
		"hcl":        hcl.GetLanguage,
		"dockerfile": dockerfile.GetLanguage,
	}
}

// registerGrammars probes every linked grammar and registers the ones that load
func registerGrammars(r *Registry) {
	for lang, load := range grammars() {
		language := probe(load)
		if language == nil {
			continue
		}
		r.Register(lang, &TreeSitterHandle{
			lang:     lang,
			language: language,
			policy:   PolicyFor(lang),
		})
	}
}

// probe loads a grammar, treating a panic or nil result as "not available"
func probe(load func() *sitter.Language) (language *sitter.Language) {
	defer func() {
		if recover() != nil {
			language = nil
		}
	}()
	return load()
}

// TreeSitterHandle selects spans using a Tree-sitter grammar
type TreeSitterHandle struct {
	lang     string
	language *sitter.Language
	policy   Policy
}

// Spans parses content and walks the tree pre-order, stopping at matched nodes
func (h *TreeSitterHandle) Spans(ctx context.Context, content []byte) ([]Span, error) {
	// Parsers are not safe for concurrent use; languages are
	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(h.language)

	tree, err := p.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSyntax, h.lang, err)
	}
	if tree == nil {
		return nil, fmt.Errorf("%w: %s: no tree", ErrSyntax, h.lang)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("%w: %s: no root node", ErrSyntax, h.lang)
	}
	if root.HasError() {
		return nil, fmt.Errorf("%w: %s: tree contains error nodes", ErrSyntax, h.lang)
	}

	spans := selectNodes(root, h.policy, len(content))
	if len(spans) == 0 {
		return wholeFile(content, root.Type()), nil
	}
	return spans, nil
}

// selectNodes collects matching descendants of root in document order.
// The root itself is not matched; callers fall back to the whole file.
// Module-scope declarations match only as direct children of the root or
// of a container such as an export statement.
func selectNodes(root *sitter.Node, policy Policy, size int) []Span {
	if len(policy) == 0 {
		return nil
	}

	var spans []Span
	var walk func(n *sitter.Node, moduleScope bool)
	walk = func(n *sitter.Node, moduleScope bool) {
		if policy.Selects(n.Type(), moduleScope) {
			start, end := int(n.StartByte()), int(n.EndByte())
			if end > size {
				end = size
			}
			if end > start {
				spans = append(spans, Span{Start: start, End: end, Kind: n.Type()})
			}
			return
		}
		inner := moduleScope && keepsModuleScope(n.Type())
		for i := 0; i < int(n.ChildCount()); i++ {
			if child := n.Child(i); child != nil {
				walk(child, inner)
			}
		}
	}

	for i := 0; i < int(root.ChildCount()); i++ {
		if child := root.Child(i); child != nil {
			walk(child, true)
		}
	}
	return spans
}
