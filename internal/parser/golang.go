package parser

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
)

// GoHandle selects top-level declarations from Go source using go/parser.
// It needs no grammar and is registered in every build.
type GoHandle struct{}

// NewGoHandle creates a new GoHandle instance
func NewGoHandle() *GoHandle {
	return &GoHandle{}
}

// Spans parses Go source and returns one span per top-level declaration
func (g *GoHandle) Spans(ctx context.Context, content []byte) ([]Span, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// A fresh FileSet per call keeps the handle safe for concurrent use
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "", content, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}

	tokFile := fset.File(file.Pos())
	if tokFile == nil {
		return nil, fmt.Errorf("%w: no position information", ErrSyntax)
	}

	extractor := &declExtractor{
		tokFile: tokFile,
		size:    len(content),
	}
	for _, decl := range file.Decls {
		extractor.visit(decl)
	}

	if len(extractor.spans) == 0 {
		return wholeFile(content, "source_file"), nil
	}
	return extractor.spans, nil
}

// declExtractor collects spans for top-level declarations only.
// Declarations nested in function bodies stay inside their parent span.
type declExtractor struct {
	tokFile *token.File
	size    int
	spans   []Span
}

func (e *declExtractor) visit(decl ast.Decl) {
	switch d := decl.(type) {
	case *ast.FuncDecl:
		kind := "function_declaration"
		if d.Recv != nil && len(d.Recv.List) > 0 {
			kind = "method_declaration"
		}
		e.add(d.Doc, d.Pos(), d.End(), kind)
	case *ast.GenDecl:
		e.add(d.Doc, d.Pos(), d.End(), genDeclKind(d.Tok))
	}
}

// add records a span, widening it to include the doc comment when present
func (e *declExtractor) add(doc *ast.CommentGroup, pos, end token.Pos, kind string) {
	if doc != nil {
		pos = doc.Pos()
	}
	start := e.offset(pos)
	stop := e.offset(end)
	if stop <= start {
		return
	}
	e.spans = append(e.spans, Span{Start: start, End: stop, Kind: kind})
}

// offset converts a token position to a byte offset, clamped to the source
func (e *declExtractor) offset(pos token.Pos) int {
	if !pos.IsValid() {
		return 0
	}
	off := e.tokFile.Offset(pos)
	if off > e.size {
		return e.size
	}
	return off
}

// genDeclKind maps a declaration keyword to a node kind name
func genDeclKind(tok token.Token) string {
	switch tok {
	case token.TYPE:
		return "type_declaration"
	case token.CONST:
		return "const_declaration"
	case token.VAR:
		return "var_declaration"
	case token.IMPORT:
		return "import_declaration"
	default:
		return "declaration"
	}
}
