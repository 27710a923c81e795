package parser

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	assert.NotNil(t, r)
	assert.Empty(t, r.Languages())

	_, ok := r.Lookup("python")
	assert.False(t, ok)
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	r.Register("go", NewGoHandle())
	r.Register("alpha", NewGoHandle())

	h, ok := r.Lookup("go")
	require.True(t, ok)
	assert.NotNil(t, h)
	assert.True(t, r.Has("go"))
	assert.False(t, r.Has("cobol"))
	assert.Equal(t, []string{"alpha", "go"}, r.Languages())
}

func TestDefault_AlwaysHasGo(t *testing.T) {
	reg := Default()
	assert.True(t, reg.Has("go"))
	// Markdown and JSON are always chunked by their fallbacks
	assert.False(t, reg.Has("markdown"))
	assert.False(t, reg.Has("json"))
	// Same instance on every call
	assert.Same(t, reg, Default())
}

func TestGoHandle_TopLevelDeclarations(t *testing.T) {
	content := `package testpkg

import "fmt"

// User represents a user in the system
type User struct {
	ID   int
	Name string
}

// GetName returns the user's name
func (u *User) GetName() string {
	return u.Name
}

// NewUser creates a new user
func NewUser(id int, name string) *User {
	fmt.Println("creating", name)
	return &User{ID: id, Name: name}
}
`
	spans, err := NewGoHandle().Spans(context.Background(), []byte(content))
	require.NoError(t, err)
	require.Len(t, spans, 4)

	kinds := make([]string, len(spans))
	for i, s := range spans {
		kinds[i] = s.Kind
	}
	assert.Equal(t, []string{
		"import_declaration",
		"type_declaration",
		"method_declaration",
		"function_declaration",
	}, kinds)

	// Doc comments are part of the declaration span
	typeText := content[spans[1].Start:spans[1].End]
	assert.True(t, strings.HasPrefix(typeText, "// User represents"))
	assert.True(t, strings.HasSuffix(typeText, "}"))

	// Spans are ordered and non-overlapping
	for i := 1; i < len(spans); i++ {
		assert.LessOrEqual(t, spans[i-1].End, spans[i].Start)
	}
}

func TestGoHandle_NestedFunctionsStayInParent(t *testing.T) {
	content := `package main

func outer() {
	inner := func() int { return 1 }
	_ = inner()
}
`
	spans, err := NewGoHandle().Spans(context.Background(), []byte(content))
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, "function_declaration", spans[0].Kind)
}

func TestGoHandle_PackageOnlyReturnsWholeFile(t *testing.T) {
	content := "package main\n"
	spans, err := NewGoHandle().Spans(context.Background(), []byte(content))
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, 0, spans[0].Start)
	assert.Equal(t, len(content), spans[0].End)
	assert.Equal(t, "source_file", spans[0].Kind)
}

func TestGoHandle_SyntaxError(t *testing.T) {
	content := "package main\n\nfunc broken( {\n"
	spans, err := NewGoHandle().Spans(context.Background(), []byte(content))
	assert.ErrorIs(t, err, ErrSyntax)
	assert.Nil(t, spans)
}

func TestGoHandle_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewGoHandle().Spans(ctx, []byte("package main\n"))
	assert.ErrorIs(t, err, context.Canceled)
}

type panickingHandle struct{}

func (panickingHandle) Spans(context.Context, []byte) ([]Span, error) {
	panic("unexpected node shape")
}

func TestSelectSpans_RecoversPanics(t *testing.T) {
	spans, err := SelectSpans(context.Background(), panickingHandle{}, []byte("x"))
	assert.ErrorIs(t, err, ErrParserPanic)
	assert.Contains(t, err.Error(), "unexpected node shape")
	assert.Nil(t, spans)
}

func TestSelectSpans_EmptySource(t *testing.T) {
	_, err := SelectSpans(context.Background(), NewGoHandle(), nil)
	assert.ErrorIs(t, err, ErrEmptySource)
}

func TestPolicyFor(t *testing.T) {
	tests := []struct {
		lang     string
		nodeType string
		want     bool
	}{
		{"python", "function_definition", true},
		{"python", "class_definition", true},
		{"python", "if_statement", false},
		{"javascript", "export_statement", true},
		{"javascript", "lexical_declaration", true},
		{"typescript", "interface_declaration", true},
		{"typescript", "function_declaration", true},
		{"javascript", "interface_declaration", false},
		{"rust", "impl_item", true},
		{"yaml", "block_mapping", false},
		{"unknown-lang", "function_definition", false},
	}

	for _, tt := range tests {
		t.Run(tt.lang+"/"+tt.nodeType, func(t *testing.T) {
			assert.Equal(t, tt.want, PolicyFor(tt.lang).Matches(tt.nodeType))
		})
	}
}

func TestPolicyFor_TypeScriptDoesNotAliasJavaScript(t *testing.T) {
	// Extending the TS list must not leak into the JS policy
	assert.False(t, PolicyFor("javascript").Matches("type_alias_declaration"))
	assert.Empty(t, PolicyFor("toml"))
}

func TestPolicy_SelectsModuleScopeDeclarations(t *testing.T) {
	tests := []struct {
		lang        string
		nodeType    string
		moduleScope bool
		want        bool
	}{
		{"javascript", "lexical_declaration", true, true},
		{"javascript", "lexical_declaration", false, false},
		{"javascript", "variable_declaration", false, false},
		{"javascript", "function_declaration", false, true},
		{"c", "declaration", true, true},
		{"c", "declaration", false, false},
		{"c", "function_definition", false, true},
		{"python", "lexical_declaration", true, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s/%t", tt.lang, tt.nodeType, tt.moduleScope), func(t *testing.T) {
			assert.Equal(t, tt.want, PolicyFor(tt.lang).Selects(tt.nodeType, tt.moduleScope))
		})
	}
}

func TestKeepsModuleScope(t *testing.T) {
	assert.True(t, keepsModuleScope("export_statement"))
	assert.True(t, keepsModuleScope("preproc_ifdef"))
	assert.False(t, keepsModuleScope("call_expression"))
	assert.False(t, keepsModuleScope("statement_block"))
}
