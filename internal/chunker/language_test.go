package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"main.go", "go"},
		{"pkg/app/server.PY", "python"},
		{"web/index.tsx", "tsx"},
		{"web/index.ts", "typescript"},
		{"lib.hpp", "cpp"},
		{"docs/guide.md", "markdown"},
		{"package.json", "json"},
		{"deploy/Dockerfile", "dockerfile"},
		{"Dockerfile.prod", "dockerfile"},
		{"Makefile", "make"},
		{`windows\path\tool.rs`, "rust"},
		{"notes.xyz", ""},
		{"LICENSE", "text"},
		{"bin/run", ""},
		{".gitignore", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectLanguage(tt.path))
		})
	}
}

func TestKnownExtensions(t *testing.T) {
	exts := KnownExtensions()
	assert.Contains(t, exts, ".go")
	assert.Contains(t, exts, ".md")
	assert.IsIncreasing(t, exts)
	assert.True(t, IsSupported("a.py"))
	assert.False(t, IsSupported("a.unknownext"))
}
