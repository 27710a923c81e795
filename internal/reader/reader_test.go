package reader

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/knowthecode/pkg/types"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func paths(recs []types.FileRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Path
	}
	return out
}

func TestReadRepo(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "README.md", "# Demo\n")
	writeFile(t, root, "Makefile", "all:\n\tgo build\n")
	writeFile(t, root, "pkg/util/util.py", "def f():\n    pass\n")
	writeFile(t, root, "config/app.json", `{"a": 1}`)
	writeFile(t, root, "image.png", "\x89PNG")
	writeFile(t, root, "notes.unknownext", "hello")
	writeFile(t, root, ".git/config", "[core]\n")
	writeFile(t, root, "node_modules/lib/index.js", "module.exports = 1\n")
	writeFile(t, root, ".github/workflows/ci.yml", "on: push\n")
	writeFile(t, root, "vendor/x/x.go", "package x\n")

	recs, err := ReadRepo(context.Background(), root, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Makefile",
		"README.md",
		"config/app.json",
		"main.go",
		"pkg/util/util.py",
	}, paths(recs))
	assert.Equal(t, "package main\n", recs[3].Content)
}

func TestReadRepo_IncludeHidden(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".github/workflows/ci.yml", "on: push\n")
	writeFile(t, root, ".git/HEAD.md", "ref\n")

	recs, err := ReadRepo(context.Background(), root, Options{IncludeHidden: true})
	require.NoError(t, err)
	// .git stays excluded through the default skip list
	assert.Equal(t, []string{".github/workflows/ci.yml"}, paths(recs))
}

func TestReadRepo_SkipsLargeAndBinary(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "small.go", "package a\n")
	writeFile(t, root, "big.go", "package a\n"+strings.Repeat("// x\n", 100))
	writeFile(t, root, "nul.go", "package a\x00\n")
	writeFile(t, root, "latin1.txt", "caf\xe9\n")

	recs, err := ReadRepo(context.Background(), root, Options{MaxFileBytes: 64})
	require.NoError(t, err)
	assert.Equal(t, []string{"small.go"}, paths(recs))
}

func TestReadRepo_Errors(t *testing.T) {
	_, err := ReadRepo(context.Background(), filepath.Join(t.TempDir(), "missing"), DefaultOptions())
	assert.Error(t, err)

	root := t.TempDir()
	writeFile(t, root, "file.go", "package a\n")
	_, err = ReadRepo(context.Background(), filepath.Join(root, "file.go"), DefaultOptions())
	assert.ErrorIs(t, err, ErrNotDirectory)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ReadRepo(ctx, root, DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsText(t *testing.T) {
	assert.True(t, IsText([]byte("héllo\n")))
	assert.True(t, IsText(nil))
	assert.False(t, IsText([]byte{'a', 0, 'b'}))
	assert.False(t, IsText([]byte{0xff, 0xfe}))
}

func TestRepoIDFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://github.com/user/test.git", "test"},
		{"https://github.com/user/test", "test"},
		{"https://github.com/user/test/", "test"},
		{"git@github.com:user/Calculator-You.git", "Calculator-You"},
		{"test", "test"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RepoIDFromURL(tt.url), tt.url)
	}
}

func TestRepoIDFromPath(t *testing.T) {
	assert.Equal(t, "demo", RepoIDFromPath("/src/demo/"))
	assert.Equal(t, "demo", RepoIDFromPath(filepath.Join(t.TempDir(), "demo")))
}

func TestRecordsRoundTrip(t *testing.T) {
	recs := []types.FileRecord{
		{Path: "a.go", Content: "package a\n"},
		{Path: "web/index.html", Content: "<p>&</p>\n"},
	}

	var buf bytes.Buffer
	require.NoError(t, SaveRecords(&buf, recs))
	assert.Contains(t, buf.String(), "<p>&</p>", "HTML is not escaped")

	got, err := LoadRecords(&buf)
	require.NoError(t, err)
	assert.Equal(t, recs, got)
}

func TestLoadRecords_Invalid(t *testing.T) {
	_, err := LoadRecords(strings.NewReader(`{"path": "a"}`))
	assert.Error(t, err)

	_, err = LoadRecords(strings.NewReader(`[{"content": "x"}]`))
	assert.Error(t, err)
}

func TestLoadRecordsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "records.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"path":"a.md","content":"# A\n"}]`), 0o644))

	recs, err := LoadRecordsFile(path)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "# A\n", recs[0].Content)
}
