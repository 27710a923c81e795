package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/dshills/knowthecode/pkg/types"
)

func benchGoSource(funcs int) string {
	var b strings.Builder
	b.WriteString("package bench\n\nimport \"fmt\"\n\n")
	for i := 0; i < funcs; i++ {
		fmt.Fprintf(&b, "// Func%d prints its index\nfunc Func%d() {\n\tfmt.Println(%d)\n}\n\n", i, i, i)
	}
	return b.String()
}

func BenchmarkChunkFile_Go(b *testing.B) {
	c := New()
	rec := types.FileRecord{Path: "bench.go", Content: benchGoSource(200)}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.ChunkFile(rec)
	}
}

func BenchmarkChunkFile_Generic(b *testing.B) {
	c := New()
	rec := types.FileRecord{Path: "bench.log", Content: strings.Repeat("a line of plain log output\n", 5000)}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.ChunkFile(rec)
	}
}

func BenchmarkNewLineIndex(b *testing.B) {
	content := benchGoSource(500)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = NewLineIndex(content)
	}
}
