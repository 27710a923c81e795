package indexer

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/dshills/knowthecode/pkg/types"
)

// syntheticRecords builds n Go files with a handful of functions each
func syntheticRecords(n int) []types.FileRecord {
	recs := make([]types.FileRecord, n)
	for i := range recs {
		var sb strings.Builder
		fmt.Fprintf(&sb, "package pkg%d\n\n", i)
		for j := 0; j < 8; j++ {
			fmt.Fprintf(&sb, "// Func%d returns a constant\nfunc Func%d() int {\n\tx := %d\n\treturn x * %d\n}\n\n", j, j, j, i)
		}
		recs[i] = types.FileRecord{Path: fmt.Sprintf("pkg%d/file.go", i), Content: sb.String()}
	}
	return recs
}

// BenchmarkIndexRecords measures a full ingest into a fresh database
func BenchmarkIndexRecords(b *testing.B) {
	for _, workers := range []int{1, 4} {
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			recs := syntheticRecords(50)
			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				b.StopTimer()
				store := setupTestStorage(b)
				idx := New(store, newMockEmbedder())
				b.StartTimer()

				if _, err := idx.IndexRecords(context.Background(), "bench", recs, &Config{Workers: workers}); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkReindexUnchanged measures the hash-skip path
func BenchmarkReindexUnchanged(b *testing.B) {
	store := setupTestStorage(b)
	idx := New(store, newMockEmbedder())
	recs := syntheticRecords(50)
	ctx := context.Background()

	if _, err := idx.IndexRecords(ctx, "bench", recs, nil); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		stats, err := idx.IndexRecords(ctx, "bench", recs, nil)
		if err != nil {
			b.Fatal(err)
		}
		if stats.FilesSkipped != len(recs) {
			b.Fatalf("expected %d skipped, got %d", len(recs), stats.FilesSkipped)
		}
	}
}
