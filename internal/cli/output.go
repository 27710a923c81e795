package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/dshills/knowthecode/internal/chunker"
	"github.com/dshills/knowthecode/internal/indexer"
)

var (
	okText   = color.New(color.FgGreen).SprintFunc()
	warnText = color.New(color.FgYellow).SprintFunc()
	errText  = color.New(color.FgRed).SprintFunc()
	boldText = color.New(color.Bold).SprintFunc()
)

// printSummary writes the chunking strategy counters
func printSummary(w io.Writer, s chunker.Summary) {
	fmt.Fprintf(w, "%s %d files, %d chunks\n", boldText("chunked"), s.Files, s.Chunks)
	fmt.Fprintf(w, "  structural: %s\n", okText(s.Structural))
	fmt.Fprintf(w, "  markdown:   %d\n", s.Markdown)
	fmt.Fprintf(w, "  json:       %d\n", s.JSON)
	fmt.Fprintf(w, "  generic:    %d\n", s.Generic)
	fmt.Fprintf(w, "  degenerate: %d\n", s.Degenerate)

	failures := fmt.Sprint(s.ParseFailures)
	if s.ParseFailures > 0 {
		failures = warnText(s.ParseFailures)
	}
	fmt.Fprintf(w, "  parse failures: %s\n", failures)
}

// printStats writes the outcome of one ingest
func printStats(w io.Writer, repoID string, st *indexer.Statistics) {
	fmt.Fprintf(w, "%s %s (run %s) in %v\n",
		okText("ingested"), boldText(repoID), st.RunID, st.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  files:  %d indexed, %d unchanged, %d removed", st.FilesIndexed, st.FilesSkipped, st.FilesRemoved)
	if st.FilesFailed > 0 {
		fmt.Fprintf(w, ", %s", errText(fmt.Sprintf("%d failed", st.FilesFailed)))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  chunks: %d (%d embedded)\n", st.ChunksCreated, st.EmbeddingsCreated)
	if st.Summary.Files > 0 {
		printSummary(w, st.Summary)
	}
	for _, msg := range st.ErrorMessages {
		fmt.Fprintf(w, "  %s %s\n", errText("error:"), msg)
	}
}

// writeJSON encodes v without HTML escaping
func writeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
