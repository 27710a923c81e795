package retriever

import (
	"strings"

	"github.com/dshills/knowthecode/pkg/types"
)

// ContextSeparator separates chunk blocks in an assembled context
const ContextSeparator = "\n\n---\n\n"

// BuildContext renders chunks as prompt context, one
// "File: <path>\n<text>" block per chunk, in the given order.
func BuildContext(chunks []types.Chunk) string {
	var sb strings.Builder
	for i, c := range chunks {
		if i > 0 {
			sb.WriteString(ContextSeparator)
		}
		sb.WriteString("File: ")
		sb.WriteString(c.FilePath)
		sb.WriteByte('\n')
		sb.WriteString(c.Text)
	}
	return sb.String()
}
