package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/knowthecode/internal/reader"
	"github.com/dshills/knowthecode/pkg/types"
)

func newChunkCmd(a *app) *cobra.Command {
	var (
		out     string
		pretty  bool
		summary bool
	)

	cmd := &cobra.Command{
		Use:   "chunk <dir|records.json>",
		Short: "Chunk a directory or a file-record JSON array",
		Long: "Reads a repository directory, or a JSON array of {\"path\", \"content\"} " +
			"records, and writes the chunks as a JSON array.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.newChunker()
			if err != nil {
				return err
			}

			recs, err := a.loadInput(cmd, args[0])
			if err != nil {
				return err
			}

			chunks, sum := c.ChunkFiles(cmd.Context(), recs)
			if chunks == nil {
				chunks = []types.Chunk{}
			}

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("failed to create output: %w", err)
				}
				defer func() { _ = f.Close() }()
				w = f
			}
			if err := writeJSON(w, chunks, pretty); err != nil {
				return fmt.Errorf("failed to write chunks: %w", err)
			}

			if summary {
				printSummary(cmd.ErrOrStderr(), sum)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "write chunks to this file instead of stdout")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent JSON output")
	cmd.Flags().BoolVar(&summary, "summary", false, "print the strategy summary to stderr")
	return cmd
}

// loadInput reads records from a directory walk or a records file
func (a *app) loadInput(cmd *cobra.Command, path string) ([]types.FileRecord, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return reader.ReadRepo(cmd.Context(), path, reader.Options{Logger: a.logger})
	}
	return reader.LoadRecordsFile(path)
}
