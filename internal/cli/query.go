package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/knowthecode/internal/retriever"
	"github.com/dshills/knowthecode/internal/storage"
)

func newQueryCmd(a *app) *cobra.Command {
	var (
		topK           int
		mode           string
		langs          []string
		pattern        string
		structuralOnly bool
		asJSON         bool
	)

	cmd := &cobra.Command{
		Use:   "query <repo> <question...>",
		Short: "Retrieve relevant chunks and print them as prompt context",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			emb, err := a.newEmbedder()
			if err != nil {
				return err
			}
			if emb != nil {
				defer func() { _ = emb.Close() }()
			}

			req := retriever.Request{
				RepoID: args[0],
				Query:  strings.Join(args[1:], " "),
				TopK:   topK,
				Mode:   retriever.Mode(mode),
			}
			if len(langs) > 0 || pattern != "" || structuralOnly {
				req.Filters = &storage.SearchFilters{
					Langs:           langs,
					FilePattern:     pattern,
					ExcludeFallback: structuralOnly,
				}
			}

			r := retriever.New(store, emb, retriever.WithLogger(a.logger))
			resp, err := r.Retrieve(cmd.Context(), req)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(w, resp.Results, true)
			}
			if len(resp.Results) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), warnText("no matching chunks"))
				return nil
			}
			_, err = fmt.Fprintln(w, retriever.BuildContext(resp.Chunks()))
			return err
		},
	}

	f := cmd.Flags()
	f.IntVarP(&topK, "top-k", "k", retriever.DefaultTopK, "number of chunks to retrieve")
	f.StringVarP(&mode, "mode", "m", string(retriever.ModeHybrid), "retrieval mode: hybrid, vector or keyword")
	f.StringSliceVar(&langs, "lang", nil, "only chunks with these language tags")
	f.StringVar(&pattern, "path", "", "only files matching this glob, e.g. 'internal/*'")
	f.BoolVar(&structuralOnly, "structural-only", false, "skip chunks produced by fallback strategies")
	f.BoolVar(&asJSON, "json", false, "print ranked results as JSON")
	return cmd
}
