package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/knowthecode/internal/embedder"
	"github.com/dshills/knowthecode/internal/indexer"
	"github.com/dshills/knowthecode/internal/reader"
	"github.com/dshills/knowthecode/internal/storage"
)

// ErrNoInput is returned when ingest is given neither a directory nor --records
var ErrNoInput = errors.New("a directory or --records is required")

type ingestOptions struct {
	repoID       string
	url          string
	records      string
	skipExisting bool
	force        bool
}

func newIngestCmd(a *app) *cobra.Command {
	var opts ingestOptions

	cmd := &cobra.Command{
		Use:   "ingest <dir>",
		Short: "Chunk, embed and index a repository",
		Long: "Indexes every supported file under dir into the database. Files whose " +
			"content is unchanged since the last ingest are skipped and files that no " +
			"longer exist are removed.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var dir string
			if len(args) == 1 {
				dir = args[0]
			}
			return a.runIngest(cmd, dir, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.repoID, "repo", "r", "", "repository id (default from --url or the directory name)")
	f.StringVar(&opts.url, "url", "", "clone URL recorded with the repository")
	f.StringVar(&opts.records, "records", "", "ingest a file-record JSON array instead of a directory")
	f.BoolVar(&opts.skipExisting, "skip-existing", false, "do nothing if the repository was already ingested")
	f.BoolVar(&opts.force, "force", false, "re-chunk files even if unchanged")
	return cmd
}

func (a *app) runIngest(cmd *cobra.Command, dir string, opts ingestOptions) error {
	if dir == "" && opts.records == "" {
		return ErrNoInput
	}

	repoID := resolveRepoID(opts, dir)
	if repoID == "" {
		return indexer.ErrEmptyRepoID
	}

	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	if opts.skipExisting {
		exists, err := store.RepoExists(ctx, repoID)
		if err != nil {
			return err
		}
		if exists {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s already ingested\n", warnText("skipped"), repoID)
			return nil
		}
	}

	emb, err := a.newEmbedder()
	if err != nil {
		return err
	}
	if emb != nil {
		defer func() { _ = emb.Close() }()
	}

	idx, err := a.newIndexer(store, emb)
	if err != nil {
		return err
	}

	cfg := a.indexerConfig()
	cfg.Force = opts.force
	cfg.URL = opts.url

	var stats *indexer.Statistics
	if opts.records != "" {
		recs, err := reader.LoadRecordsFile(opts.records)
		if err != nil {
			return err
		}
		cfg.Prune = true
		stats, err = idx.IndexRecords(ctx, repoID, recs, cfg)
		if err != nil {
			return err
		}
	} else {
		stats, err = idx.IndexRepo(ctx, repoID, dir, cfg)
		if err != nil {
			return err
		}
	}

	printStats(cmd.OutOrStdout(), repoID, stats)
	return nil
}

// resolveRepoID picks --repo, then the URL's last segment, then the directory name
func resolveRepoID(opts ingestOptions, dir string) string {
	switch {
	case opts.repoID != "":
		return opts.repoID
	case opts.url != "":
		return reader.RepoIDFromURL(opts.url)
	case dir != "":
		return reader.RepoIDFromPath(dir)
	}
	return ""
}

func (a *app) indexerConfig() *indexer.Config {
	cfg := indexer.DefaultConfig()
	if n := a.v.GetInt(keyWorkers); n > 0 {
		cfg.Workers = n
	}
	if n := a.v.GetInt(keyBatchSize); n > 0 {
		cfg.BatchSize = n
	}
	return cfg
}

func (a *app) newIndexer(store storage.Storage, emb embedder.Embedder) (*indexer.Indexer, error) {
	c, err := a.newChunker()
	if err != nil {
		return nil, err
	}
	return indexer.New(store, emb, indexer.WithChunker(c), indexer.WithLogger(a.logger)), nil
}
