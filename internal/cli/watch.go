package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/knowthecode/internal/reader"
)

// DefaultDebounce is how long watch waits for changes to settle
const DefaultDebounce = 500 * time.Millisecond

func newWatchCmd(a *app) *cobra.Command {
	var (
		opts     ingestOptions
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Ingest a repository and re-ingest it whenever files change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runWatch(ctx, cmd, args[0], opts, debounce)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.repoID, "repo", "r", "", "repository id (default from --url or the directory name)")
	f.StringVar(&opts.url, "url", "", "clone URL recorded with the repository")
	f.DurationVar(&debounce, "debounce", DefaultDebounce, "quiet period before re-ingesting")
	return cmd
}

func (a *app) runWatch(ctx context.Context, cmd *cobra.Command, dir string, opts ingestOptions, debounce time.Duration) error {
	repoID := resolveRepoID(opts, dir)

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

	idx, err := a.newIndexer(store, emb)
	if err != nil {
		return err
	}

	cfg := a.indexerConfig()
	cfg.URL = opts.url
	w := cmd.OutOrStdout()

	ingest := func() error {
		stats, err := idx.IndexRepo(ctx, repoID, dir, cfg)
		if err != nil {
			return err
		}
		printStats(w, repoID, stats)
		return nil
	}

	if err := ingest(); err != nil {
		return err
	}

	watcher, err := newRepoWatcher(dir, reader.DefaultSkipDirs, a.logger)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	defer func() { _ = watcher.Close() }()

	fmt.Fprintf(w, "%s %s for changes (ctrl-c to stop)\n", boldText("watching"), dir)
	for changed := range watcher.Watch(ctx, debounce) {
		a.logger.Info("changes detected", "repo", repoID, "paths", changed)
		if err := ingest(); err != nil {
			if ctx.Err() != nil {
				break
			}
			// Keep watching; the next change retries
			a.logger.Error("re-ingest failed", "repo", repoID, "error", err)
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", errText("error:"), err)
		}
	}
	return nil
}
