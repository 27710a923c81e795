package cli

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/knowthecode/internal/chunker"
)

// repoWatcher reports changed paths under a repository tree.
// fsnotify watches are not recursive, so every directory is added and
// directories created later are added as they appear.
type repoWatcher struct {
	watcher *fsnotify.Watcher
	root    string
	skip    map[string]bool
	logger  *slog.Logger
}

func newRepoWatcher(root string, skipDirs []string, logger *slog.Logger) (*repoWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	rw := &repoWatcher{
		watcher: w,
		root:    filepath.Clean(root),
		skip:    make(map[string]bool, len(skipDirs)),
		logger:  logger,
	}
	for _, d := range skipDirs {
		rw.skip[d] = true
	}

	if err := rw.addTree(rw.root); err != nil {
		_ = w.Close()
		return nil, err
	}
	return rw, nil
}

func (w *repoWatcher) skipped(name string) bool {
	return w.skip[name] || strings.HasPrefix(name, ".")
}

// addTree watches dir and every directory below it that the reader would visit
func (w *repoWatcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.skipped(d.Name()) {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

// Watch emits the sorted repo-relative paths changed since the previous
// batch, once no event has arrived for the debounce interval. The channel
// is closed when ctx is done.
func (w *repoWatcher) Watch(ctx context.Context, debounce time.Duration) <-chan []string {
	out := make(chan []string)

	go func() {
		defer close(out)

		pending := make(map[string]bool)
		timer := time.NewTimer(debounce)
		timer.Stop()
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return

			case ev, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if rel, ok := w.relevant(ev); ok {
					pending[rel] = true
					timer.Reset(debounce)
				}

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("watch error", "error", err)

			case <-timer.C:
				if len(pending) == 0 {
					continue
				}
				batch := make([]string, 0, len(pending))
				for p := range pending {
					batch = append(batch, p)
				}
				sort.Strings(batch)
				pending = make(map[string]bool)

				select {
				case out <- batch:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}

// relevant maps an event to a repo-relative path if it can change the index
func (w *repoWatcher) relevant(ev fsnotify.Event) (string, bool) {
	if ev.Op == fsnotify.Chmod {
		return "", false
	}

	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)

	for _, part := range strings.Split(rel, "/") {
		if w.skipped(part) {
			return "", false
		}
	}

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				w.logger.Warn("failed to watch directory", "path", rel, "error", err)
			}
			return rel, true
		}
	}

	// A removed path may have been a directory, so it is always relevant
	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		return rel, true
	}
	return rel, chunker.IsSupported(ev.Name)
}

func (w *repoWatcher) Close() error {
	return w.watcher.Close()
}
