package reader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dshills/knowthecode/internal/chunker"
	"github.com/dshills/knowthecode/pkg/types"
)

// DefaultMaxFileBytes is the largest file ReadRepo will load
const DefaultMaxFileBytes = 1 << 20

// ErrNotDirectory is returned when the root is not a directory
var ErrNotDirectory = errors.New("not a directory")

// DefaultSkipDirs are directory names never descended into
var DefaultSkipDirs = []string{
	".git", "node_modules", "dist", "build", "vendor", "__pycache__", ".venv", "venv", "target",
}

// Options controls which files ReadRepo returns
type Options struct {
	MaxFileBytes  int64    `mapstructure:"max_file_bytes"`
	SkipDirs      []string `mapstructure:"skip_dirs"`
	IncludeHidden bool     `mapstructure:"include_hidden"`
	Logger        *slog.Logger
}

// DefaultOptions returns the standard filters
func DefaultOptions() Options {
	return Options{
		MaxFileBytes: DefaultMaxFileBytes,
		SkipDirs:     DefaultSkipDirs,
	}
}

// ReadRepo walks root and returns every text file with a known language,
// keyed by its slash-separated path relative to root and sorted by path.
// Oversized, binary and non-UTF-8 files are skipped.
func ReadRepo(ctx context.Context, root string, opts Options) ([]types.FileRecord, error) {
	if opts.MaxFileBytes <= 0 {
		opts.MaxFileBytes = DefaultMaxFileBytes
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat repo root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}

	skipDirs := opts.SkipDirs
	if skipDirs == nil {
		skipDirs = DefaultSkipDirs
	}
	skip := make(map[string]bool, len(skipDirs))
	for _, d := range skipDirs {
		skip[d] = true
	}

	var records []types.FileRecord
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		name := d.Name()
		if d.IsDir() {
			if path == root {
				return nil
			}
			if skip[name] || (!opts.IncludeHidden && strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() || !chunker.IsSupported(name) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		fi, err := d.Info()
		if err != nil {
			return err
		}
		if fi.Size() > opts.MaxFileBytes {
			logger.Debug("skipping large file", "path", rel, "size", fi.Size())
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", rel, err)
		}
		if !IsText(content) {
			logger.Debug("skipping non-text file", "path", rel)
			return nil
		}

		records = append(records, types.FileRecord{Path: rel, Content: string(content)})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Path < records[j].Path })
	logger.Info("read repository", "root", root, "files", len(records))
	return records, nil
}

// IsText reports whether content is valid UTF-8 without NUL bytes
func IsText(content []byte) bool {
	return bytes.IndexByte(content, 0) < 0 && utf8.Valid(content)
}

// RepoIDFromURL derives a repository id from a clone URL:
// https://github.com/user/test.git and git@github.com:user/test.git both give "test"
func RepoIDFromURL(url string) string {
	url = strings.TrimRight(strings.TrimSpace(url), "/")
	if i := strings.LastIndexAny(url, "/:"); i >= 0 {
		url = url[i+1:]
	}
	return strings.TrimSuffix(url, ".git")
}

// RepoIDFromPath derives a repository id from a local directory name
func RepoIDFromPath(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return filepath.Base(filepath.Clean(dir))
}
