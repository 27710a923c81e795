// Package cli implements the knowthecode command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dshills/knowthecode/internal/chunker"
	"github.com/dshills/knowthecode/internal/embedder"
	"github.com/dshills/knowthecode/internal/storage"
)

// Build information, set with -ldflags
var (
	version   = "dev"
	buildTime = "unknown"
)

const (
	// EnvPrefix prefixes every environment override, e.g. KTC_DB
	EnvPrefix = "KTC"

	// DefaultDBDir is the database directory under the user's home
	DefaultDBDir  = ".knowthecode"
	defaultDBFile = "index.db"
)

// Config keys shared by flags, the config file and the environment
const (
	keyDB        = "db"
	keyLogLevel  = "log_level"
	keyNoColor   = "no_color"
	keyMaxChars  = "chunker.max_chars"
	keyMinChars  = "chunker.min_chars"
	keyOverlap   = "chunker.overlap"
	keyWorkers   = "indexer.workers"
	keyBatchSize = "indexer.batch_size"
	keyProvider  = "embedder.provider"
	keyModel     = "embedder.model"
	keyBaseURL   = "embedder.base_url"
	keyCacheSize = "embedder.cache_size"
)

const (
	defaultLogLevel = "warn"
	// providerNone disables embeddings; retrieval is then keyword-only
	providerNone = "none"
)

// ErrInvalidLogLevel is returned for an unknown --log-level value
var ErrInvalidLogLevel = errors.New("invalid log level")

// app carries the resolved configuration shared by all subcommands
type app struct {
	v       *viper.Viper
	cfgFile string
	logger  *slog.Logger
}

// Execute runs the root command with os.Args
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree with a fresh configuration
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "knowthecode",
		Short: "Chunk, index and query source repositories for retrieval",
		Long: "knowthecode splits repositories into line-addressed chunks along syntactic " +
			"boundaries, indexes them in SQLite with embeddings and full-text search, " +
			"and assembles retrieved chunks into prompt context.",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}
	root.SetVersionTemplate(fmt.Sprintf(
		"knowthecode {{.Version}}\nBuild Time: %s\nBuild Mode: %s\nSQLite Driver: %s\n",
		buildTime, storage.BuildMode, storage.DriverName))

	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgFile, "config", "c", "", "config file (yaml, json or toml)")
	pf.String("db", "", "database path (default ~/"+DefaultDBDir+"/"+defaultDBFile+")")
	pf.String("log-level", defaultLogLevel, "log level: debug, info, warn or error")
	pf.Bool("no-color", false, "disable colored output")
	pf.Int("max-chars", chunker.DefaultMaxChars, "maximum chunk size in bytes")
	pf.Int("min-chars", chunker.DefaultMinChars, "structural chunks below this size are merged")
	pf.Int("overlap", chunker.DefaultOverlap, "context lines around structural chunks")
	pf.String("provider", "", "embedding provider: local, openai or none (default from environment)")
	pf.Int("workers", 0, "concurrent chunking workers (default number of CPUs)")

	bind := map[string]string{
		keyDB:       "db",
		keyLogLevel: "log-level",
		keyNoColor:  "no-color",
		keyMaxChars: "max-chars",
		keyMinChars: "min-chars",
		keyOverlap:  "overlap",
		keyProvider: "provider",
		keyWorkers:  "workers",
	}
	for key, flag := range bind {
		_ = a.v.BindPFlag(key, pf.Lookup(flag))
	}

	root.AddCommand(
		newChunkCmd(a),
		newIngestCmd(a),
		newQueryCmd(a),
		newWatchCmd(a),
		newLanguagesCmd(a),
	)
	return root
}

// init loads the config file and environment and installs the logger
func (a *app) init(cmd *cobra.Command) error {
	v := a.v
	v.SetDefault(keyBatchSize, 0)
	v.SetDefault(keyCacheSize, embedder.DefaultCacheSize)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if a.cfgFile != "" {
		v.SetConfigFile(a.cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}

	if v.GetBool(keyNoColor) {
		color.NoColor = true
	}

	logger, err := newLogger(cmd.ErrOrStderr(), v.GetString(keyLogLevel))
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

// newLogger creates a text slog handler writing to w
func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLogLevel, level)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// chunkerConfig returns the size policy from flags, file and environment
func (a *app) chunkerConfig() (chunker.Config, error) {
	cfg := chunker.Config{
		MaxChars: a.v.GetInt(keyMaxChars),
		MinChars: a.v.GetInt(keyMinChars),
		Overlap:  a.v.GetInt(keyOverlap),
	}
	return cfg, cfg.Validate()
}

func (a *app) newChunker() (*chunker.Chunker, error) {
	cfg, err := a.chunkerConfig()
	if err != nil {
		return nil, err
	}
	return chunker.New(chunker.WithConfig(cfg), chunker.WithLogger(a.logger)), nil
}

// dbPath resolves the database file, creating its directory
func (a *app) dbPath() (string, error) {
	path := a.v.GetString(keyDB)
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDBDir, defaultDBFile)
	} else if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create database directory: %w", err)
	}
	return path, nil
}

func (a *app) openStore() (*storage.SQLiteStorage, error) {
	path, err := a.dbPath()
	if err != nil {
		return nil, err
	}
	a.logger.Debug("opening database", "path", path, "driver", storage.DriverName)
	return storage.NewSQLiteStorage(path)
}

// newEmbedder returns nil when embeddings are disabled with provider "none"
func (a *app) newEmbedder() (embedder.Embedder, error) {
	provider := strings.ToLower(a.v.GetString(keyProvider))
	if provider == providerNone {
		return nil, nil
	}
	emb, err := embedder.New(embedder.Config{
		Provider:  provider,
		APIKey:    os.Getenv(embedder.EnvOpenAIAPIKey),
		BaseURL:   a.v.GetString(keyBaseURL),
		Model:     a.v.GetString(keyModel),
		CacheSize: a.v.GetInt(keyCacheSize),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	a.logger.Debug("embedder ready", "provider", emb.Provider(), "model", emb.Model(), "dimension", emb.Dimension())
	return emb, nil
}
