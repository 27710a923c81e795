package chunker

import (
	"errors"
	"io"
	"log/slog"

	"github.com/dshills/knowthecode/internal/parser"
)

const (
	// DefaultMaxChars is the target maximum size of a chunk's text in bytes
	DefaultMaxChars = 2000

	// DefaultMinChars is the size below which a structural chunk is merged into its neighbour
	DefaultMinChars = 200

	// DefaultOverlap is the number of context lines added around structural regions
	// and repeated between consecutive line blocks
	DefaultOverlap = 2

	// TokensPerChar is the heuristic for estimating tokens (chars/4)
	TokensPerChar = 4
)

// ErrInvalidConfig is returned by Config.Validate
var ErrInvalidConfig = errors.New("invalid chunker config")

// Config holds the size policy of the chunker
type Config struct {
	MaxChars int `mapstructure:"max_chars" json:"max_chars"`
	MinChars int `mapstructure:"min_chars" json:"min_chars"`
	Overlap  int `mapstructure:"overlap" json:"overlap"`
}

// DefaultConfig returns the default size policy
func DefaultConfig() Config {
	return Config{
		MaxChars: DefaultMaxChars,
		MinChars: DefaultMinChars,
		Overlap:  DefaultOverlap,
	}
}

// Validate checks that the size policy is usable
func (c Config) Validate() error {
	switch {
	case c.MaxChars <= 0:
		return errors.Join(ErrInvalidConfig, errors.New("max_chars must be positive"))
	case c.MinChars < 0:
		return errors.Join(ErrInvalidConfig, errors.New("min_chars must not be negative"))
	case c.MinChars > c.MaxChars:
		return errors.Join(ErrInvalidConfig, errors.New("min_chars must not exceed max_chars"))
	case c.Overlap < 0:
		return errors.Join(ErrInvalidConfig, errors.New("overlap must not be negative"))
	}
	return nil
}

// normalize replaces unusable values with defaults
func (c Config) normalize() Config {
	d := DefaultConfig()
	if c.MaxChars <= 0 {
		c.MaxChars = d.MaxChars
	}
	if c.MinChars < 0 {
		c.MinChars = 0
	}
	if c.MinChars > c.MaxChars {
		c.MinChars = c.MaxChars
	}
	if c.Overlap < 0 {
		c.Overlap = 0
	}
	return c
}

// Option configures a Chunker
type Option func(*Chunker)

// WithConfig sets the size policy. Invalid fields fall back to safe values.
func WithConfig(cfg Config) Option {
	return func(c *Chunker) {
		c.cfg = cfg.normalize()
	}
}

// WithRegistry sets the structural parser registry (default parser.Default())
func WithRegistry(r *parser.Registry) Option {
	return func(c *Chunker) {
		if r != nil {
			c.registry = r
		}
	}
}

// WithLogger sets the logger used for fallback and parse-failure events
func WithLogger(l *slog.Logger) Option {
	return func(c *Chunker) {
		if l != nil {
			c.logger = l
		}
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
