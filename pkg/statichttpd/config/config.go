// Package config holds the static HTTP server's startup configuration
// — spec.md §3's Configuration block — plus the fluent Builder and
// validation the CLI surface (spec.md §6) runs before a server starts.
package config

import (
	"errors"
	"fmt"
)

const (
	// MinCacheLimit is spec.md §3's "cache_limit ≥ 128 KiB" floor.
	MinCacheLimit = 128 * 1024

	// DefaultURI is spec.md §3's default listen address.
	DefaultURI = "tcp://0.0.0.0:80"

	// DefaultFifoSize mirrors the teacher's default buffer sizing order
	// of magnitude; nothing in spec.md pins an exact default.
	DefaultFifoSize = 64 * 1024

	// DefaultUsePtrThresh is the body-size above which a reply is
	// delivered in pointer mode instead of inline (spec.md GLOSSARY).
	DefaultUsePtrThresh = 64 * 1024
)

var (
	// ErrNoRoots is returned when neither a document root nor URL
	// handlers are configured — spec.md §3: "Requirement at start:
	// www_root set or enable_url_handlers true."
	ErrNoRoots = errors.New("config: www_root unset and url handlers disabled")

	// ErrCacheLimitTooSmall is spec.md §6's "cache-size < 128 KiB" CLI
	// rejection, reused as the programmatic validation error.
	ErrCacheLimitTooSmall = fmt.Errorf("config: cache limit below minimum of %d bytes", MinCacheLimit)
)

// Config is the immutable server configuration, built via Builder and
// validated before Start.
type Config struct {
	WWWRoot           string
	CacheLimit        int64
	EnableURLHandlers bool
	URI               string
	FifoSize          int
	PreallocFifos     int
	PrivateSegmentSz  int
	UsePtrThresh      int
	DebugLevel        int
}

// Default returns the zero-value-safe baseline a Builder starts from.
func Default() Config {
	return Config{
		CacheLimit:   MinCacheLimit,
		URI:          DefaultURI,
		FifoSize:     DefaultFifoSize,
		UsePtrThresh: DefaultUsePtrThresh,
	}
}

// Validate checks the invariants spec.md §3/§6 require before start.
func (c Config) Validate() error {
	if c.WWWRoot == "" && !c.EnableURLHandlers {
		return ErrNoRoots
	}
	if c.CacheLimit < MinCacheLimit {
		return ErrCacheLimitTooSmall
	}
	return nil
}

// Builder assembles a Config fluently, the shape the CLI command
// parser (internal/clicmd) drives one flag at a time.
type Builder struct {
	cfg Config
}

// NewBuilder starts from Default().
func NewBuilder() *Builder {
	b := &Builder{cfg: Default()}
	return b
}

func (b *Builder) WWWRoot(path string) *Builder {
	b.cfg.WWWRoot = path
	return b
}

func (b *Builder) CacheLimit(bytes int64) *Builder {
	b.cfg.CacheLimit = bytes
	return b
}

func (b *Builder) EnableURLHandlers(enable bool) *Builder {
	b.cfg.EnableURLHandlers = enable
	return b
}

func (b *Builder) URI(uri string) *Builder {
	b.cfg.URI = uri
	return b
}

func (b *Builder) FifoSize(n int) *Builder {
	b.cfg.FifoSize = n
	return b
}

func (b *Builder) PreallocFifos(n int) *Builder {
	b.cfg.PreallocFifos = n
	return b
}

func (b *Builder) PrivateSegmentSize(n int) *Builder {
	b.cfg.PrivateSegmentSz = n
	return b
}

func (b *Builder) UsePtrThresh(n int) *Builder {
	b.cfg.UsePtrThresh = n
	return b
}

func (b *Builder) DebugLevel(n int) *Builder {
	b.cfg.DebugLevel = n
	return b
}

// Build returns the assembled Config without validating it; callers
// validate explicitly so CLI error text can attribute the failure to
// the right flag.
func (b *Builder) Build() Config {
	return b.cfg
}
