// Package clicmd implements the debug-CLI command table spec.md §6
// describes: "commands, not core, but the core is configured through
// them." There is no standalone binary and no CLI-parsing library
// anywhere in the source pack (no cobra, no urfave/cli) — this mirrors
// the same "exact-string table, no routing DSL" shape as
// dispatch.Table, just keyed by command name instead of
// (method, request-line).
package clicmd

import (
	"crypto/tls"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/yourusername/statichttpd/pkg/statichttpd/config"
	"github.com/yourusername/statichttpd/pkg/statichttpd/engine"
	"github.com/yourusername/statichttpd/pkg/statichttpd/tlsconfig"
)

// ErrUsage is wrapped into any error caused by malformed arguments, so
// callers can distinguish a usage mistake from a server-side failure.
var ErrUsage = errors.New("clicmd: usage error")

// Func answers one command invocation. args excludes the command name
// itself. The returned string is the diagnostic text a CLI session
// would print; err is non-nil on failure.
type Func func(args []string) (string, error)

// Table is a registry of command name to Func — the in-process
// equivalent of the source's CLI command tree. It owns the single
// *engine.Server instance spec.md §9 calls for in place of the
// source's global hss_main: "http static server www-root" builds and
// starts it; "show"/"clear" operate on whatever is currently running.
type Table struct {
	cmds map[string]Func

	mu  sync.Mutex
	srv *engine.Server
}

// New builds an empty Table with no server yet started.
func New() *Table {
	t := &Table{cmds: make(map[string]Func)}
	t.cmds["http static server"] = t.httpStaticServer
	t.cmds["show http static server"] = t.showHTTPStaticServer
	t.cmds["clear http static cache"] = t.clearHTTPStaticCache
	return t
}

// Server returns the currently running server, or nil if
// "http static server www-root ..." has never succeeded.
func (t *Table) Server() *engine.Server {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.srv
}

// Run looks up name and invokes it with args. Unknown commands report
// a usage error rather than panicking, matching spec.md §6's "exit
// codes / error outputs are textual CLI errors."
func (t *Table) Run(name string, args []string) (string, error) {
	fn, ok := t.cmds[name]
	if !ok {
		return "", fmt.Errorf("%w: unknown command %q", ErrUsage, name)
	}
	return fn(args)
}

// httpStaticServer implements spec.md §6's
// "http static server www-root <path> [prealloc-fifos N]
// [private-segment-size SZ] [fifo-size KiB] [uri URI] [cache-size SZ]
// [ptr-thresh SZ] [url-handlers] [debug [N]]" — starts the server.
// Fails if already running, if neither www-root nor url-handlers, or
// if cache-size is below the 128 KiB floor (config.Validate).
func (t *Table) httpStaticServer(args []string) (string, error) {
	cfg, tlsCert, tlsKey, err := parseStartArgs(args)
	if err != nil {
		return "", err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.srv != nil && t.srv.Running() {
		return "", fmt.Errorf("%w: static http server already running", ErrUsage)
	}
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	var tlsConf *tls.Config
	if tlsCert != "" || tlsKey != "" {
		tlsConf, err = tlsconfig.FromCertFiles(tlsCert, tlsKey)
		if err != nil {
			return "", err
		}
	}

	srv := engine.New(cfg, nil)
	if err := srv.Start(tlsConf); err != nil {
		return "", err
	}
	t.srv = srv
	return "static http server started", nil
}

// showHTTPStaticServer implements spec.md §6's
// "show http static server [cache] [sessions] [verbose [N]]".
func (t *Table) showHTTPStaticServer(args []string) (string, error) {
	showCache, showSessions, verbose := false, false, 0
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "cache":
			showCache = true
		case "sessions":
			showSessions = true
		case "verbose":
			verbose = 1
			if i+1 < len(args) {
				if n, err := strconv.Atoi(args[i+1]); err == nil {
					verbose = n
					i++
				}
			}
		default:
			return "", fmt.Errorf("%w: unrecognized argument %q", ErrUsage, args[i])
		}
	}
	if !showCache && !showSessions {
		showCache, showSessions = true, true
	}

	srv := t.Server()
	if srv == nil {
		return "", fmt.Errorf("%w: static http server not running", ErrUsage)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "static http server: running=%t\n", srv.Running())
	if showCache {
		stats := srv.Cache().Stats()
		fmt.Fprintf(&sb, "cache: size=%d limit=%d entries=%d evictions=%d\n",
			stats.Size, stats.Limit, stats.Entries, stats.Evictions)
		if verbose > 0 {
			if err := srv.Cache().Validate(); err != nil {
				fmt.Fprintf(&sb, "cache: INVALID: %v\n", err)
			} else {
				sb.WriteString("cache: invariants OK\n")
			}
		}
	}
	if showSessions {
		fmt.Fprintf(&sb, "sessions: active=%d\n", srv.Engine().SessionCount())
	}
	return sb.String(), nil
}

// clearHTTPStaticCache implements spec.md §6's "clear http static
// cache — clears unreferenced entries; reports count of in-use
// entries skipped."
func (t *Table) clearHTTPStaticCache(args []string) (string, error) {
	if len(args) != 0 {
		return "", fmt.Errorf("%w: clear http static cache takes no arguments", ErrUsage)
	}
	srv := t.Server()
	if srv == nil {
		return "", fmt.Errorf("%w: static http server not running", ErrUsage)
	}
	skipped := srv.Cache().Clear()
	return fmt.Sprintf("cache cleared, %d in-use entries skipped", skipped), nil
}

// parseStartArgs turns the flag words following "http static server"
// into a config.Config, starting from config.Default() so unspecified
// flags keep their defaults. tls-cert/tls-key are not part of spec.md
// §6's documented flag list but are necessary to exercise a "tls://"
// uri from this command table (see tlsconfig.FromCertFiles).
func parseStartArgs(args []string) (cfg config.Config, tlsCert, tlsKey string, err error) {
	b := config.NewBuilder()

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "www-root":
			v, err := strArg(args, i)
			if err != nil {
				return config.Config{}, "", "", err
			}
			b.WWWRoot(v)
			i++
		case "cache-size":
			n, err := intArg(args, i)
			if err != nil {
				return config.Config{}, "", "", err
			}
			b.CacheLimit(int64(n))
			i++
		case "url-handlers":
			b.EnableURLHandlers(true)
		case "uri":
			v, err := strArg(args, i)
			if err != nil {
				return config.Config{}, "", "", err
			}
			b.URI(v)
			i++
		case "fifo-size":
			n, err := intArg(args, i)
			if err != nil {
				return config.Config{}, "", "", err
			}
			b.FifoSize(n * 1024)
			i++
		case "prealloc-fifos":
			n, err := intArg(args, i)
			if err != nil {
				return config.Config{}, "", "", err
			}
			b.PreallocFifos(n)
			i++
		case "private-segment-size":
			n, err := intArg(args, i)
			if err != nil {
				return config.Config{}, "", "", err
			}
			b.PrivateSegmentSize(n)
			i++
		case "ptr-thresh":
			n, err := intArg(args, i)
			if err != nil {
				return config.Config{}, "", "", err
			}
			b.UsePtrThresh(n)
			i++
		case "tls-cert":
			v, err := strArg(args, i)
			if err != nil {
				return config.Config{}, "", "", err
			}
			tlsCert = v
			i++
		case "tls-key":
			v, err := strArg(args, i)
			if err != nil {
				return config.Config{}, "", "", err
			}
			tlsKey = v
			i++
		case "debug":
			n := 1
			if i+1 < len(args) {
				if v, err := strconv.Atoi(args[i+1]); err == nil {
					n = v
					i++
				}
			}
			b.DebugLevel(n)
		default:
			return config.Config{}, "", "", fmt.Errorf("%w: unrecognized argument %q", ErrUsage, args[i])
		}
	}

	return b.Build(), tlsCert, tlsKey, nil
}

func strArg(args []string, i int) (string, error) {
	if i+1 >= len(args) {
		return "", fmt.Errorf("%w: %s requires a value", ErrUsage, args[i])
	}
	return args[i+1], nil
}

func intArg(args []string, i int) (int, error) {
	if i+1 >= len(args) {
		return 0, fmt.Errorf("%w: %s requires a numeric value", ErrUsage, args[i])
	}
	n, err := strconv.Atoi(args[i+1])
	if err != nil {
		return 0, fmt.Errorf("%w: %s value %q is not a number", ErrUsage, args[i], args[i+1])
	}
	return n, nil
}
