// Package engine assembles the content cache, dispatch table, session
// engine, and transport listener into one running server — spec.md §9
// Design Notes' "replace hss_main with an explicit server struct owned
// by the start command; all components receive it by reference."
package engine

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yourusername/statichttpd/pkg/statichttpd/cache"
	"github.com/yourusername/statichttpd/pkg/statichttpd/config"
	"github.com/yourusername/statichttpd/pkg/statichttpd/dispatch"
	"github.com/yourusername/statichttpd/pkg/statichttpd/metrics"
	"github.com/yourusername/statichttpd/pkg/statichttpd/session"
	"github.com/yourusername/statichttpd/pkg/statichttpd/transport"
)

// Server is the one process-wide instance spec.md §9 calls for in place
// of the source's global hss_main: the "http static server www-root"
// command builds one, start wires it to a listener, and the debug CLI
// (internal/clicmd) holds a reference to query/clear it.
type Server struct {
	mu       sync.Mutex
	running  bool
	cfg      config.Config
	cache    *cache.ContentCache
	table    *dispatch.Table
	eng      *session.Engine
	listener *transport.Listener
	log      *slog.Logger
}

// New builds a Server from cfg with an empty dispatch table; logger
// may be nil, in which case slog.Default() is used. URL handlers are
// registered by the caller via Table() before Start.
func New(cfg config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	table := dispatch.New()
	c := cache.New(cfg.CacheLimit)
	return &Server{
		cfg:   cfg,
		cache: c,
		table: table,
		eng:   session.New(cfg, c, table, logger),
		log:   logger,
	}
}

// Table exposes the dispatch table for built-in/handler registration
// before Start is called.
func (s *Server) Table() *dispatch.Table { return s.table }

// Cache exposes the content cache for CLI diagnostics and the
// Prometheus collector.
func (s *Server) Cache() *cache.ContentCache { return s.cache }

// Engine exposes the session engine for CLI diagnostics.
func (s *Server) Engine() *session.Engine { return s.eng }

// Collector returns a metrics.Collector wired to this server's live
// cache and session state, ready to register with a
// prometheus.Registerer.
func (s *Server) Collector() prometheus.Collector {
	return metrics.New(s.cache, s.eng)
}

// Running reports whether the server currently has a bound listener.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start validates cfg and binds the configured listen URI — spec.md §6
// "http static server www-root ...". Fails if already running or if
// cfg fails Validate.
func (s *Server) Start(tlsConf *tls.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("engine: server already running")
	}
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	ln, err := transport.Listen(s.cfg.URI, s.eng.Callbacks(), transport.AttachOptions{
		RxFifoSize:        s.cfg.FifoSize,
		TxFifoSize:        s.cfg.FifoSize,
		PreallocFifoPairs: s.cfg.PreallocFifos,
		SegmentSize:       s.cfg.PrivateSegmentSz,
	}, tlsConf)
	if err != nil {
		return fmt.Errorf("engine: listen failed: %w", err)
	}

	s.listener = ln
	s.running = true
	s.log.Info("static http server started", "uri", s.cfg.URI, "www_root", s.cfg.WWWRoot, "cache_limit", s.cfg.CacheLimit)
	return nil
}

// Stop tears down the listener and every live connection. It is safe
// to call on a server that was never started.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	err := s.listener.Close()
	s.listener = nil
	s.running = false
	s.log.Info("static http server stopped")
	return err
}
