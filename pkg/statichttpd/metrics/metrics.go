// Package metrics exposes the content cache and session engine's
// runtime state as Prometheus gauges, the way the teacher's
// buffer_pool_prometheus.go exposes its buffer pool — a
// prometheus.Collector that recomputes its values on every scrape
// rather than a background ticker, since cache/session state here is
// already cheap to read (no per-request counter plumbing needed).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yourusername/statichttpd/pkg/statichttpd/cache"
)

// CacheStater is the subset of cache.ContentCache this package needs.
type CacheStater interface {
	Stats() cache.Stats
}

// SessionCounter is the subset of session.Engine this package needs.
type SessionCounter interface {
	SessionCount() int
}

// Collector implements prometheus.Collector over a cache and an
// engine's live state — spec.md's content cache invariants (cache_size,
// cache_limit, cache_evictions) and session count, surfaced for the
// "show http static server" diagnostic's machine-readable twin.
type Collector struct {
	cache   CacheStater
	engine  SessionCounter

	cacheSize       *prometheus.Desc
	cacheLimit      *prometheus.Desc
	cacheEvictions  *prometheus.Desc
	cacheEntries    *prometheus.Desc
	sessionsActive  *prometheus.Desc
}

// New builds a Collector over the given cache and engine. engine may be
// nil if the caller only wants cache metrics (e.g. a unit test that
// never starts a full server).
func New(cache CacheStater, engine SessionCounter) *Collector {
	return &Collector{
		cache:  cache,
		engine: engine,
		cacheSize: prometheus.NewDesc(
			"statichttpd_cache_size_bytes", "Current total bytes held by live cache entries.", nil, nil,
		),
		cacheLimit: prometheus.NewDesc(
			"statichttpd_cache_limit_bytes", "Configured cache size limit.", nil, nil,
		),
		cacheEvictions: prometheus.NewDesc(
			"statichttpd_cache_evictions_total", "Total cache entries evicted for space.", nil, nil,
		),
		cacheEntries: prometheus.NewDesc(
			"statichttpd_cache_entries", "Current number of live cache entries.", nil, nil,
		),
		sessionsActive: prometheus.NewDesc(
			"statichttpd_sessions_active", "Current number of live sessions.", nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.cacheSize
	ch <- c.cacheLimit
	ch <- c.cacheEvictions
	ch <- c.cacheEntries
	ch <- c.sessionsActive
}

// Collect implements prometheus.Collector, reading current state
// directly rather than from counters accumulated between scrapes.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.cache != nil {
		stats := c.cache.Stats()
		ch <- prometheus.MustNewConstMetric(c.cacheSize, prometheus.GaugeValue, float64(stats.Size))
		ch <- prometheus.MustNewConstMetric(c.cacheLimit, prometheus.GaugeValue, float64(stats.Limit))
		ch <- prometheus.MustNewConstMetric(c.cacheEvictions, prometheus.CounterValue, float64(stats.Evictions))
		ch <- prometheus.MustNewConstMetric(c.cacheEntries, prometheus.GaugeValue, float64(stats.Entries))
	}
	if c.engine != nil {
		ch <- prometheus.MustNewConstMetric(c.sessionsActive, prometheus.GaugeValue, float64(c.engine.SessionCount()))
	}
}
