// Package cache implements the content cache: file bytes keyed by
// absolute path, backed by a pool-allocated entry table, an intrusive
// LRU list, and a path index, with reference-counted eviction
// (spec.md §2.4, §4.4). It is the shared, cross-worker component of the
// engine — every worker's sessions call Acquire/Release against the
// same *ContentCache, serialized by a single lock (spec.md §5).
package cache

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/yourusername/statichttpd/pkg/statichttpd/lru"
	"github.com/yourusername/statichttpd/pkg/statichttpd/pathindex"
	"github.com/yourusername/statichttpd/pkg/statichttpd/slab"
)

// The 20-byte minimum file size is deliberately not enforced here — spec.md §4.4 and
// §4.6 place the 20-byte / regular-file checks at the caller's request
// resolver, not in the cache itself. ContentCache trusts the path it is
// handed.

// Stats is a point-in-time snapshot of cache bookkeeping, used by the
// CLI's "show http static server cache" and by the Prometheus exporter.
type Stats struct {
	Size      int64
	Limit     int64
	Evictions uint64
	Entries   int
}

// ContentCache owns the entry pool, the LRU list, the path index, and
// the size accounting. All public methods are safe for concurrent use
// from any worker.
type ContentCache struct {
	mu    sync.Mutex // cache_lock: held across the whole miss path
	pool  *slab.Pool[Entry]
	lru   *lru.List[Entry]
	index *pathindex.Index

	size      int64
	limit     int64
	evictions uint64

	// clock is overridable in tests; defaults to a monotonic wall-clock
	// reading in fractional seconds, matching spec.md's "monotonic
	// timestamp (seconds, fractional)".
	clock func() float64

	// readFile loads a path's full contents; overridable in tests to
	// avoid touching a real filesystem.
	readFile func(path string) ([]byte, error)
}

// Option configures a ContentCache at construction.
type Option func(*ContentCache)

// WithClock overrides the cache's time source. Intended for tests that
// need deterministic LRU ordering.
func WithClock(clock func() float64) Option {
	return func(c *ContentCache) { c.clock = clock }
}

// WithReadFile overrides how the cache loads a path's bytes on miss.
// Intended for tests that want to avoid the real filesystem.
func WithReadFile(readFile func(path string) ([]byte, error)) Option {
	return func(c *ContentCache) { c.readFile = readFile }
}

// New creates a ContentCache with the given byte-size eviction limit.
func New(limit int64, opts ...Option) *ContentCache {
	pool := slab.New[Entry]()
	c := &ContentCache{
		pool:     pool,
		index:    pathindex.New(),
		limit:    limit,
		clock:    monotonicSeconds,
		readFile: readFileFull,
	}
	c.lru = lru.New[Entry](func(idx uint32) *Entry { return pool.Get(idx) })
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func monotonicSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

func readFileFull(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Handle is a reference-counted token a session holds to keep its entry
// un-evictable. Release must be called exactly once per successful
// Acquire.
type Handle struct {
	idx uint32
}

// Acquire resolves path to cached bytes, incrementing the entry's
// reference count and moving it to the LRU front. On a cache hit the
// entry is reused as-is; on a miss the file is read from disk, a new
// entry is installed, and the cache may evict cold unreferenced entries
// to stay within its limit (spec.md §4.4 "Miss path").
func (c *ContentCache) Acquire(path string) (*Handle, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if idx, ok := c.index.Lookup(path); ok {
		e := c.pool.Get(idx)
		if e != nil {
			e.inuse++
			c.lru.Update(idx, c.clock())
			return &Handle{idx: idx}, e.data, nil
		}
		// Stale index pointing at a freed slot: fall through to a
		// fresh load, matching spec.md Open Question (a) — re-resolve
		// under the lock rather than trust a torn index.
		c.index.Delete(path)
	}

	// Evict cold entries until we're back within budget, or there is
	// nothing left to evict. This runs before the read, against the
	// cache's existing size only — spec.md §4.4 does not weigh the
	// incoming file's size, so a single large file can still push
	// cache_size above cache_limit until the next Acquire's eviction
	// pass catches up (see spec.md §8 scenario S3).
	c.evictLocked()

	data, err := c.readFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrIOError, err)
	}

	idx := c.pool.Alloc()
	e := c.pool.Get(idx)
	e.filename = path
	e.data = data
	e.inuse = 1
	c.lru.Add(idx, c.clock())
	c.index.Insert(path, idx)
	c.size += int64(len(data))

	return &Handle{idx: idx}, data, nil
}

// evictLocked walks the LRU from the oldest entry forward, freeing
// unreferenced entries until cache_size fits within the limit or the
// list is exhausted. Must be called with mu held.
func (c *ContentCache) evictLocked() {
	idx := c.lru.Back()
	for c.size > c.limit && idx != slab.None {
		e := c.pool.Get(idx)
		next := e.Prev() // walking oldest->newest is back-to-front
		if e.inuse > 0 {
			idx = next
			continue
		}

		c.index.Delete(e.filename)
		c.lru.Remove(idx)
		c.size -= int64(len(e.data))
		c.evictions++
		c.pool.Free(idx)

		idx = c.lru.Back()
	}
}

// Release decrements the entry's reference count. Reaching zero does
// not itself free anything; eviction is lazy and size-driven, run only
// from inside a subsequent Acquire's miss path (spec.md §4.4).
func (c *ContentCache) Release(h *Handle) {
	if h == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.pool.Get(h.idx)
	if e == nil || e.inuse == 0 {
		return
	}
	e.inuse--
}

// Clear walks the LRU from the oldest entry and frees every entry with
// inuse == 0, returning the number of in-use entries that were skipped
// (spec.md §4.4, §6 "clear http static cache").
func (c *ContentCache) Clear() (skipped int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var freed []string
	idx := c.lru.Back()
	for idx != slab.None {
		e := c.pool.Get(idx)
		prev := e.Prev()
		if e.inuse > 0 {
			skipped++
			idx = prev
			continue
		}

		freed = append(freed, e.filename)
		c.lru.Remove(idx)
		c.size -= int64(len(e.data))
		c.pool.Free(idx)

		idx = prev
	}

	// Every entry was unreferenced: the index ends up empty either way,
	// so one Reset beats len(freed) individual Deletes.
	if skipped == 0 {
		c.index.Reset()
	} else {
		for _, filename := range freed {
			c.index.Delete(filename)
		}
	}
	return skipped
}

// Stats returns a snapshot of the cache's bookkeeping.
func (c *ContentCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Size:      c.size,
		Limit:     c.limit,
		Evictions: c.evictions,
		Entries:   c.pool.Len(),
	}
}

// Validate runs the debug-only LRU invariant walk (spec.md §4.2) and
// additionally checks cache_size against the live-entry sum and every
// path-index entry against its target's filename (spec.md §8
// properties 1-2). Intended for tests and debug-level CLI diagnostics,
// not the request hot path.
func (c *ContentCache) Validate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.lru.Validate(); err != nil {
		return err
	}

	var sum int64
	var lruCount int
	c.pool.Each(func(idx uint32) {
		lruCount++
		e := c.pool.Get(idx)
		sum += int64(len(e.data))

		gotIdx, ok := c.index.Lookup(e.filename)
		if !ok || gotIdx != idx {
			panic(fmt.Sprintf("cache: path index mismatch for %q", e.filename))
		}
	})

	if sum != c.size {
		return fmt.Errorf("cache: size accounting mismatch: tracked=%d actual=%d", c.size, sum)
	}
	if lruCount != c.index.Len() {
		return fmt.Errorf("cache: entry count %d does not match path index length %d", lruCount, c.index.Len())
	}
	return nil
}
