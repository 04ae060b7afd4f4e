package cache

import "github.com/yourusername/statichttpd/pkg/statichttpd/slab"

// Entry is one cached file: its path, its bytes, a reference count of
// sessions currently holding it, its LRU links, and its last-acquired
// timestamp. It is pool-allocated (slab.Pool[Entry]), never heap
// allocated per file.
type Entry struct {
	filename string
	data     []byte
	inuse    uint32
	lastUsed float64

	prev, next uint32
}

// Path returns the absolute path this entry caches.
func (e *Entry) Path() string { return e.filename }

// Data returns the cached file bytes. The returned slice must not be
// mutated or retained past Release — the cache may reuse the backing
// array once it is evicted.
func (e *Entry) Data() []byte { return e.data }

// InUse returns the current reference count.
func (e *Entry) InUse() uint32 { return e.inuse }

// reset satisfies slab.record: it is called by Pool.Alloc, so a freshly
// allocated Entry always starts zeroed.
func (e *Entry) reset() {
	e.filename = ""
	e.data = nil
	e.inuse = 0
	e.lastUsed = 0
	e.prev = slab.None
	e.next = slab.None
}

// poison satisfies slab.record: in debug builds (slab.Debug), a freed
// Entry's filename is overwritten with a fixed pattern so a dangling
// read shows up immediately instead of silently returning stale bytes.
func (e *Entry) poison() {
	e.filename = "\xfe\xfe\xfe\xfe(freed cache entry)"
	e.data = nil
	e.inuse = 0
}

// lru.Linked implementation — the intrusive doubly-linked list lives
// directly in the Entry's prev/next fields.
func (e *Entry) Prev() uint32          { return e.prev }
func (e *Entry) Next() uint32          { return e.next }
func (e *Entry) SetPrev(idx uint32)    { e.prev = idx }
func (e *Entry) SetNext(idx uint32)    { e.next = idx }
func (e *Entry) LastUsed() float64     { return e.lastUsed }
func (e *Entry) SetLastUsed(t float64) { e.lastUsed = t }
