// Package pathindex implements the concurrent path->entry-index map the
// content cache uses for lookup (spec.md §4.3). Reads take a RWMutex
// read-lock so concurrent lookups never block each other; writers
// (insert/delete) are expected to already hold the cache's own lock, so
// the write-lock here only protects the map itself against the rare
// case of a caller that doesn't.
package pathindex

import (
	"sync"

	"github.com/yourusername/statichttpd/pkg/statichttpd/slab"
)

// Index maps an absolute file path to the slab index of its cache
// entry. The stored key is an owned copy of the path string; Go string
// immutability makes that copy implicit (string(b) already copies),
// which is the idiomatic equivalent of the original's owned-filename
// duplication.
type Index struct {
	mu sync.RWMutex
	m  map[string]uint32
}

// New creates an empty path index.
func New() *Index {
	return &Index{m: make(map[string]uint32)}
}

// Lookup returns the slab index stored for path, or (slab.None, false)
// if path is absent.
func (x *Index) Lookup(path string) (uint32, bool) {
	x.mu.RLock()
	idx, ok := x.m[path]
	x.mu.RUnlock()
	if !ok {
		return slab.None, false
	}
	return idx, true
}

// Insert installs path -> idx, overwriting any prior mapping.
func (x *Index) Insert(path string, idx uint32) {
	x.mu.Lock()
	x.m[path] = idx
	x.mu.Unlock()
}

// Delete removes path if present. It is a no-op otherwise.
func (x *Index) Delete(path string) {
	x.mu.Lock()
	delete(x.m, path)
	x.mu.Unlock()
}

// Len returns the number of entries currently indexed.
func (x *Index) Len() int {
	x.mu.RLock()
	n := len(x.m)
	x.mu.RUnlock()
	return n
}

// Reset empties the index in one step. ContentCache.Clear uses this
// instead of per-entry Delete calls when every entry in the cache was
// unreferenced and got freed.
func (x *Index) Reset() {
	x.mu.Lock()
	x.m = make(map[string]uint32)
	x.mu.Unlock()
}
