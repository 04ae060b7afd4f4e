// Package slab implements a stable-index slab allocator for fixed-shape
// records. Cache entries and sessions are allocated from a Pool rather
// than the GC heap: indices are never compacted, so a live index keeps
// pointing at the same record across unrelated allocations and frees.
package slab

import "sync/atomic"

// None is the reserved sentinel index meaning "no record" (all-ones,
// matching the spec's "none" index convention).
const None = ^uint32(0)

// Debug enables poison-on-free and other diagnostics. Flipped at
// process start, never concurrently with allocator use.
var Debug = false

// record is implemented by the fixed-shape type a Pool manages. Reset
// must zero every field poison would otherwise clobber except the ones
// the implementation wants to preserve across free (e.g. a worker
// index, for diagnostics).
type record interface {
	reset()
	poison()
}

// Pool is a non-compacting, stable-index allocator over a slice of T.
// Freed slots are returned to a freelist and reused by later Allocs;
// live indices are never invalidated by an Alloc or Free of another
// index.
type Pool[T record] struct {
	records []T
	live    []bool
	free    []uint32
	count   atomic.Int64
}

// New creates an empty pool. Capacity is grown on demand.
func New[T record]() *Pool[T] {
	return &Pool[T]{}
}

// Alloc returns a zeroed record and its stable index.
func (p *Pool[T]) Alloc() uint32 {
	var idx uint32
	if n := len(p.free); n > 0 {
		idx = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		var zero T
		p.records = append(p.records, zero)
		p.live = append(p.live, false)
		idx = uint32(len(p.records) - 1)
	}
	p.records[idx].reset()
	p.live[idx] = true
	p.count.Add(1)
	return idx
}

// Free returns idx to the freelist. It is a no-op if idx is already
// free — double-free is a caller bug we choose not to crash on, since
// the request engine must stay resilient to a disconnect racing a
// cleanup.
func (p *Pool[T]) Free(idx uint32) {
	if idx == None || int(idx) >= len(p.records) || !p.live[idx] {
		return
	}
	if Debug {
		p.records[idx].poison()
	}
	p.live[idx] = false
	p.free = append(p.free, idx)
	p.count.Add(-1)
}

// Get returns a pointer to the live record at idx, or nil if idx has
// been freed (or never allocated).
func (p *Pool[T]) Get(idx uint32) *T {
	if idx == None || int(idx) >= len(p.records) || !p.live[idx] {
		return nil
	}
	return &p.records[idx]
}

// IsLive reports whether idx currently refers to an allocated record.
func (p *Pool[T]) IsLive(idx uint32) bool {
	return idx != None && int(idx) < len(p.records) && p.live[idx]
}

// Len returns the number of currently live records.
func (p *Pool[T]) Len() int {
	return int(p.count.Load())
}

// Each iterates over every live record's index in allocation order.
// The callback must not Alloc or Free; it may mutate the record in
// place via Get.
func (p *Pool[T]) Each(fn func(idx uint32)) {
	for i, alive := range p.live {
		if alive {
			fn(uint32(i))
		}
	}
}
