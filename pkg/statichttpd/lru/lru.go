// Package lru implements an intrusive doubly-linked list over slab
// indices. "Intrusive" means the prev/next links live inside the
// caller's record (via the Linked interface), not in a separate container
// node — the same shape as xDarkicex/liteLRU's array-backed list, but
// generalized to an arbitrary slab.Pool instead of a fixed array.
package lru

import "github.com/yourusername/statichttpd/pkg/statichttpd/slab"

// Linked is implemented by a record that participates in an LRU list.
// Prev/Next/SetPrev/SetNext manipulate the intrusive links; LastUsed/
// SetLastUsed track the monotonic timestamp the list orders on.
type Linked interface {
	Prev() uint32
	Next() uint32
	SetPrev(uint32)
	SetNext(uint32)
	LastUsed() float64
	SetLastUsed(float64)
}

// Accessor resolves a slab index to its record. It is a function rather
// than a stored *slab.Pool so List can order records of any shape,
// including ones embedded in a larger struct the cache owns.
type Accessor[T any] func(idx uint32) *T

// List is the LRU ordering for a slab.Pool: front = most recently used,
// back = least recently used. It carries no state about which indices
// are live; that is the slab.Pool's job. *T must implement Linked.
type List[T any] struct {
	get        func(idx uint32) Linked
	firstIndex uint32 // newest
	lastIndex  uint32 // oldest
}

// New creates an empty LRU list that resolves indices via get.
func New[T any](get Accessor[T]) *List[T] {
	linked := func(idx uint32) Linked { return any(get(idx)).(Linked) }
	return &List[T]{get: linked, firstIndex: slab.None, lastIndex: slab.None}
}

// Front returns the most-recently-used index, or slab.None if empty.
func (l *List[T]) Front() uint32 { return l.firstIndex }

// Back returns the least-recently-used index, or slab.None if empty.
func (l *List[T]) Back() uint32 { return l.lastIndex }

// Add links idx at the front of the list and stamps its last-used time.
// idx must not already be in the list.
func (l *List[T]) Add(idx uint32, now float64) {
	e := l.get(idx)
	e.SetLastUsed(now)
	e.SetPrev(slab.None)
	e.SetNext(l.firstIndex)

	if l.firstIndex != slab.None {
		l.get(l.firstIndex).SetPrev(idx)
	}
	l.firstIndex = idx
	if l.lastIndex == slab.None {
		l.lastIndex = idx
	}
}

// Remove unlinks idx from the list, fixing head/tail as needed. idx
// must currently be in the list.
func (l *List[T]) Remove(idx uint32) {
	e := l.get(idx)
	prev := e.Prev()
	next := e.Next()

	if prev != slab.None {
		l.get(prev).SetNext(next)
	} else {
		l.firstIndex = next
	}

	if next != slab.None {
		l.get(next).SetPrev(prev)
	} else {
		l.lastIndex = prev
	}

	e.SetPrev(slab.None)
	e.SetNext(slab.None)
}

// Update moves idx to the front and stamps its last-used time, as if
// removed and re-added. Equivalent to Remove followed by Add, exposed
// as one call since every caller needs both.
func (l *List[T]) Update(idx uint32, now float64) {
	l.Remove(idx)
	l.Add(idx, now)
}

// Len walks the list counting entries. Intended for tests and the
// debug validator, not the hot path.
func (l *List[T]) Len() int {
	n := 0
	for idx := l.firstIndex; idx != slab.None; idx = l.get(idx).Next() {
		n++
	}
	return n
}

// Validate walks the list front-to-back and back-to-front, asserting
// monotone non-increasing (resp. non-decreasing) timestamps and that
// both walks agree on the set of indices visited and on firstIndex/
// lastIndex. It is the Go-native form of the original implementation's
// debug-only LRU validator (spec.md §4.2); call it from tests or behind
// a debug flag, never on the request hot path.
func (l *List[T]) Validate() error {
	forward := make([]uint32, 0)
	prevLastUsed := float64(0)
	first := true
	for idx := l.firstIndex; idx != slab.None; idx = l.get(idx).Next() {
		forward = append(forward, idx)
		lu := l.get(idx).LastUsed()
		if !first && lu > prevLastUsed {
			return errNonMonotone(idx)
		}
		prevLastUsed = lu
		first = false
	}

	if len(forward) > 0 {
		if forward[0] != l.firstIndex {
			return errEndpointMismatch("first", l.firstIndex, forward[0])
		}
		if forward[len(forward)-1] != l.lastIndex {
			return errEndpointMismatch("last", l.lastIndex, forward[len(forward)-1])
		}
	} else if l.firstIndex != slab.None || l.lastIndex != slab.None {
		return errEndpointMismatch("first/last", slab.None, l.firstIndex)
	}

	backward := make([]uint32, 0, len(forward))
	for idx := l.lastIndex; idx != slab.None; idx = l.get(idx).Prev() {
		backward = append(backward, idx)
	}
	if len(backward) != len(forward) {
		return errLengthMismatch(len(forward), len(backward))
	}
	for i, idx := range backward {
		if idx != forward[len(forward)-1-i] {
			return errOrderMismatch()
		}
	}
	return nil
}
