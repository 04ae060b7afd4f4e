package slab

import "testing"

type testRecord struct {
	workerIndex int
	tag         string
}

func (r *testRecord) reset() {
	r.tag = ""
}

func (r *testRecord) poison() {
	r.tag = "\xfe\xfe\xfe\xfe"
}

func TestAllocReuseAndLiveness(t *testing.T) {
	p := New[testRecord]()

	a := p.Alloc()
	b := p.Alloc()
	if a == b {
		t.Fatalf("expected distinct indices, got %d and %d", a, b)
	}
	if p.Len() != 2 {
		t.Fatalf("expected 2 live records, got %d", p.Len())
	}

	p.Get(a).tag = "alpha"
	p.Free(a)
	if p.IsLive(a) {
		t.Fatalf("index %d should be freed", a)
	}
	if p.Len() != 1 {
		t.Fatalf("expected 1 live record after free, got %d", p.Len())
	}

	c := p.Alloc()
	if c != a {
		t.Fatalf("expected freelist reuse of index %d, got %d", a, c)
	}
	if got := p.Get(c).tag; got != "" {
		t.Fatalf("reused slot was not reset, tag=%q", got)
	}
}

func TestFreePreservesWorkerIndexUnderDebugPoison(t *testing.T) {
	Debug = true
	defer func() { Debug = false }()

	p := New[testRecord]()
	idx := p.Alloc()
	r := p.Get(idx)
	r.workerIndex = 7
	r.tag = "payload"

	p.Free(idx)

	// poison() is responsible for preserving workerIndex; verify the
	// contract by checking the field survives while tag is poisoned.
	if r.workerIndex != 7 {
		t.Fatalf("worker index clobbered by poison: got %d", r.workerIndex)
	}
	if r.tag == "payload" {
		t.Fatalf("poison did not overwrite freed record")
	}
}

func TestDoubleFreeIsNoop(t *testing.T) {
	p := New[testRecord]()
	idx := p.Alloc()
	p.Free(idx)
	p.Free(idx) // must not panic or double-decrement
	if p.Len() != 0 {
		t.Fatalf("expected 0 live records, got %d", p.Len())
	}
}

func TestGetOnNoneIndex(t *testing.T) {
	p := New[testRecord]()
	if p.Get(None) != nil {
		t.Fatalf("expected nil for None index")
	}
	if p.IsLive(None) {
		t.Fatalf("None index must never be live")
	}
}

func TestEachVisitsOnlyLive(t *testing.T) {
	p := New[testRecord]()
	a := p.Alloc()
	_ = p.Alloc()
	p.Free(a)

	seen := 0
	p.Each(func(idx uint32) {
		seen++
		if idx == a {
			t.Fatalf("Each visited freed index %d", idx)
		}
	})
	if seen != 1 {
		t.Fatalf("expected 1 live record visited, got %d", seen)
	}
}
