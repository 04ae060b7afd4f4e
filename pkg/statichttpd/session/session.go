// Package session implements the per-connection request/response state
// machine — spec.md §3 Session, §4.6 Request engine and session state
// machine. One Session is allocated per accepted transport connection
// and homed to the worker (goroutine) that owns its transport.Conn.
package session

import (
	"github.com/yourusername/statichttpd/pkg/statichttpd/cache"
	"github.com/yourusername/statichttpd/pkg/statichttpd/transport"
)

// State is one node of spec.md §4.6's state machine:
// Idle → ReadingRequest → Dispatching → SendingHeader → SendingBody →
// Draining → Closing.
type State int

const (
	Idle State = iota
	ReadingRequest
	Dispatching
	SendingHeader
	SendingBody
	Draining
	Closing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ReadingRequest:
		return "reading-request"
	case Dispatching:
		return "dispatching"
	case SendingHeader:
		return "sending-header"
	case SendingBody:
		return "sending-body"
	case Draining:
		return "draining"
	case Closing:
		return "closing"
	default:
		return "unknown"
	}
}

// Session is the pool record spec.md §3 describes: identity, the
// transport it's homed to, the response buffer in flight, and an
// optional held cache entry.
type Session struct {
	index       uint32
	workerIndex uint32
	generation  uint32

	conn  transport.Conn
	state State

	path string

	data       []byte
	freeData   bool
	dataLen    int
	dataOffset int

	cacheHandle *cache.Handle // nil when no acquisition is outstanding

	statusCode int
}

// Index returns the session's stable pool index.
func (s *Session) Index() uint32 { return s.index }

// WorkerIndex returns the worker this session is homed to.
func (s *Session) WorkerIndex() uint32 { return s.workerIndex }

// Generation returns the allocation generation, used by async handlers
// to detect a session that has since been freed and reused — spec.md
// §9 Design Notes, async cross-worker hand-off.
func (s *Session) Generation() uint32 { return s.generation }

// State returns the session's current state-machine node.
func (s *Session) State() State { return s.state }

// Conn returns the transport connection this session is homed to.
func (s *Session) Conn() transport.Conn { return s.conn }

// reset satisfies slab.record: Alloc clears the per-request fields and
// leaves index, workerIndex and generation for engine.go's onAccept to
// assign; onAccept bumps the generation so a stale reference from a
// prior occupant never matches.
func (s *Session) reset() {
	s.conn = nil
	s.state = Idle
	s.path = ""
	s.data = nil
	s.freeData = false
	s.dataLen = 0
	s.dataOffset = 0
	s.cacheHandle = nil
	s.statusCode = 0
}

// poison satisfies slab.record: on debug free, clobber everything a
// lingering reader must not be able to see, but keep workerIndex for
// diagnostics exactly as spec.md §4.1 describes for cache entries.
func (s *Session) poison() {
	worker := s.workerIndex
	s.conn = nil
	s.state = Closing
	s.path = ""
	s.data = nil
	s.freeData = false
	s.dataLen = 0
	s.dataOffset = 0
	s.cacheHandle = nil
	s.statusCode = 0
	s.workerIndex = worker
}
