// Package dispatch implements the URL dispatch table (spec.md §4.5): a
// map from (method, request-line) to a handler, consulted by the
// request engine before falling back to the filesystem. Keys are exact
// strings — no glob or regex matching, the same "no routing DSL" choice
// the teacher's own server.Handler type makes.
package dispatch

// Method identifies which of the two handler tables a request is
// dispatched through. Only GET and POST are dispatchable (spec.md §4.6
// RX: any other method is rejected before dispatch is ever consulted).
type Method int

const (
	GET Method = iota
	POST
)

func (m Method) String() string {
	switch m {
	case GET:
		return "GET"
	case POST:
		return "POST"
	default:
		return "UNKNOWN"
	}
}

// SessionID identifies the session a handler is running on behalf of,
// passed through so an async handler can call back into the engine via
// session.Engine.SendData from any worker (spec.md §4.5, §4.6 "Concurrency
// rule").
type SessionID struct {
	WorkerIndex  uint32
	SessionIndex uint32
	Generation   uint32
}

// Output is the handler's out-slot: the bytes to send, whether the
// engine owns (and must free) them, and the status code to report.
// Mirrors spec.md §4.5's {data, data_len, free_vec_data, sc}.
type Output struct {
	Data       []byte
	FreeData   bool
	StatusCode int
}

// Outcome is a handler's synchronous return value.
type Outcome int

const (
	// OK: out is filled in; the engine sends it immediately and
	// disconnects once the body drains.
	OK Outcome = iota
	// ERROR: the engine sends 404 with an empty body and disconnects.
	ERROR
	// ASYNC: the handler retains sid and will call
	// session.Engine.SendData later, possibly from a different worker.
	ASYNC
)

// Handler answers one dispatched request. method and request are the
// exact strings that were looked up; sid identifies the session for use
// with an ASYNC return.
type Handler func(method Method, request string, sid SessionID, out *Output) Outcome

// Table is a dispatch table: one string->Handler map per method family.
// The zero value is usable but GET/POST maps are lazily created on
// first Register so an empty Table (handlers disabled) costs nothing.
type Table struct {
	get  map[string]Handler
	post map[string]Handler
}

// New creates an empty dispatch table.
func New() *Table {
	return &Table{}
}

// Register installs handler for method+request, overwriting any prior
// registration for the same key.
func (t *Table) Register(method Method, request string, handler Handler) {
	switch method {
	case GET:
		if t.get == nil {
			t.get = make(map[string]Handler)
		}
		t.get[request] = handler
	case POST:
		if t.post == nil {
			t.post = make(map[string]Handler)
		}
		t.post[request] = handler
	}
}

// Lookup returns the handler registered for method+request, or
// (nil, false) if none matches or the table for that method is absent
// (spec.md §4.5: "if either table is absent... lookup fails").
func (t *Table) Lookup(method Method, request string) (Handler, bool) {
	var table map[string]Handler
	switch method {
	case GET:
		table = t.get
	case POST:
		table = t.post
	default:
		return nil, false
	}
	if table == nil {
		return nil, false
	}
	h, ok := table[request]
	return h, ok
}
