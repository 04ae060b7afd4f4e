package transport

// Protocol identifies the terminated transport underneath a Conn —
// spec.md §6 transport_proto.
type Protocol int

const (
	TCP Protocol = iota
	TLS
	DTLS
	QUIC
)

func (p Protocol) String() string {
	switch p {
	case TCP:
		return "tcp"
	case TLS:
		return "tls"
	case DTLS:
		return "dtls"
	case QUIC:
		return "quic"
	default:
		return "unknown"
	}
}

// Endpoint is one side of a connection — spec.md §6 endpoint().
type Endpoint struct {
	IP   string
	Port int
	IsIP4 bool
}

// CleanupKind distinguishes a normal teardown from one forced by a
// transport-level error, passed through to the Cleanup callback.
type CleanupKind int

const (
	CleanupNormal CleanupKind = iota
	CleanupError
)

// Conn is the opaque "transport_handle" the session state machine
// holds: two byte queues and the metadata the resolver needs (protocol,
// local endpoint for the redirect Location header) — spec.md §6.
// Concrete transports (tcp.go, or a test fake) implement this; the
// session engine never sees anything more concrete than this interface.
type Conn interface {
	// RX is the queue the engine dequeues framed request bytes from.
	RX() *Queue
	// TX is the queue the engine enqueues framed reply bytes into.
	TX() *Queue

	// Endpoint returns the local or remote address of the connection.
	Endpoint(local bool) (Endpoint, error)

	// Proto reports which transport terminated this connection.
	Proto() Protocol

	// Disconnect requests the transport tear this connection down;
	// the engine will still receive a Cleanup callback once torn down.
	Disconnect()

	// SetSlot/Slot stash the engine's own session index in the
	// connection's opaque slot (spec.md §4.6 Accept: "stash the
	// session index in the transport's opaque slot").
	SetSlot(sessionIndex uint32)
	Slot() uint32
}

// Callbacks is the table a listener invokes on session lifecycle events
// — spec.md §6's accept/rx/tx/disconnect/reset/cleanup. The engine
// registers exactly one of these at startup (app_attach).
type Callbacks struct {
	Accept     func(c Conn)
	RX         func(c Conn)
	TX         func(c Conn)
	Disconnect func(c Conn)
	Reset      func(c Conn)
	Cleanup    func(c Conn, kind CleanupKind)
}

// AttachOptions mirrors spec.md §6's app_attach options. RxFifoSize/
// TxFifoSize become each Conn's Queue capacities in bytes; SegmentSize,
// AddSegmentSize, PreallocFifoPairs and TLSEngine are not read by this
// package (no shared-memory segments to preallocate, and TLS is set up
// from the *tls.Config passed to Listen), kept so a caller's config
// maps 1:1 onto the original knobs.
type AttachOptions struct {
	SegmentSize       int
	AddSegmentSize    int
	RxFifoSize        int
	TxFifoSize        int
	PreallocFifoPairs int
	TLSEngine         string
}
