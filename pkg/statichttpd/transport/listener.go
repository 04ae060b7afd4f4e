package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
)

var (
	errUnsupportedAddr = errors.New("transport: endpoint is not a TCP address")
	errUnsupportedURI  = errors.New("transport: unsupported listener URI scheme")
	errMissingTLSConf  = errors.New("transport: tls:// listener requires a tls.Config")
)

// Listener owns one accept loop bound to a single URI, the Go analogue
// of the original's "attach to one app_attach session, listen on one
// endpoint" model. Callers get one Listener per configured listen
// address (spec.md §3 listen[]).
type Listener struct {
	uri string
	ln  net.Listener
	cb  Callbacks
	opt AttachOptions

	mu     sync.Mutex
	conns  map[*tcpConn]struct{}
	closed bool
}

// Listen parses a listener URI of the form "tcp://host:port",
// "tls://host:port", "dtls://host:port" or "quic://host:port" and binds
// it. dtls:// and quic:// are accepted syntactically (so configuration
// round-trips) but return errUnsupportedURI on Listen, since UDP-based
// transports are out of this module's scope (spec.md Non-goals).
func Listen(uri string, cb Callbacks, opts AttachOptions, tlsConf *tls.Config) (*Listener, error) {
	scheme, addr, err := splitListenerURI(uri)
	if err != nil {
		return nil, err
	}

	switch scheme {
	case "tcp":
		return listenTCP(uri, addr, TCP, cb, opts, nil)
	case "tls":
		if tlsConf == nil {
			return nil, errMissingTLSConf
		}
		return listenTCP(uri, addr, TLS, cb, opts, tlsConf)
	case "dtls", "quic":
		return nil, fmt.Errorf("%w: %s", errUnsupportedURI, scheme)
	default:
		return nil, fmt.Errorf("%w: %s", errUnsupportedURI, scheme)
	}
}

func splitListenerURI(uri string) (scheme, addr string, err error) {
	parts := strings.SplitN(uri, "://", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %q", errUnsupportedURI, uri)
	}
	host, port, err := net.SplitHostPort(parts[1])
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", errUnsupportedURI, err)
	}
	if _, err := strconv.Atoi(port); err != nil {
		return "", "", fmt.Errorf("%w: bad port %q", errUnsupportedURI, port)
	}
	return strings.ToLower(parts[0]), net.JoinHostPort(host, port), nil
}

func listenTCP(uri, addr string, proto Protocol, cb Callbacks, opts AttachOptions, tlsConf *tls.Config) (*Listener, error) {
	lc := net.ListenConfig{
		Control: rawControl(tuneListenerFD),
	}
	raw, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, err
	}

	var ln net.Listener = raw
	if proto == TLS {
		ln = tls.NewListener(raw, tlsConf)
	}

	l := &Listener{
		uri:   uri,
		ln:    ln,
		cb:    cb,
		opt:   opts,
		conns: make(map[*tcpConn]struct{}),
	}
	go l.acceptLoop(proto)
	return l, nil
}

func (l *Listener) acceptLoop(proto Protocol) {
	for {
		raw, err := l.ln.Accept()
		if err != nil {
			return
		}
		if tcpRaw, ok := raw.(*net.TCPConn); ok {
			if rc, err := tcpRaw.SyscallConn(); err == nil {
				rc.Control(func(fd uintptr) { tuneConnFD(int(fd)) })
			}
		}

		c := newTCPConn(raw, proto, l.opt)
		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			raw.Close()
			return
		}
		l.conns[c] = struct{}{}
		l.mu.Unlock()

		go l.runConn(c)
	}
}

func (l *Listener) runConn(c *tcpConn) {
	if l.cb.Accept != nil {
		l.cb.Accept(c)
	}
	go c.writeLoop(l.cb)
	c.readLoop(l.cb)

	l.mu.Lock()
	delete(l.conns, c)
	l.mu.Unlock()

	if l.cb.Cleanup != nil {
		l.cb.Cleanup(c, CleanupNormal)
	}
}

// Addr reports the bound local address, useful for tests that bind to
// ":0" and need the chosen ephemeral port.
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Close stops accepting new connections and disconnects every live one.
func (l *Listener) Close() error {
	l.mu.Lock()
	l.closed = true
	conns := make([]*tcpConn, 0, len(l.conns))
	for c := range l.conns {
		conns = append(conns, c)
	}
	l.mu.Unlock()

	err := l.ln.Close()
	for _, c := range conns {
		c.Disconnect()
	}
	return err
}
