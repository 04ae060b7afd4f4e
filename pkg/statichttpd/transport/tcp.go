package transport

import (
	"net"
	"sync"
	"syscall"
)

// tcpConn is the net.Conn-backed implementation of Conn. One is created
// per accepted connection; its two Queues are drained/filled by a pair
// of goroutines so the session engine itself never touches the
// network directly (spec.md §1: "the core consumes a bidirectional
// byte-queue session abstraction").
type tcpConn struct {
	conn  net.Conn
	proto Protocol

	rx *Queue
	tx *Queue

	mu   sync.Mutex
	slot uint32

	closeOnce sync.Once
	closed    chan struct{}
}

func newTCPConn(conn net.Conn, proto Protocol, opts AttachOptions) *tcpConn {
	rxSize := opts.RxFifoSize
	if rxSize <= 0 {
		rxSize = 64 * 1024
	}
	txSize := opts.TxFifoSize
	if txSize <= 0 {
		txSize = 64 * 1024
	}
	return &tcpConn{
		conn:   conn,
		proto:  proto,
		rx:     NewQueue(rxSize),
		tx:     NewQueue(txSize),
		slot:   ^uint32(0),
		closed: make(chan struct{}),
	}
}

func (c *tcpConn) RX() *Queue { return c.rx }
func (c *tcpConn) TX() *Queue { return c.tx }

func (c *tcpConn) Proto() Protocol { return c.proto }

func (c *tcpConn) Endpoint(local bool) (Endpoint, error) {
	var addr net.Addr
	if local {
		addr = c.conn.LocalAddr()
	} else {
		addr = c.conn.RemoteAddr()
	}
	tcpAddr, ok := addr.(*net.TCPAddr)
	if !ok {
		return Endpoint{}, errUnsupportedAddr
	}
	return Endpoint{
		IP:    tcpAddr.IP.String(),
		Port:  tcpAddr.Port,
		IsIP4: tcpAddr.IP.To4() != nil,
	}, nil
}

func (c *tcpConn) Disconnect() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.conn.Close()
		c.rx.Close()
		c.tx.Close()
	})
}

func (c *tcpConn) SetSlot(sessionIndex uint32) {
	c.mu.Lock()
	c.slot = sessionIndex
	c.mu.Unlock()
}

func (c *tcpConn) Slot() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slot
}

// readLoop copies socket bytes into rx and fires the RX callback each
// time new bytes land, exactly the shape of the teacher's
// Connection.Serve read loop but feeding a Queue instead of parsing
// inline.
func (c *tcpConn) readLoop(cb Callbacks) {
	buf := make([]byte, 32*1024)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			c.rx.Enqueue(buf[:n])
			if cb.RX != nil {
				cb.RX(c)
			}
		}
		if err != nil {
			if cb.Disconnect != nil {
				cb.Disconnect(c)
			}
			return
		}
	}
}

// writeLoop blocks on tx and flushes whatever arrives straight to the
// socket, calling the TX (drain) callback after each flush so the
// engine can top the queue back up (spec.md §4.6 "TX-drained").
func (c *tcpConn) writeLoop(cb Callbacks) {
	for {
		chunk := c.tx.DequeueBlocking(32 * 1024)
		if len(chunk) == 0 {
			select {
			case <-c.closed:
				return
			default:
				continue
			}
		}
		if _, err := c.conn.Write(chunk); err != nil {
			if cb.Disconnect != nil {
				cb.Disconnect(c)
			}
			return
		}
		if cb.TX != nil {
			cb.TX(c)
		}
	}
}

func rawControl(fn func(fd int) error) func(string, string, syscall.RawConn) error {
	return func(network, address string, rc syscall.RawConn) error {
		var ctrlErr error
		err := rc.Control(func(fd uintptr) {
			ctrlErr = fn(int(fd))
		})
		if err != nil {
			return err
		}
		return ctrlErr
	}
}
