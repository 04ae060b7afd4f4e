package transport

import "sync"

// FakeConn is an in-memory Conn with no backing socket, for exercising
// the session/engine packages without opening real listeners —
// analogous to the teacher's net.Pipe()-based connection tests, but
// shaped around Queue rather than net.Conn since that's the boundary
// the engine actually consumes.
type FakeConn struct {
	rx, tx *Queue
	proto  Protocol
	local  Endpoint
	remote Endpoint

	mu         sync.Mutex
	slot       uint32
	disconnect int

	closeOnce sync.Once
	cb        Callbacks
}

// NewFakeConn builds a FakeConn and, if cb.Accept is set, invokes it
// immediately (mirroring the real listener's accept sequencing).
func NewFakeConn(proto Protocol, local, remote Endpoint, cb Callbacks) *FakeConn {
	c := &FakeConn{
		rx:     NewQueue(64 * 1024),
		tx:     NewQueue(64 * 1024),
		proto:  proto,
		local:  local,
		remote: remote,
		slot:   ^uint32(0),
		cb:     cb,
	}
	if cb.Accept != nil {
		cb.Accept(c)
	}
	return c
}

func (c *FakeConn) RX() *Queue { return c.rx }
func (c *FakeConn) TX() *Queue { return c.tx }

func (c *FakeConn) Endpoint(local bool) (Endpoint, error) {
	if local {
		return c.local, nil
	}
	return c.remote, nil
}

func (c *FakeConn) Proto() Protocol { return c.proto }

func (c *FakeConn) Disconnect() {
	c.mu.Lock()
	c.disconnect++
	c.mu.Unlock()
	c.closeOnce.Do(func() {
		c.rx.Close()
		c.tx.Close()
		if c.cb.Disconnect != nil {
			c.cb.Disconnect(c)
		}
		if c.cb.Cleanup != nil {
			c.cb.Cleanup(c, CleanupNormal)
		}
	})
}

func (c *FakeConn) DisconnectCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnect
}

func (c *FakeConn) SetSlot(sessionIndex uint32) {
	c.mu.Lock()
	c.slot = sessionIndex
	c.mu.Unlock()
}

func (c *FakeConn) Slot() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slot
}

// DeliverRequest feeds bytes into the connection's RX queue as a real
// transport would after a socket read, then fires the RX callback so
// the engine under test dispatches exactly as it would live.
func (c *FakeConn) DeliverRequest(data []byte) {
	c.rx.Enqueue(data)
	if c.cb.RX != nil {
		c.cb.RX(c)
	}
}

// DrainReply pulls up to n bytes the engine has queued for send —
// the test-side stand-in for a socket write.
func (c *FakeConn) DrainReply(n int) []byte {
	return c.tx.Dequeue(n)
}
