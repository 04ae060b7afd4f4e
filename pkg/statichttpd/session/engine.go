package session

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/valyala/bytebufferpool"

	"github.com/yourusername/statichttpd/pkg/statichttpd/cache"
	"github.com/yourusername/statichttpd/pkg/statichttpd/config"
	"github.com/yourusername/statichttpd/pkg/statichttpd/dispatch"
	"github.com/yourusername/statichttpd/pkg/statichttpd/slab"
	"github.com/yourusername/statichttpd/pkg/statichttpd/transport"
)

// minIndexFileSize is spec.md §4.6's legacy 20-byte minimum — "preserve
// behavior but mark as a possibly-buggy source-level choice" (spec.md
// §9). It forces the index.html fallback even for a file that exists
// but is implausibly small to be real content.
const minIndexFileSize = 20

// deqNotifCap is spec.md §4.6 Accept's "min(tx_queue_size, 16 KiB)"
// send-drained notification threshold.
const deqNotifCap = 16 * 1024

var errSessionGone = errors.New("session: stale generation, session was freed and reused")

// Engine wires the content cache, the dispatch table, and a transport
// listener together — spec.md §2 component 7, "Request engine". One
// Engine instance runs the whole server; every accepted transport.Conn
// gets its own Session out of a single shared pool. The Go translation
// homes every session to worker 0 (WorkerIndex is carried through
// purely to satisfy the spec.md §4.6 ABI — in this goroutine-per-
// connection model, "the worker owning a session" is simply "the
// goroutine running that connection's callbacks", so there is no
// separate worker scheduler to model).
type Engine struct {
	mu      sync.Mutex
	pool    *slab.Pool[Session]
	byConn  map[transport.Conn]uint32
	genOf   map[uint32]uint32

	cache *cache.ContentCache
	table *dispatch.Table
	cfg   config.Config
	log   *slog.Logger

	statFile func(path string) (size int64, isRegular bool, err error)
}

// New builds an Engine bound to cache c and dispatch table t under cfg.
// logger may be nil, in which case slog.Default() is used.
func New(cfg config.Config, c *cache.ContentCache, t *dispatch.Table, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if t == nil {
		t = dispatch.New()
	}
	return &Engine{
		pool:     slab.New[Session](),
		byConn:   make(map[transport.Conn]uint32),
		genOf:    make(map[uint32]uint32),
		cache:    c,
		table:    t,
		cfg:      cfg,
		log:      logger,
		statFile: statFileDefault,
	}
}

func statFileDefault(p string) (int64, bool, error) {
	fi, err := os.Stat(p)
	if err != nil {
		return 0, false, err
	}
	return fi.Size(), fi.Mode().IsRegular(), nil
}

// Callbacks returns the transport.Callbacks table bound to this
// engine's event handlers, ready to pass to transport.Listen.
func (e *Engine) Callbacks() transport.Callbacks {
	return transport.Callbacks{
		Accept:     e.onAccept,
		RX:         e.onRX,
		TX:         e.onTX,
		Disconnect: e.onDisconnect,
		Reset:      e.onReset,
		Cleanup:    e.onCleanup,
	}
}

// SessionCount reports the number of live sessions, for the "show http
// static server sessions" CLI diagnostic.
func (e *Engine) SessionCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pool.Len()
}

// --- accept -----------------------------------------------------------

func (e *Engine) onAccept(c transport.Conn) {
	e.mu.Lock()
	idx := e.pool.Alloc()
	e.genOf[idx]++
	gen := e.genOf[idx]
	s := e.pool.Get(idx)
	s.index = idx
	s.workerIndex = 0
	s.generation = gen
	s.conn = c
	s.state = Idle
	e.byConn[c] = idx
	e.mu.Unlock()

	c.TX().SetDeqThresh(minInt(c.TX().Cap(), deqNotifCap))
	c.TX().OnDrain(func() { e.onTX(c) })
	c.SetSlot(idx)
}

// --- rx: dequeue one framed request, resolve, and reply ---------------

func (e *Engine) onRX(c transport.Conn) {
	s := e.sessionFor(c)
	if s == nil {
		return
	}
	s.state = ReadingRequest

	buf := c.RX().Dequeue(c.RX().Cap())
	if len(buf) == 0 {
		return
	}
	req, _, err := decodeRequest(buf)
	if err != nil {
		// Misframed request: best-effort ignore in release (spec.md §7).
		e.log.Warn("dropping misframed request record", "err", err)
		return
	}

	var method dispatch.Method
	switch req.method {
	case methodGET:
		method = dispatch.GET
	case methodPOST:
		method = dispatch.POST
	default:
		e.replyAndDisconnect(s, c, 405, nil, false)
		return
	}

	s.state = Dispatching
	e.resolve(s, c, method, req.request)
}

func (e *Engine) resolve(s *Session, c transport.Conn, method dispatch.Method, request string) {
	if e.cfg.EnableURLHandlers {
		if handler, ok := e.table.Lookup(method, request); ok {
			out := dispatch.Output{}
			sid := dispatch.SessionID{WorkerIndex: s.workerIndex, SessionIndex: s.index, Generation: s.generation}
			switch handler(method, request, sid, &out) {
			case dispatch.OK:
				e.replyAndDisconnect(s, c, statusOr(out.StatusCode, 200), out.Data, out.FreeData)
			case dispatch.ERROR:
				e.replyAndDisconnect(s, c, 404, nil, false)
			case dispatch.ASYNC:
				// Handler retains sid; SendData will resume this session
				// later, possibly from another goroutine.
			}
			return
		}
	}

	if e.cfg.WWWRoot == "" {
		e.replyAndDisconnect(s, c, 404, nil, false)
		return
	}

	resolved := joinWWWRoot(e.cfg.WWWRoot, request)
	finalPath, redirectSuffix, ok := e.resolveFile(resolved)
	if !ok {
		e.replyAndDisconnect(s, c, 404, nil, false)
		return
	}

	if redirectSuffix != "" {
		body, err := e.buildRedirect(c, redirectSuffix)
		if err != nil {
			e.replyAndDisconnect(s, c, 500, nil, false)
			return
		}
		// spec.md §4.6 step 5: the redirect is the entire raw response,
		// no separate framed reply record.
		e.sendRaw(s, c, body)
		return
	}

	handle, data, err := e.cache.Acquire(finalPath)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			e.replyAndDisconnect(s, c, 404, nil, false)
		} else {
			e.replyAndDisconnect(s, c, 500, nil, false)
		}
		return
	}
	s.path = finalPath
	s.cacheHandle = handle
	e.replyAndDisconnect(s, c, 200, data, false)
}

func statusOr(code, fallback int) int {
	if code == 0 {
		return fallback
	}
	return code
}

// joinWWWRoot implements spec.md §4.6 step 3.
func joinWWWRoot(root, request string) string {
	if request == "" {
		return root
	}
	if strings.HasPrefix(request, "/") {
		return root + request
	}
	return root + "/" + request
}

// resolveFile implements spec.md §4.6 step 4: stat the path, and on
// any failure (stat error, too small, not regular) try
// "<path>index.html" then "<path>/index.html". Returns the final path
// to serve, a non-empty redirectSuffix set only when the SECOND
// fallback (with the separator) is what succeeded, and ok=false if all
// three attempts failed.
func (e *Engine) resolveFile(p string) (finalPath, redirectSuffix string, ok bool) {
	if e.statOK(p) {
		return p, "", true
	}
	noSep := p + "index.html"
	if e.statOK(noSep) {
		return noSep, "", true
	}
	withSep := p + "/index.html"
	if e.statOK(withSep) {
		return withSep, withSep, true
	}
	return "", "", false
}

func (e *Engine) statOK(p string) bool {
	size, isRegular, err := e.statFile(p)
	if err != nil || !isRegular {
		return false
	}
	return size >= minIndexFileSize
}

// buildRedirect implements spec.md §4.6 step 5's raw 301 response.
func (e *Engine) buildRedirect(c transport.Conn, fullPath string) ([]byte, error) {
	ep, err := c.Endpoint(true)
	if err != nil {
		return nil, err
	}
	scheme := "http"
	if c.Proto() == transport.TLS {
		scheme = "https"
	}

	omitPort := (c.Proto() == transport.TCP && ep.Port == 80) || (c.Proto() == transport.TLS && ep.Port == 443)
	host := ep.IP
	if !omitPort {
		host = host + ":" + strconv.Itoa(ep.Port)
	}

	location := strings.TrimPrefix(fullPath, e.cfg.WWWRoot)
	location = fmt.Sprintf("%s://%s%s", scheme, host, location)

	return []byte("HTTP/1.1 301 Moved Permanently\r\nLocation: " + location + "\r\n\r\n"), nil
}

// --- reply framing ------------------------------------------------------

func (e *Engine) replyAndDisconnect(s *Session, c transport.Conn, code int, data []byte, freeData bool) {
	s.statusCode = code
	s.data = data
	s.freeData = freeData
	s.dataLen = len(data)
	s.dataOffset = 0
	s.state = SendingHeader

	mode := bodyInline
	if len(data) > e.cfg.UsePtrThresh && e.cfg.UsePtrThresh > 0 {
		mode = bodyPtr
	}

	// Assemble the header and body into one pooled buffer before
	// enqueuing, rather than issuing two separate Enqueue calls — avoids
	// splitting a small reply across two queue writes for no reason.
	// This transport has no shared-memory segment to hand a raw pointer
	// across (spec.md §9's sanctioned fallback for that case: "ignore it
	// (always inline)"), so mode only changes which byte is framed in the
	// header; the body always follows it on the wire, streamed across
	// multiple TX events if it doesn't fit in one Enqueue.
	buf := bytebufferpool.Get()
	buf.Write(encodeReplyHeader(code, mode, len(data)))
	buf.Write(data)
	n := c.TX().Enqueue(buf.Bytes())
	bytebufferpool.Put(buf)

	bodyAccepted := n - replyHeaderSize
	if bodyAccepted < 0 {
		bodyAccepted = 0
	}
	if bodyAccepted > s.dataLen {
		bodyAccepted = s.dataLen
	}
	s.dataOffset = bodyAccepted

	if s.dataOffset < s.dataLen {
		s.state = Draining
		c.TX().AddWantDeqNotif()
		return
	}
	s.state = SendingBody
	e.finishIfDrained(s, c)
}

// sendRaw implements spec.md §4.6 step 5's "data holds the whole thing,
// data_len unset" — the entire redirect response is the reply, no
// framed header.
func (e *Engine) sendRaw(s *Session, c transport.Conn, body []byte) {
	s.data = body
	s.freeData = true
	s.dataLen = len(body)
	s.dataOffset = 0
	s.state = SendingBody
	e.drainBody(s, c)
}

func (e *Engine) drainBody(s *Session, c transport.Conn) {
	if s.data == nil || s.dataOffset >= s.dataLen {
		e.finishIfDrained(s, c)
		return
	}
	n := c.TX().Enqueue(s.data[s.dataOffset:s.dataLen])
	s.dataOffset += n
	if s.dataOffset < s.dataLen {
		s.state = Draining
		c.TX().AddWantDeqNotif()
		return
	}
	e.finishIfDrained(s, c)
}

func (e *Engine) finishIfDrained(s *Session, c transport.Conn) {
	if s.data == nil || s.dataOffset >= s.dataLen {
		s.state = Closing
		c.Disconnect()
	}
}

// --- tx: resume draining -------------------------------------------------

func (e *Engine) onTX(c transport.Conn) {
	s := e.sessionFor(c)
	if s == nil {
		return
	}
	if s.data != nil && s.dataOffset < s.dataLen {
		e.drainBody(s, c)
	}
}

// --- disconnect / reset / cleanup ---------------------------------------

// onDisconnect/onReset are notifications that the transport has already
// torn the connection down (peer FIN/RST, I/O error); the engine only
// needs to update session bookkeeping here; spec.md §4.6's "Cleanup
// (final)" step — freeing the session and releasing any cache handle —
// happens in onCleanup once the transport confirms teardown is
// complete. The engine-initiated teardown path (a normally completed
// reply) goes through finishIfDrained, which calls Conn.Disconnect
// directly rather than through this callback.
func (e *Engine) onDisconnect(c transport.Conn) {
	if s := e.sessionFor(c); s != nil {
		s.state = Closing
	}
}

func (e *Engine) onReset(c transport.Conn) {
	e.onDisconnect(c)
}

func (e *Engine) onCleanup(c transport.Conn, kind transport.CleanupKind) {
	e.mu.Lock()
	idx, ok := e.byConn[c]
	if !ok {
		e.mu.Unlock()
		return
	}
	delete(e.byConn, c)
	s := e.pool.Get(idx)
	var handle *cache.Handle
	if s != nil {
		handle = s.cacheHandle
	}
	e.pool.Free(idx)
	e.mu.Unlock()

	if handle != nil {
		e.cache.Release(handle)
	}
}

// --- async send_data ------------------------------------------------------

// SendData completes an ASYNC handler's response — spec.md §4.5
// send_data / §4.6 "Concurrency rule": may be called from any
// goroutine. If the session has since been freed (or reused by a new
// connection, detected via the generation mismatch), it sends nothing
// and returns errSessionGone, as spec.md §5 requires of async handlers
// racing a disconnect.
func (e *Engine) SendData(sid dispatch.SessionID, data []byte, freeData bool, statusCode int) error {
	e.mu.Lock()
	s := e.pool.Get(sid.SessionIndex)
	if s == nil || s.generation != sid.Generation {
		e.mu.Unlock()
		return errSessionGone
	}
	c := s.conn
	e.mu.Unlock()

	// spec.md §9 Design Notes (c): last-writer-wins if called twice.
	e.replyAndDisconnect(s, c, statusOr(statusCode, 200), data, freeData)
	return nil
}

func (e *Engine) sessionFor(c transport.Conn) *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	idx, ok := e.byConn[c]
	if !ok {
		return nil
	}
	return e.pool.Get(idx)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
