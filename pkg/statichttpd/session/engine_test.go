package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yourusername/statichttpd/pkg/statichttpd/cache"
	"github.com/yourusername/statichttpd/pkg/statichttpd/config"
	"github.com/yourusername/statichttpd/pkg/statichttpd/dispatch"
	"github.com/yourusername/statichttpd/pkg/statichttpd/transport"
)

type decodedReply struct {
	code int
	mode bodyMode
	body []byte
}

func decodeReplyForTest(t *testing.T, buf []byte) decodedReply {
	t.Helper()
	if len(buf) < replyHeaderSize {
		t.Fatalf("reply %v shorter than header size %d", buf, replyHeaderSize)
	}
	if recordType(buf[0]) != recordReply {
		t.Fatalf("reply type = %d, want recordReply", buf[0])
	}
	code := int(buf[1])<<8 | int(buf[2])
	mode := bodyMode(buf[3])
	length := int(buf[4])<<24 | int(buf[5])<<16 | int(buf[6])<<8 | int(buf[7])
	body := buf[replyHeaderSize : replyHeaderSize+length]
	return decodedReply{code: code, mode: mode, body: body}
}

func waitForDisconnect(t *testing.T, c *transport.FakeConn) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if c.DisconnectCount() > 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("connection was never disconnected")
}

func TestEngineHandlerHitSync(t *testing.T) {
	table := dispatch.New()
	table.Register(dispatch.GET, "/version", func(method dispatch.Method, request string, sid dispatch.SessionID, out *dispatch.Output) dispatch.Outcome {
		out.Data = []byte("v1")
		out.StatusCode = 200
		return dispatch.OK
	})

	cfg := config.NewBuilder().EnableURLHandlers(true).Build()
	e := New(cfg, cache.New(1<<20), table, nil)

	local := transport.Endpoint{IP: "127.0.0.1", Port: 80, IsIP4: true}
	c := transport.NewFakeConn(transport.TCP, local, local, e.Callbacks())
	c.DeliverRequest(encodeRequest(methodGET, "/version"))

	waitForDisconnect(t, c)
	reply := decodeReplyForTest(t, c.DrainReply(4096))
	if reply.code != 200 || string(reply.body) != "v1" {
		t.Fatalf("reply = %+v, want code=200 body=v1", reply)
	}
}

func TestEngineFileMissThenHit(t *testing.T) {
	dir := t.TempDir()
	content := strings.Repeat("x", 100)
	if err := os.WriteFile(filepath.Join(dir, "a.html"), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg := config.NewBuilder().WWWRoot(dir).Build()
	c := cache.New(1 << 20)
	e := New(cfg, c, nil, nil)

	local := transport.Endpoint{IP: "127.0.0.1", Port: 80, IsIP4: true}

	conn1 := transport.NewFakeConn(transport.TCP, local, local, e.Callbacks())
	conn1.DeliverRequest(encodeRequest(methodGET, "/a.html"))
	waitForDisconnect(t, conn1)
	reply1 := decodeReplyForTest(t, conn1.DrainReply(4096))
	if reply1.code != 200 || string(reply1.body) != content {
		t.Fatalf("first reply = %+v", reply1)
	}
	if stats := c.Stats(); stats.Size != 100 || stats.Evictions != 0 {
		t.Fatalf("stats after miss = %+v, want size=100 evictions=0", stats)
	}

	conn2 := transport.NewFakeConn(transport.TCP, local, local, e.Callbacks())
	conn2.DeliverRequest(encodeRequest(methodGET, "/a.html"))
	waitForDisconnect(t, conn2)
	reply2 := decodeReplyForTest(t, conn2.DrainReply(4096))
	if reply2.code != 200 || string(reply2.body) != content {
		t.Fatalf("second reply = %+v", reply2)
	}
	if stats := c.Stats(); stats.Size != 100 || stats.Evictions != 0 {
		t.Fatalf("stats after hit = %+v, want size=100 evictions=0", stats)
	}
}

func TestEngineIndexFallbackRedirect(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "dir"), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	content := strings.Repeat("y", 100)
	if err := os.WriteFile(filepath.Join(dir, "dir", "index.html"), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg := config.NewBuilder().WWWRoot(dir).Build()
	e := New(cfg, cache.New(1<<20), nil, nil)

	local := transport.Endpoint{IP: "192.0.2.1", Port: 80, IsIP4: true}
	c := transport.NewFakeConn(transport.TCP, local, local, e.Callbacks())
	c.DeliverRequest(encodeRequest(methodGET, "/dir"))

	waitForDisconnect(t, c)
	body := c.DrainReply(4096)
	want := "HTTP/1.1 301 Moved Permanently\r\nLocation: http://192.0.2.1/dir/index.html\r\n\r\n"
	if string(body) != want {
		t.Fatalf("redirect body = %q, want %q", body, want)
	}
}

func TestEngineMethodNotAllowed(t *testing.T) {
	cfg := config.NewBuilder().EnableURLHandlers(true).Build()
	e := New(cfg, cache.New(1<<20), nil, nil)

	local := transport.Endpoint{IP: "127.0.0.1", Port: 80, IsIP4: true}
	c := transport.NewFakeConn(transport.TCP, local, local, e.Callbacks())
	c.DeliverRequest(encodeRequest(methodOther, "/anything"))

	waitForDisconnect(t, c)
	reply := decodeReplyForTest(t, c.DrainReply(4096))
	if reply.code != 405 || len(reply.body) != 0 {
		t.Fatalf("reply = %+v, want code=405 empty body", reply)
	}
}

func TestEngineNoRootNoHandlersIs404(t *testing.T) {
	cfg := config.NewBuilder().EnableURLHandlers(true).Build()
	e := New(cfg, cache.New(1<<20), dispatch.New(), nil)

	local := transport.Endpoint{IP: "127.0.0.1", Port: 80, IsIP4: true}
	c := transport.NewFakeConn(transport.TCP, local, local, e.Callbacks())
	c.DeliverRequest(encodeRequest(methodGET, "/nope"))

	waitForDisconnect(t, c)
	reply := decodeReplyForTest(t, c.DrainReply(4096))
	if reply.code != 404 {
		t.Fatalf("reply code = %d, want 404", reply.code)
	}
}

func TestEngineAsyncHandlerSendData(t *testing.T) {
	table := dispatch.New()
	var savedEngine *Engine
	var savedSID dispatch.SessionID
	ready := make(chan struct{})
	table.Register(dispatch.GET, "/async", func(method dispatch.Method, request string, sid dispatch.SessionID, out *dispatch.Output) dispatch.Outcome {
		savedSID = sid
		close(ready)
		return dispatch.ASYNC
	})

	cfg := config.NewBuilder().EnableURLHandlers(true).Build()
	e := New(cfg, cache.New(1<<20), table, nil)
	savedEngine = e

	local := transport.Endpoint{IP: "127.0.0.1", Port: 80, IsIP4: true}
	c := transport.NewFakeConn(transport.TCP, local, local, e.Callbacks())
	c.DeliverRequest(encodeRequest(methodGET, "/async"))

	<-ready
	if err := savedEngine.SendData(savedSID, []byte("async-body"), false, 200); err != nil {
		t.Fatalf("SendData failed: %v", err)
	}

	waitForDisconnect(t, c)
	reply := decodeReplyForTest(t, c.DrainReply(4096))
	if reply.code != 200 || string(reply.body) != "async-body" {
		t.Fatalf("reply = %+v, want code=200 body=async-body", reply)
	}
}

func TestEngineReplyUsesPtrModeAboveThreshold(t *testing.T) {
	table := dispatch.New()
	body := strings.Repeat("z", 100)
	table.Register(dispatch.GET, "/big", func(method dispatch.Method, request string, sid dispatch.SessionID, out *dispatch.Output) dispatch.Outcome {
		out.Data = []byte(body)
		out.StatusCode = 200
		return dispatch.OK
	})

	cfg := config.NewBuilder().EnableURLHandlers(true).UsePtrThresh(10).Build()
	e := New(cfg, cache.New(1<<20), table, nil)

	local := transport.Endpoint{IP: "127.0.0.1", Port: 80, IsIP4: true}
	c := transport.NewFakeConn(transport.TCP, local, local, e.Callbacks())
	c.DeliverRequest(encodeRequest(methodGET, "/big"))

	waitForDisconnect(t, c)
	raw := c.DrainReply(4096)
	// This transport has no shared-memory segment to hand a raw pointer
	// across, so crossing UsePtrThresh only changes the framed mode
	// byte — the body still has to ride the wire (spec.md §9's
	// sanctioned "always inline" fallback).
	if len(raw) != replyHeaderSize+len(body) {
		t.Fatalf("ptr-mode reply framed %d bytes on the wire, want header+body = %d", len(raw), replyHeaderSize+len(body))
	}
	if bodyMode(raw[3]) != bodyPtr {
		t.Fatalf("reply mode = %d, want bodyPtr", raw[3])
	}
	length := int(raw[4])<<24 | int(raw[5])<<16 | int(raw[6])<<8 | int(raw[7])
	if length != 100 {
		t.Fatalf("declared length = %d, want 100", length)
	}
	if string(raw[replyHeaderSize:]) != body {
		t.Fatalf("reply body = %q, want %q", raw[replyHeaderSize:], body)
	}
}

func TestEngineSendDataAfterCleanupIsNoop(t *testing.T) {
	table := dispatch.New()
	sidCh := make(chan dispatch.SessionID, 1)
	table.Register(dispatch.GET, "/async", func(method dispatch.Method, request string, sid dispatch.SessionID, out *dispatch.Output) dispatch.Outcome {
		sidCh <- sid
		return dispatch.ASYNC
	})

	cfg := config.NewBuilder().EnableURLHandlers(true).Build()
	e := New(cfg, cache.New(1<<20), table, nil)

	local := transport.Endpoint{IP: "127.0.0.1", Port: 80, IsIP4: true}
	c := transport.NewFakeConn(transport.TCP, local, local, e.Callbacks())
	c.DeliverRequest(encodeRequest(methodGET, "/async"))
	sid := <-sidCh

	// Simulate the client disconnecting before the handler ever replies.
	c.Disconnect()
	waitForDisconnect(t, c)

	if err := e.SendData(sid, []byte("too-late"), false, 200); err == nil {
		t.Fatal("SendData on a freed session succeeded, want errSessionGone")
	}
}
