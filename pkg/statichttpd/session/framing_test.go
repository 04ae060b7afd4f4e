package session

import "testing"

func TestEncodeDecodeRequestRoundTrip(t *testing.T) {
	wire := encodeRequest(methodGET, "/a.html")
	got, n, err := decodeRequest(wire)
	if err != nil {
		t.Fatalf("decodeRequest failed: %v", err)
	}
	if n != len(wire) {
		t.Fatalf("consumed %d bytes, want %d", n, len(wire))
	}
	if got.method != methodGET || got.request != "/a.html" {
		t.Fatalf("decoded %+v, want method=GET request=/a.html", got)
	}
}

func TestDecodeRequestRejectsShortHeader(t *testing.T) {
	if _, _, err := decodeRequest([]byte{1, 2}); err == nil {
		t.Fatal("decodeRequest accepted a too-short header")
	}
}

func TestDecodeRequestRejectsTruncatedBody(t *testing.T) {
	wire := encodeRequest(methodPOST, "/submit")
	truncated := wire[:len(wire)-2]
	if _, _, err := decodeRequest(truncated); err == nil {
		t.Fatal("decodeRequest accepted a truncated body")
	}
}

func TestEncodeReplyHeaderLayout(t *testing.T) {
	h := encodeReplyHeader(200, bodyInline, 2)
	if len(h) != replyHeaderSize {
		t.Fatalf("header length = %d, want %d", len(h), replyHeaderSize)
	}
	if recordType(h[0]) != recordReply {
		t.Fatalf("h[0] = %d, want recordReply", h[0])
	}
	code := int(h[1])<<8 | int(h[2])
	if code != 200 {
		t.Fatalf("decoded code = %d, want 200", code)
	}
	if bodyMode(h[3]) != bodyInline {
		t.Fatalf("decoded mode = %d, want bodyInline", h[3])
	}
}
