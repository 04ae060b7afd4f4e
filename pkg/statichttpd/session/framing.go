package session

import (
	"encoding/binary"
	"fmt"

	"github.com/yourusername/statichttpd/pkg/statichttpd/dispatch"
)

// This file is the concrete wire encoding for the framed request/reply
// records spec.md §6 describes at the transport/session boundary. Real
// HTTP header parsing/framing is explicitly out of core scope (spec.md
// §1); what IS core is the fixed-shape record the core consumes and
// emits through the byte queue, so here is a minimal, literal encoding
// of exactly those records — a request/method/length header, and a
// reply/status/body-mode/length header followed by the body. The reply
// header carries no content-type field.

// recordType tags a framed record as a request or a reply, mirroring
// the `type=request`/`type=reply` discriminant in spec.md §6.
type recordType uint8

const (
	recordRequest recordType = 1
	recordReply   recordType = 2
)

// wireMethod is the on-wire method tag; methodOther covers anything
// that isn't GET/POST, which the session engine turns into a 405.
type wireMethod uint8

const (
	methodOther wireMethod = 0
	methodGET   wireMethod = 1
	methodPOST  wireMethod = 2
)

// bodyMode distinguishes an inline body from a pointer-mode body, per
// spec.md §4.6's use_ptr_thresh optimization.
type bodyMode uint8

const (
	bodyInline bodyMode = 0
	bodyPtr    bodyMode = 1
)

const requestHeaderSize = 1 + 1 + 4 // type + method + data.len
const replyHeaderSize = 1 + 2 + 1 + 4 // type + code + data.mode + data.len

var errShortRequestHeader = fmt.Errorf("session: request header shorter than %d bytes", requestHeaderSize)
var errShortRequestBody = fmt.Errorf("session: request body shorter than declared length")

// decodedRequest is the parsed form of one framed request record.
type decodedRequest struct {
	method  wireMethod
	request string
}

// decodeRequest parses one framed request record out of buf. It
// returns the number of bytes consumed so a caller holding more than
// one record queued can decode them one at a time (the engine ignores
// it today since one request per session is in flight at once; it is
// kept symmetric with encodeReplyHeader's self-delimiting framing).
func decodeRequest(buf []byte) (decodedRequest, int, error) {
	if len(buf) < requestHeaderSize {
		return decodedRequest{}, 0, errShortRequestHeader
	}
	if recordType(buf[0]) != recordRequest {
		return decodedRequest{}, 0, fmt.Errorf("session: expected request record, got type %d", buf[0])
	}
	method := wireMethod(buf[1])
	n := binary.BigEndian.Uint32(buf[2:6])
	total := requestHeaderSize + int(n)
	if len(buf) < total {
		return decodedRequest{}, 0, errShortRequestBody
	}
	return decodedRequest{method: method, request: string(buf[requestHeaderSize:total])}, total, nil
}

// encodeRequest is the inverse of decodeRequest, used with the fake
// transport in this package's tests to drive the engine exactly as a real framing
// layer upstream would.
func encodeRequest(method wireMethod, request string) []byte {
	out := make([]byte, requestHeaderSize+len(request))
	out[0] = byte(recordRequest)
	out[1] = byte(method)
	binary.BigEndian.PutUint32(out[2:6], uint32(len(request)))
	copy(out[requestHeaderSize:], request)
	return out
}

// EncodeRequest builds the wire bytes for one framed request record —
// the format any upstream HTTP-parsing layer (out of core scope, see
// spec.md §1) is expected to hand this engine. Exported so a real
// transport.Conn client (or a future parsing adapter) can produce
// requests the engine understands without reaching into this
// package's internals.
func EncodeRequest(method dispatch.Method, request string) []byte {
	return encodeRequest(wireMethodOf(method), request)
}

// EncodeOtherMethodRequest builds a framed request record for any
// method outside GET/POST, which the engine answers with 405 per
// spec.md §4.6.
func EncodeOtherMethodRequest(request string) []byte {
	return encodeRequest(methodOther, request)
}

func wireMethodOf(method dispatch.Method) wireMethod {
	switch method {
	case dispatch.GET:
		return methodGET
	case dispatch.POST:
		return methodPOST
	default:
		return methodOther
	}
}

// encodeReplyHeader builds the fixed-size reply record described in
// spec.md §4.6/§6: type, status code, body mode, and declared length.
// The body bytes are appended separately by the caller in both modes —
// this translation never exposes raw pointers across the queue (see
// DESIGN.md).
func encodeReplyHeader(code int, mode bodyMode, length int) []byte {
	out := make([]byte, replyHeaderSize)
	out[0] = byte(recordReply)
	binary.BigEndian.PutUint16(out[1:3], uint16(code))
	out[3] = byte(mode)
	binary.BigEndian.PutUint32(out[4:8], uint32(length))
	return out
}
