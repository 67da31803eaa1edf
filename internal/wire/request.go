package wire

import (
	"io"

	"github.com/lumenhttp/mhttpd/internal/pool"
)

// BodyMode describes how much of the connection's incoming bytes still
// belong to the current request body.
type BodyMode uint8

const (
	BodyNone BodyMode = iota
	BodyContentLength
	BodyChunked
	BodyUntilClose // HTTP/1.0, no framing given: read until the peer closes
)

// Request is the parsed view of one HTTP request, built directly against
// the connection's pool-owned buffers (spec §3 "Request fingerprint and
// buffers"). Each request and header line is first copied into pool
// memory; the Method/Target/Path/RawQuery strings are Go copies of those
// bytes and stay valid after the Pool is destroyed.
type Request struct {
	Method        string
	Target        string // raw request-target, verbatim
	Path          string // target with query split off
	RawQuery      string
	ProtoMajor    int
	ProtoMinor    int
	Headers       List
	ContentLength int64 // -1 when not present
	BodyMode      BodyMode
	Close         bool // Connection: close requested
	Expect100     bool
	RemoteAddr    string

	Body io.Reader

	pool *pool.Pool
}

// HasHeader reports whether a request header with name is present.
func (r *Request) HasHeader(name string) bool {
	return r.Headers.Has(name, RequestHeader)
}

// Header returns the first request header value for name.
func (r *Request) Header(name string) (string, bool) {
	return r.Headers.Get(name, RequestHeader)
}

// Reset clears a Request for reuse against a freshly reset Pool, as
// happens between pipelined requests on a keep-alive connection.
func (r *Request) Reset() {
	r.Method = ""
	r.Target = ""
	r.Path = ""
	r.RawQuery = ""
	r.ProtoMajor = 0
	r.ProtoMinor = 0
	r.Headers.Reset()
	r.ContentLength = -1
	r.BodyMode = BodyNone
	r.Close = false
	r.Expect100 = false
	r.Body = nil
}
