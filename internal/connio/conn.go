// Package connio's conn.go drives one TCP (or TLS, via the net.Conn
// interface) connection through the request/response state machine
// described in spec §4.4: pool-per-request, parse, handler invocation,
// response serialization, and the keep-alive decision.
//
// Go's net.Conn already supplies exactly the capability set §4.5 asks
// of a transport adapter (blocking recv/send, close, deadlines) across
// both plain TCP and TLS, so Conn is built directly against net.Conn
// rather than a hand-rolled function-pointer table; internal/transport
// is responsible for constructing the right net.Conn (plain listener
// accept vs. tls.Server), not for re-deriving recv/send dispatch.
package connio

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/lumenhttp/mhttpd/internal/clock"
	"github.com/lumenhttp/mhttpd/internal/logsink"
	"github.com/lumenhttp/mhttpd/internal/pool"
	"github.com/lumenhttp/mhttpd/internal/wire"
)

// Config configures one connection's behavior. Values come from the
// daemon's resolved option set (spec §6 configuration options).
type Config struct {
	PoolCapacity     int
	Limits           wire.Limits
	Timeout          time.Duration // 0 disables the idle timeout
	SuppressDate     bool
	ServerHeader     string // empty disables the Server header
	Handler          Handler
	NotifyCompleted  func(remoteAddr string, reason NotifyReason)
	Clock            clock.Clock // nil defaults to clock.System{}
	Sink             logsink.Sink
	MaxPipelineDrain int64 // bytes of unread request body drained before reuse

	// ShuttingDown, if set, is consulted whenever a request would otherwise
	// terminate with WithError: a true return reports DaemonShutdown instead,
	// distinguishing a connection severed by Stop from an ordinary failure
	// (spec §4.6 Shutdown, §8 notify-completed reason codes).
	ShuttingDown func() bool
}

func (c Config) log(kind, remoteAddr string, err error) {
	if c.Sink == nil {
		return
	}
	c.Sink(logsink.Event{Kind: kind, RemoteAddr: remoteAddr, Err: err})
}

func (c Config) clock() time.Time {
	if c.Clock != nil {
		return c.Clock.Now()
	}
	return time.Now()
}

func (c Config) shuttingDown() bool {
	return c.ShuttingDown != nil && c.ShuttingDown()
}

// Conn is one accepted connection's state machine instance.
type Conn struct {
	nc         net.Conn
	br         *bufio.Reader
	bw         *bufio.Writer
	cfg        Config
	state      State
	remoteAddr string
	lastActive time.Time
}

// NewConn wraps an accepted net.Conn. nc may be a plain TCP connection
// or a *tls.Conn post-handshake; both satisfy net.Conn identically from
// this point on (spec §4.5: "once handshake succeeds, the adapter
// behaves identically to plain-TCP for HTTP purposes").
func NewConn(nc net.Conn, cfg Config) *Conn {
	return &Conn{
		nc:         nc,
		br:         bufio.NewReader(nc),
		bw:         bufio.NewWriter(nc),
		cfg:        cfg,
		state:      Init,
		remoteAddr: nc.RemoteAddr().String(),
		lastActive: cfg.clock(),
	}
}

// State reports the connection's current position in the lifecycle.
func (c *Conn) State() State { return c.state }

// Serve runs the connection to completion: one request at a time, with
// keep-alive looping, until a hard error, timeout, client abort, or
// Connection: close ends it. It always closes nc before returning.
func (c *Conn) Serve() {
	defer c.nc.Close()
	for {
		reason, ok := c.serveOne()
		if !ok {
			c.state = Closed
			return
		}
		if reason != nil {
			c.state = Closed
			return
		}
	}
}

// serveOne processes exactly one request. ok is false once the
// connection must close; reason is non-nil when it closes for a reason
// other than a clean keep-alive loop continuation.
func (c *Conn) serveOne() (reason *NotifyReason, ok bool) {
	c.applyDeadline()

	p := pool.Create(c.cfg.PoolCapacity)
	defer p.Destroy()

	var req wire.Request
	req.ContentLength = -1
	c.state = UrlReceived

	lim := c.cfg.Limits
	err := wire.ParseHead(c.br, p, &req, lim)
	if err != nil {
		if req.Method == "" && isCleanEOF(err) {
			// No bytes of a new request arrived; an idle keep-alive
			// connection closing normally, not a failed request.
			return nil, false
		}
		if isTimeout(err) {
			if req.Method != "" {
				c.notify(TimeoutReached)
			}
			c.log("timeout", err)
			return notifyPtr(TimeoutReached), false
		}
		c.log("parse_error", err)
		c.failParse(err)
		reason := c.errorReason()
		c.notify(reason)
		return notifyPtr(reason), false
	}
	c.touch()
	c.state = HeadersProcessed
	req.RemoteAddr = c.remoteAddr

	wire.SetupBody(c.br, &req, lim)
	if req.Expect100 && req.ProtoMajor == 1 && req.ProtoMinor == 1 {
		req.Body = c.gateContinue(req.Body)
	}
	if err := c.populatePostFields(&req, lim); err != nil {
		c.failParse(err)
		reason := c.errorReason()
		c.notify(reason)
		return notifyPtr(reason), false
	}

	ex := &Exchange{Request: &req}
	c.state = BodyReceiving
	action := c.invokeHandler(ex)
	c.state = BodyReceived

	if action == Abort {
		c.notify(ClientAborted)
		return notifyPtr(ClientAborted), false
	}

	status, resp, queued := ex.Queued()
	if !queued {
		status = 500
		resp = syntheticError(500)
	}

	c.drainBody(&req)

	keepalive := c.decideKeepAlive(&req, resp)
	if err := c.writeResponse(&req, status, resp, keepalive); err != nil {
		resp.Release()
		reason := c.errorReason()
		c.notify(reason)
		return notifyPtr(reason), false
	}
	resp.Release()

	c.notify(CompletedOk)

	if !keepalive {
		return nil, false
	}
	c.state = Init
	return nil, true
}

// notify delivers reason for this request, if the host supplied a
// callback. It runs once per request, so a keep-alive connection that
// serves several requests produces one callback for each of them.
func (c *Conn) notify(reason NotifyReason) {
	if c.cfg.NotifyCompleted != nil {
		c.cfg.NotifyCompleted(c.remoteAddr, reason)
	}
}

// errorReason reports DaemonShutdown instead of WithError once the
// daemon has begun shutting down (spec §4.6 Shutdown, §8 reason codes).
func (c *Conn) errorReason() NotifyReason {
	if c.cfg.shuttingDown() {
		return DaemonShutdown
	}
	return WithError
}

func notifyPtr(r NotifyReason) *NotifyReason { return &r }

func isCleanEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// populatePostFields reads a application/x-www-form-urlencoded body in
// full and decodes it into PostField header-list entries, mirroring the
// query-argument decoding rules (supplemented feature: §4.2 names
// PostField as a header kind but never describes how it's produced).
// The body is still left readable afterward via a fresh bytes.Reader.
func (c *Conn) populatePostFields(req *wire.Request, lim wire.Limits) error {
	if req.BodyMode == wire.BodyNone || req.Body == nil {
		return nil
	}
	ct, ok := req.Header("Content-Type")
	if !ok || !strings.HasPrefix(strings.ToLower(strings.TrimSpace(ct)), "application/x-www-form-urlencoded") {
		return nil
	}
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return err
	}
	if err := wire.ParsePostFields(&req.Headers, string(data), lim.PlusAsSpace); err != nil {
		return err
	}
	req.Body = bytes.NewReader(data)
	return nil
}

func (c *Conn) log(kind string, err error) { c.cfg.log(kind, c.remoteAddr, err) }

func (c *Conn) touch() { c.lastActive = c.cfg.clock() }

func (c *Conn) applyDeadline() {
	if c.cfg.Timeout <= 0 {
		return
	}
	_ = c.nc.SetDeadline(c.cfg.clock().Add(c.cfg.Timeout))
}

// gateContinue wraps body so the "100 Continue" status line is emitted
// on first read, unless the handler already queued a non-2xx response
// before touching the body (spec §4.2 Expectations).
func (c *Conn) gateContinue(inner io.Reader) io.Reader {
	return &continueGate{inner: inner, conn: c}
}

type continueGate struct {
	inner io.Reader
	conn  *Conn
	ex    *Exchange
	sent  bool
}

func (g *continueGate) Read(p []byte) (int, error) {
	if !g.sent {
		g.sent = true
		suppress := false
		if g.ex != nil {
			// g.ex is nil when the body is read before the handler runs
			// (form-field decoding); no response can be queued yet then.
			status, _, queued := g.ex.Queued()
			suppress = queued && status/100 != 2
		}
		if !suppress {
			g.conn.state = ContinueSending
			io.WriteString(g.conn.bw, "HTTP/1.1 100 Continue\r\n\r\n")
			g.conn.bw.Flush()
			g.conn.state = ContinueSent
		}
	}
	return g.inner.Read(p)
}

func (c *Conn) invokeHandler(ex *Exchange) (action Action) {
	if gate, ok := ex.Request.Body.(*continueGate); ok {
		gate.ex = ex
	}
	defer func() {
		if rec := recover(); rec != nil {
			c.log("handler_panic", fmt.Errorf("%v", rec))
			if !ex.queued {
				ex.QueueResponse(500, syntheticError(500))
			}
			action = Continue
		}
	}()
	if c.cfg.Handler == nil {
		ex.QueueResponse(404, syntheticError(404))
		return Continue
	}
	return c.cfg.Handler.Serve(ex)
}

// drainBody discards any unread request body so a pipelined next
// request starts parsing at the right offset.
func (c *Conn) drainBody(req *wire.Request) {
	if req.Body == nil {
		return
	}
	limit := c.cfg.MaxPipelineDrain
	if limit <= 0 {
		limit = 1 << 20
	}
	io.CopyN(io.Discard, req.Body, limit)
}

func (c *Conn) decideKeepAlive(req *wire.Request, resp *wire.Response) bool {
	if req.Close {
		return false
	}
	_, known := resp.Size().IsKnown()
	if req.ProtoMajor == 1 && req.ProtoMinor == 0 && !known {
		// HTTP/1.0 has no chunked coding; an unknown-size body can only
		// be framed by closing the connection.
		return false
	}
	return true
}

func (c *Conn) writeResponse(req *wire.Request, status int, resp *wire.Response, keepalive bool) error {
	c.state = HeadersSending
	resp.Retain()
	resp.Freeze()

	var headers wire.List
	resp.IterateHeaders(func(name, value string) bool {
		headers.Add(name, value, wire.ResponseHeader)
		return true
	})

	if !c.cfg.SuppressDate && !headers.Has("Date", wire.ResponseHeader) {
		headers.Add("Date", c.cfg.clock().UTC().Format(http1123), wire.ResponseHeader)
	}
	if c.cfg.ServerHeader != "" && !headers.Has("Server", wire.ResponseHeader) {
		headers.Add("Server", c.cfg.ServerHeader, wire.ResponseHeader)
	}
	if !keepalive {
		headers.Set("Connection", "close", wire.ResponseHeader)
	}

	n, known := resp.Size().IsKnown()
	useChunked := !known && req.ProtoMajor == 1 && req.ProtoMinor == 1
	switch {
	case known:
		headers.Set("Content-Length", strconv.FormatInt(n, 10), wire.ResponseHeader)
	case useChunked:
		headers.Set("Transfer-Encoding", "chunked", wire.ResponseHeader)
	default:
		// Unknown size on HTTP/1.0: framing is connection-close.
		keepalive = false
		if !headers.Has("Connection", wire.ResponseHeader) {
			headers.Add("Connection", "close", wire.ResponseHeader)
		}
	}

	if err := wire.WriteStatusLine(c.bw, req.ProtoMajor, req.ProtoMinor, status); err != nil {
		return err
	}
	if err := wire.WriteHeaderBlock(c.bw, &headers); err != nil {
		return err
	}
	c.state = HeadersSent

	headOnly := req.Method == "HEAD"
	if err := c.writeBody(resp, useChunked, headOnly); err != nil {
		return err
	}
	c.state = BodySent
	return c.bw.Flush()
}

func (c *Conn) writeBody(resp *wire.Response, chunked, headOnly bool) error {
	if buf, isBuffer := resp.Buffer(); isBuffer {
		if headOnly {
			return nil
		}
		c.state = NormalBodyReady
		_, err := c.bw.Write(buf)
		return err
	}

	cb, _ := resp.Callback()
	if headOnly {
		return nil
	}
	block := cb.BlockSize
	if block <= 0 {
		block = 32 * 1024
	}
	buf := make([]byte, block)

	var cw *wire.ChunkedWriter
	if chunked {
		c.state = ChunkedBodyReady
		cw = wire.NewChunkedWriter(c.bw)
	} else {
		c.state = NormalBodyReady
	}

	var pos int64
	for {
		n, fr := cb.Fetch(pos, buf)
		if n > 0 {
			var err error
			if chunked {
				err = cw.WriteChunk(buf[:n])
			} else {
				_, err = c.bw.Write(buf[:n])
			}
			if err != nil {
				return err
			}
			pos += int64(n)
		}
		switch fr {
		case wire.FetchError:
			if chunked {
				return cw.Finish()
			}
			return nil
		case wire.FetchTryAgain:
			continue
		default:
			if n == 0 {
				if chunked {
					return cw.Finish()
				}
				return nil
			}
		}
	}
}

func (c *Conn) failParse(err error) {
	status := wire.StatusFor(err)
	if status == 0 {
		status = 500
	}
	resp := syntheticError(status)
	resp.Freeze()
	var headers wire.List
	resp.IterateHeaders(func(name, value string) bool {
		headers.Add(name, value, wire.ResponseHeader)
		return true
	})
	headers.Set("Connection", "close", wire.ResponseHeader)
	n, _ := resp.Size().IsKnown()
	headers.Set("Content-Length", strconv.FormatInt(n, 10), wire.ResponseHeader)
	if !c.cfg.SuppressDate {
		headers.Add("Date", c.cfg.clock().UTC().Format(http1123), wire.ResponseHeader)
	}
	wire.WriteStatusLine(c.bw, 1, 1, status)
	wire.WriteHeaderBlock(c.bw, &headers)
	if buf, _ := resp.Buffer(); len(buf) > 0 {
		c.bw.Write(buf)
	}
	c.bw.Flush()
	resp.Release()
}

func syntheticError(status int) *wire.Response {
	body := []byte(strconv.Itoa(status) + " " + wire.ReasonPhrase(status))
	return wire.FromBuffer(body, wire.MakeInternalCopy)
}

const http1123 = "Mon, 02 Jan 2006 15:04:05 GMT"
