// Package wire's parser.go implements the incremental HTTP/1.0 and
// HTTP/1.1 request-line/header/body parsing described in spec §4.2. It
// operates against a connection-owned bufio.Reader and copies retained
// tokens into the connection's Pool so their lifetime matches the
// request's, per the data model in spec §3.
package wire

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/lumenhttp/mhttpd/internal/pool"
)

// Limits bounds the parser the way the configured per-connection pool
// capacity and option set do.
type Limits struct {
	MaxRequestLineSize int
	MaxHeaderLineSize  int
	MaxHeaders         int
	MaxChunkSize       uint64
	MaxBodySize        uint64
	PlusAsSpace        bool // default true, spec §4.2 "plus-as-space" option
}

// DefaultLimits mirrors the conservative defaults the teacher's parser
// shipped with.
func DefaultLimits() Limits {
	return Limits{
		MaxRequestLineSize: 8192,
		MaxHeaderLineSize:  8192,
		MaxHeaders:         128,
		MaxChunkSize:       16 * 1024 * 1024,
		MaxBodySize:        0,
		PlusAsSpace:        true,
	}
}

// ParseHead reads the request line and header block (up through the
// blank line) and populates req. It does not consume the body; callers
// must call SetupBody afterward to attach the right body reader.
//
// A lone LF is accepted as a line terminator on input (spec §4.2
// leniency, §9 design note), but nothing this parser emits ever uses
// anything but CRLF.
func ParseHead(br *bufio.Reader, p *pool.Pool, req *Request, lim Limits) error {
	if err := parseRequestLine(br, p, req, lim); err != nil {
		return err
	}
	if err := parseHeaders(br, p, req, lim); err != nil {
		return err
	}
	return nil
}

// readLine reads one CRLF- or LF-terminated line and copies it into pool
// memory, so the string returned stays valid for the request's lifetime
// the same way the pool-owned read buffer does in the data model (§3).
func readLine(br *bufio.Reader, p *pool.Pool, maxLen int) (string, error) {
	var buf []byte
	for {
		chunk, err := br.ReadSlice('\n')
		buf = append(buf, chunk...)
		if len(buf) > maxLen {
			return "", ErrEntityTooLarge
		}
		if err == nil {
			break
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		return "", err
	}
	line := buf
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
		if n := len(line); n > 0 && line[n-1] == '\r' {
			line = line[:n-1]
		}
	}
	if len(line) == 0 {
		return "", nil
	}
	owned, err := p.Alloc(len(line))
	if err != nil {
		return "", ErrOutOfPool
	}
	copy(owned, line)
	return string(owned), nil
}

func parseRequestLine(br *bufio.Reader, p *pool.Pool, req *Request, lim Limits) error {
	line, err := readLine(br, p, lim.MaxRequestLineSize)
	if err != nil {
		if err == ErrEntityTooLarge {
			return ErrUriTooLong
		}
		return err
	}
	if line == "" {
		// Tolerate a leading blank line some clients send before a
		// pipelined request; try once more for the real request line.
		line, err = readLine(br, p, lim.MaxRequestLineSize)
		if err != nil {
			if err == ErrEntityTooLarge {
				return ErrUriTooLong
			}
			return err
		}
	}

	sp1 := strings.IndexByte(line, ' ')
	if sp1 < 0 {
		return ErrBadRequest
	}
	rest := line[sp1+1:]
	sp2 := strings.IndexByte(rest, ' ')
	if sp2 < 0 {
		return ErrBadRequest
	}
	method := line[:sp1]
	target := rest[:sp2]
	proto := rest[sp2+1:]

	if !IsUppercaseASCII(method) {
		return ErrBadRequest
	}
	if len(target) == 0 || (target[0] != '/' && target != "*") {
		return ErrBadRequest
	}
	if len(target) > lim.MaxRequestLineSize {
		return ErrUriTooLong
	}

	major, minor, ok := parseProto(proto)
	if !ok {
		return ErrUnsupportedVersion
	}

	req.Method = method
	req.Target = target
	req.ProtoMajor = major
	req.ProtoMinor = minor

	path, rawQuery, _ := strings.Cut(target, "?")
	req.Path = path
	req.RawQuery = rawQuery
	if rawQuery != "" {
		if err := parseQueryArguments(&req.Headers, rawQuery, lim.PlusAsSpace); err != nil {
			return err
		}
	}
	return nil
}

func parseProto(s string) (major, minor int, ok bool) {
	switch s {
	case "HTTP/1.1":
		return 1, 1, true
	case "HTTP/1.0":
		return 1, 0, true
	default:
		return 0, 0, false
	}
}

func parseHeaders(br *bufio.Reader, p *pool.Pool, req *Request, lim Limits) error {
	var (
		hasContentLength bool
		contentLength    int64
		hasChunked       bool
		count            int
	)
	req.ContentLength = -1

	for {
		line, err := readLine(br, p, lim.MaxHeaderLineSize)
		if err != nil {
			if err == ErrEntityTooLarge {
				return ErrEntityTooLarge
			}
			return err
		}
		if line == "" {
			break // blank line: end of header block
		}

		// RFC 2616 header folding: a continuation line begins with SP/HT.
		for len(line) > 0 && peekContinuation(br) {
			cont, err := readLine(br, p, lim.MaxHeaderLineSize)
			if err != nil {
				return err
			}
			line = line + " " + strings.TrimLeft(cont, " \t")
		}

		count++
		if count > lim.MaxHeaders {
			return ErrEntityTooLarge
		}

		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			return ErrBadRequest
		}
		name := line[:colon]
		// Whitespace before the colon is a request-smuggling vector
		// (RFC 7230 §3.2.4); reject rather than silently trim.
		if len(name) > 0 && (name[len(name)-1] == ' ' || name[len(name)-1] == '\t') {
			return ErrBadRequest
		}
		value := strings.Trim(line[colon+1:], " \t")

		if strings.IndexByte(name, 0) >= 0 || strings.IndexByte(value, 0) >= 0 {
			return ErrNulInHeader
		}
		if strings.IndexByte(name, ' ') >= 0 || strings.IndexByte(name, '\t') >= 0 {
			return ErrBadRequest
		}

		req.Headers.Add(name, value, RequestHeader)

		switch {
		case strings.EqualFold(name, "Content-Length"):
			n, perr := strconv.ParseInt(value, 10, 64)
			if perr != nil || n < 0 {
				return ErrBadRequest
			}
			if hasContentLength && contentLength != n {
				return ErrDuplicateContentLength
			}
			hasContentLength = true
			contentLength = n
		case strings.EqualFold(name, "Transfer-Encoding"):
			if strings.Contains(strings.ToLower(value), "chunked") {
				hasChunked = true
			}
		case strings.EqualFold(name, "Connection"):
			if containsToken(value, "close") {
				req.Close = true
			}
		case strings.EqualFold(name, "Expect"):
			if strings.EqualFold(strings.TrimSpace(value), "100-continue") {
				req.Expect100 = true
			}
		case strings.EqualFold(name, "Cookie"):
			parseCookieHeader(&req.Headers, value)
		}
	}

	switch {
	case hasChunked:
		req.BodyMode = BodyChunked
		req.ContentLength = -1
	case hasContentLength:
		req.BodyMode = BodyContentLength
		req.ContentLength = contentLength
	case MethodCanDefaultToNoBody(req.Method):
		req.BodyMode = BodyNone
	case req.ProtoMajor == 1 && req.ProtoMinor == 0:
		req.BodyMode = BodyUntilClose
	default:
		req.BodyMode = BodyNone
	}

	if req.ProtoMajor == 1 && req.ProtoMinor == 0 && !containsConnectionToken(req, "keep-alive") {
		req.Close = true
	}
	return nil
}

func containsConnectionToken(req *Request, token string) bool {
	v, ok := req.Header("Connection")
	if !ok {
		return false
	}
	return containsToken(v, token)
}

func containsToken(value, token string) bool {
	for _, part := range strings.Split(value, ",") {
		if strings.EqualFold(strings.TrimSpace(part), token) {
			return true
		}
	}
	return false
}

func peekContinuation(br *bufio.Reader) bool {
	b, err := br.Peek(1)
	if err != nil {
		return false
	}
	return b[0] == ' ' || b[0] == '\t'
}

// SetupBody attaches the right io.Reader to req.Body for the body mode
// parseHeaders decided on.
func SetupBody(br *bufio.Reader, req *Request, lim Limits) {
	switch req.BodyMode {
	case BodyContentLength:
		if req.ContentLength > 0 {
			req.Body = io.LimitReader(br, req.ContentLength)
		} else {
			req.Body = bytes.NewReader(nil)
		}
	case BodyChunked:
		req.Body = newChunkedReader(br, lim.MaxChunkSize, lim.MaxBodySize)
	case BodyUntilClose:
		req.Body = br
	default:
		req.Body = bytes.NewReader(nil)
	}
}
