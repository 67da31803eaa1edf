package wire

import (
	"bufio"
	"io"
	"strings"
	"testing"

	"github.com/lumenhttp/mhttpd/internal/pool"
)

func parseOne(t *testing.T, raw string) (*Request, *pool.Pool) {
	t.Helper()
	p := pool.Create(64 * 1024)
	br := bufio.NewReader(strings.NewReader(raw))
	req := &Request{ContentLength: -1}
	if err := ParseHead(br, p, req, DefaultLimits()); err != nil {
		t.Fatalf("ParseHead: %v", err)
	}
	SetupBody(br, req, DefaultLimits())
	return req, p
}

func TestParseTinyGet(t *testing.T) {
	req, p := parseOne(t, "GET /hello HTTP/1.1\r\nHost: x\r\n\r\n")
	defer p.Destroy()

	if req.Method != "GET" || req.Path != "/hello" {
		t.Fatalf("method/path = %q/%q", req.Method, req.Path)
	}
	if req.ProtoMajor != 1 || req.ProtoMinor != 1 {
		t.Fatalf("proto = %d.%d", req.ProtoMajor, req.ProtoMinor)
	}
	host, ok := req.Header("Host")
	if !ok || host != "x" {
		t.Fatalf("Host = %q, %v", host, ok)
	}
}

func TestParseQueryArguments(t *testing.T) {
	req, p := parseOne(t, "GET /search?q=a+b&name=%4A HTTP/1.1\r\nHost: x\r\n\r\n")
	defer p.Destroy()

	q, ok := req.Headers.Get("q", QueryArgument)
	if !ok || q != "a b" {
		t.Fatalf("q = %q, %v, want %q", q, ok, "a b")
	}
	name, ok := req.Headers.Get("name", QueryArgument)
	if !ok || name != "J" {
		t.Fatalf("name = %q, %v, want %q", name, ok, "J")
	}
}

func TestParseCookieHeaderReparsed(t *testing.T) {
	req, p := parseOne(t, "GET / HTTP/1.1\r\nHost: x\r\nCookie: a=1; b=2\r\n\r\n")
	defer p.Destroy()

	if !req.HasHeader("Cookie") {
		t.Fatal("Cookie request header missing")
	}
	a, ok := req.Headers.Get("a", Cookie)
	if !ok || a != "1" {
		t.Fatalf("cookie a = %q, %v", a, ok)
	}
	b, ok := req.Headers.Get("b", Cookie)
	if !ok || b != "2" {
		t.Fatalf("cookie b = %q, %v", b, ok)
	}
}

func TestParseDuplicateContentLengthDiffers(t *testing.T) {
	p := pool.Create(64 * 1024)
	defer p.Destroy()
	br := bufio.NewReader(strings.NewReader(
		"POST / HTTP/1.1\r\nHost: x\r\nContent-Length: 4\r\nContent-Length: 5\r\n\r\n1234"))
	req := &Request{ContentLength: -1}
	err := ParseHead(br, p, req, DefaultLimits())
	if err != ErrDuplicateContentLength {
		t.Fatalf("err = %v, want ErrDuplicateContentLength", err)
	}
}

func TestParseDuplicateContentLengthSameValueOK(t *testing.T) {
	p := pool.Create(64 * 1024)
	defer p.Destroy()
	br := bufio.NewReader(strings.NewReader(
		"POST / HTTP/1.1\r\nHost: x\r\nContent-Length: 4\r\nContent-Length: 4\r\n\r\n1234"))
	req := &Request{ContentLength: -1}
	if err := ParseHead(br, p, req, DefaultLimits()); err != nil {
		t.Fatalf("ParseHead: %v", err)
	}
	if req.ContentLength != 4 {
		t.Fatalf("ContentLength = %d, want 4", req.ContentLength)
	}
}

func TestParseUnsupportedVersion(t *testing.T) {
	p := pool.Create(64 * 1024)
	defer p.Destroy()
	br := bufio.NewReader(strings.NewReader("GET / HTTP/2.0\r\nHost: x\r\n\r\n"))
	req := &Request{ContentLength: -1}
	if err := ParseHead(br, p, req, DefaultLimits()); err != ErrUnsupportedVersion {
		t.Fatalf("err = %v, want ErrUnsupportedVersion", err)
	}
}

func TestParseExpect100Continue(t *testing.T) {
	req, p := parseOne(t, "POST /upload HTTP/1.1\r\nHost: x\r\nContent-Length: 4\r\nExpect: 100-continue\r\n\r\nabcd")
	defer p.Destroy()
	if !req.Expect100 {
		t.Fatal("Expect100 = false, want true")
	}
	body, err := io.ReadAll(req.Body)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(body) != "abcd" {
		t.Fatalf("body = %q", body)
	}
}

func TestParseHTTP10DefaultsToClose(t *testing.T) {
	req, p := parseOne(t, "GET / HTTP/1.0\r\nHost: x\r\n\r\n")
	defer p.Destroy()
	if !req.Close {
		t.Fatal("Close = false, want true for bare HTTP/1.0")
	}
}

func TestParseHTTP10KeepAlive(t *testing.T) {
	req, p := parseOne(t, "GET / HTTP/1.0\r\nHost: x\r\nConnection: keep-alive\r\n\r\n")
	defer p.Destroy()
	if req.Close {
		t.Fatal("Close = true, want false when Connection: keep-alive given")
	}
}

func TestParseNulInHeaderRejected(t *testing.T) {
	p := pool.Create(64 * 1024)
	defer p.Destroy()
	br := bufio.NewReader(strings.NewReader("GET / HTTP/1.1\r\nHost: x\x00y\r\n\r\n"))
	req := &Request{ContentLength: -1}
	if err := ParseHead(br, p, req, DefaultLimits()); err != ErrNulInHeader {
		t.Fatalf("err = %v, want ErrNulInHeader", err)
	}
}

func TestParseWhitespaceBeforeColonRejected(t *testing.T) {
	p := pool.Create(64 * 1024)
	defer p.Destroy()
	br := bufio.NewReader(strings.NewReader("GET / HTTP/1.1\r\nHost : x\r\n\r\n"))
	req := &Request{ContentLength: -1}
	if err := ParseHead(br, p, req, DefaultLimits()); err != ErrBadRequest {
		t.Fatalf("err = %v, want ErrBadRequest", err)
	}
}

func TestParseRequestLineTooLongIsURITooLong(t *testing.T) {
	p := pool.Create(64 * 1024)
	defer p.Destroy()
	longPath := "/" + strings.Repeat("a", 9000)
	br := bufio.NewReader(strings.NewReader("GET " + longPath + " HTTP/1.1\r\nHost: x\r\n\r\n"))
	req := &Request{ContentLength: -1}
	lim := DefaultLimits()
	err := ParseHead(br, p, req, lim)
	if err != ErrUriTooLong {
		t.Fatalf("err = %v, want ErrUriTooLong", err)
	}
}

func TestParseHeaderTooLongIsEntityTooLarge(t *testing.T) {
	p := pool.Create(64 * 1024)
	defer p.Destroy()
	bigHeader := "X-Big: " + strings.Repeat("a", 9000)
	br := bufio.NewReader(strings.NewReader("GET / HTTP/1.1\r\nHost: x\r\n" + bigHeader + "\r\n\r\n"))
	req := &Request{ContentLength: -1}
	err := ParseHead(br, p, req, DefaultLimits())
	if err != ErrEntityTooLarge {
		t.Fatalf("err = %v, want ErrEntityTooLarge", err)
	}
}
