package connio

import (
	"bufio"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/lumenhttp/mhttpd/internal/wire"
)

func pipeConn(t *testing.T, cfg Config) (client net.Conn, done chan struct{}) {
	t.Helper()
	server, client := net.Pipe()
	c := NewConn(server, cfg)
	done = make(chan struct{})
	go func() {
		c.Serve()
		close(done)
	}()
	return client, done
}

func TestTinyGetRoundTrip(t *testing.T) {
	cfg := Config{
		PoolCapacity: 8192,
		Limits:       wire.DefaultLimits(),
		Handler: HandlerFunc(func(ex *Exchange) Action {
			ex.QueueResponse(200, wire.FromBuffer([]byte(ex.Request.Path), wire.MakeInternalCopy))
			return Continue
		}),
	}
	client, done := pipeConn(t, cfg)

	go func() {
		io := "GET /hello HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"
		client.Write([]byte(io))
	}()

	resp, _ := bufio.NewReader(client).ReadString('\n')
	if !strings.HasPrefix(resp, "HTTP/1.1 200") {
		t.Fatalf("status line = %q", resp)
	}
	client.Close()
	<-done
}

func TestHeadHasNoBody(t *testing.T) {
	cfg := Config{
		PoolCapacity: 8192,
		Limits:       wire.DefaultLimits(),
		Handler: HandlerFunc(func(ex *Exchange) Action {
			ex.QueueResponse(200, wire.FromBuffer([]byte("/hello"), wire.MakeInternalCopy))
			return Continue
		}),
	}
	client, done := pipeConn(t, cfg)
	go client.Write([]byte("HEAD /hello HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))

	br := bufio.NewReader(client)
	var lines []string
	for {
		line, err := br.ReadString('\n')
		lines = append(lines, line)
		if line == "\r\n" || err != nil {
			break
		}
	}
	found := false
	for _, l := range lines {
		if strings.HasPrefix(l, "Content-Length: 6") {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing Content-Length: 6 in %v", lines)
	}
	if rest, _ := io.ReadAll(br); len(rest) != 0 {
		t.Fatalf("HEAD response carried a body: %q", rest)
	}
	client.Close()
	<-done
}

func TestUnqueuedHandlerSynthesizes500(t *testing.T) {
	cfg := Config{
		PoolCapacity: 8192,
		Limits:       wire.DefaultLimits(),
		Handler: HandlerFunc(func(ex *Exchange) Action {
			return Continue // never queues a response
		}),
	}
	client, done := pipeConn(t, cfg)
	go client.Write([]byte("GET /x HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))

	resp, _ := bufio.NewReader(client).ReadString('\n')
	if !strings.HasPrefix(resp, "HTTP/1.1 500") {
		t.Fatalf("status line = %q, want 500", resp)
	}
	client.Close()
	<-done
}

func TestKeepAlivePipelinesTwoRequests(t *testing.T) {
	var served []string
	cfg := Config{
		PoolCapacity: 8192,
		Limits:       wire.DefaultLimits(),
		Handler: HandlerFunc(func(ex *Exchange) Action {
			served = append(served, ex.Request.Path)
			ex.QueueResponse(200, wire.FromBuffer([]byte(ex.Request.Path), wire.MakeInternalCopy))
			return Continue
		}),
	}
	client, done := pipeConn(t, cfg)
	go func() {
		client.Write([]byte("GET /a HTTP/1.1\r\nHost: x\r\n\r\n"))
		client.Write([]byte("GET /b HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))
	}()

	br := bufio.NewReader(client)
	count := 0
	for {
		line, err := br.ReadString('\n')
		if strings.HasPrefix(line, "HTTP/1.1") {
			count++
		}
		if err != nil {
			break
		}
	}
	if count != 2 {
		t.Fatalf("got %d status lines, want 2", count)
	}
	client.Close()
	<-done
	if len(served) != 2 || served[0] != "/a" || served[1] != "/b" {
		t.Fatalf("served = %v", served)
	}
}

func TestNotifyCompletedFiresOncePerRequest(t *testing.T) {
	var reasons []NotifyReason
	cfg := Config{
		PoolCapacity: 8192,
		Limits:       wire.DefaultLimits(),
		Handler: HandlerFunc(func(ex *Exchange) Action {
			ex.QueueResponse(200, wire.FromBuffer([]byte("ok"), wire.MakeInternalCopy))
			return Continue
		}),
		NotifyCompleted: func(remoteAddr string, reason NotifyReason) {
			reasons = append(reasons, reason)
		},
	}
	client, done := pipeConn(t, cfg)
	go func() {
		client.Write([]byte("GET /a HTTP/1.1\r\nHost: x\r\n\r\n"))
		client.Write([]byte("GET /b HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))
	}()
	go io.Copy(io.Discard, client)
	<-done
	client.Close()
	if len(reasons) != 2 {
		t.Fatalf("notify count = %d, want 2", len(reasons))
	}
}

func TestNotifyCompletedFiresClientAbortedOnAbort(t *testing.T) {
	var reasons []NotifyReason
	cfg := Config{
		PoolCapacity: 8192,
		Limits:       wire.DefaultLimits(),
		Handler: HandlerFunc(func(ex *Exchange) Action {
			return Abort
		}),
		NotifyCompleted: func(remoteAddr string, reason NotifyReason) {
			reasons = append(reasons, reason)
		},
	}
	client, done := pipeConn(t, cfg)
	go client.Write([]byte("GET /a HTTP/1.1\r\nHost: x\r\n\r\n"))
	go io.Copy(io.Discard, client)
	<-done
	client.Close()
	if len(reasons) != 1 || reasons[0] != ClientAborted {
		t.Fatalf("reasons = %v, want [ClientAborted]", reasons)
	}
}

func TestNotifyCompletedFiresWithErrorOnParseFailure(t *testing.T) {
	var reasons []NotifyReason
	cfg := Config{
		PoolCapacity: 8192,
		Limits:       wire.DefaultLimits(),
		Handler: HandlerFunc(func(ex *Exchange) Action {
			ex.QueueResponse(200, wire.FromBuffer([]byte("ok"), wire.MakeInternalCopy))
			return Continue
		}),
		NotifyCompleted: func(remoteAddr string, reason NotifyReason) {
			reasons = append(reasons, reason)
		},
	}
	client, done := pipeConn(t, cfg)
	go client.Write([]byte("BADMETHODTHATISWAYTOOLONG " + strings.Repeat("x", 9000) + " HTTP/1.1\r\n\r\n"))
	go io.Copy(io.Discard, client)
	<-done
	client.Close()
	if len(reasons) != 1 || reasons[0] != WithError {
		t.Fatalf("reasons = %v, want [WithError]", reasons)
	}
}

func TestNotifyCompletedFiresDaemonShutdownWhenShuttingDown(t *testing.T) {
	var reasons []NotifyReason
	cfg := Config{
		PoolCapacity: 8192,
		Limits:       wire.DefaultLimits(),
		Handler: HandlerFunc(func(ex *Exchange) Action {
			ex.QueueResponse(200, wire.FromBuffer([]byte("ok"), wire.MakeInternalCopy))
			return Continue
		}),
		NotifyCompleted: func(remoteAddr string, reason NotifyReason) {
			reasons = append(reasons, reason)
		},
		ShuttingDown: func() bool { return true },
	}
	client, done := pipeConn(t, cfg)
	go client.Write([]byte("BADMETHODTHATISWAYTOOLONG " + strings.Repeat("x", 9000) + " HTTP/1.1\r\n\r\n"))
	go io.Copy(io.Discard, client)
	<-done
	client.Close()
	if len(reasons) != 1 || reasons[0] != DaemonShutdown {
		t.Fatalf("reasons = %v, want [DaemonShutdown]", reasons)
	}
}

func TestIdleTimeoutClosesConnection(t *testing.T) {
	cfg := Config{
		PoolCapacity: 8192,
		Limits:       wire.DefaultLimits(),
		Timeout:      20 * time.Millisecond,
		Handler: HandlerFunc(func(ex *Exchange) Action {
			ex.QueueResponse(200, wire.FromBuffer(nil, wire.MakeInternalCopy))
			return Continue
		}),
	}
	_, done := pipeConn(t, cfg)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("connection did not close on idle timeout")
	}
}
