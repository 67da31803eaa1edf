package daemon

import (
	"bufio"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/lumenhttp/mhttpd/internal/connio"
	"github.com/lumenhttp/mhttpd/internal/transport"
	"github.com/lumenhttp/mhttpd/internal/wire"
)

func echoHandler() connio.Handler {
	return connio.HandlerFunc(func(ex *connio.Exchange) connio.Action {
		resp := wire.FromBuffer([]byte("ok"), wire.PersistentBorrow)
		ex.QueueResponse(200, resp)
		return connio.Continue
	})
}

func newTestDaemon(t *testing.T, mode Mode) (*Daemon, string) {
	t.Helper()
	l, err := transport.Listen("127.0.0.1:0", transport.DefaultConfig())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	d := New(l, Config{
		Mode: mode,
		ConnIO: connio.Config{
			PoolCapacity: 4096,
			Limits:       wire.DefaultLimits(),
			Timeout:      2 * time.Second,
			Handler:      echoHandler(),
		},
		ShutdownGracePeriod: time.Second,
	})
	d.Start()
	return d, l.Addr().String()
}

func getOK(t *testing.T, addr string) {
	t.Helper()
	c, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()
	fmt.Fprint(c, "GET / HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n")
	br := bufio.NewReader(c)
	line, err := br.ReadString('\n')
	if err != nil {
		t.Fatalf("read status line: %v", err)
	}
	if line != "HTTP/1.1 200 OK\r\n" {
		t.Fatalf("status line = %q", line)
	}
}

func TestThreadPerConnectionServesRequest(t *testing.T) {
	d, addr := newTestDaemon(t, ThreadPerConnection)
	defer d.Stop()
	getOK(t, addr)
}

func TestSharedInternalLoopServesRequest(t *testing.T) {
	d, addr := newTestDaemon(t, SharedInternalLoop)
	defer d.Stop()
	getOK(t, addr)
}

func TestWorkerPoolServesManyConnections(t *testing.T) {
	d, addr := newTestDaemon(t, WorkerPool)
	defer d.Stop()

	done := make(chan struct{}, 20)
	for i := 0; i < 20; i++ {
		go func() {
			getOK(t, addr)
			done <- struct{}{}
		}()
	}
	for i := 0; i < 20; i++ {
		select {
		case <-done:
		case <-time.After(3 * time.Second):
			t.Fatal("timed out waiting for worker pool connections")
		}
	}
}

func TestStopReportsDaemonShutdownForInFlightRequest(t *testing.T) {
	l, err := transport.Listen("127.0.0.1:0", transport.DefaultConfig())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	started := make(chan struct{})
	release := make(chan struct{})
	reasonCh := make(chan connio.NotifyReason, 1)

	d := New(l, Config{
		Mode: ThreadPerConnection,
		ConnIO: connio.Config{
			PoolCapacity: 4096,
			Limits:       wire.DefaultLimits(),
			Handler: connio.HandlerFunc(func(ex *connio.Exchange) connio.Action {
				close(started)
				<-release
				ex.QueueResponse(200, wire.FromBuffer([]byte("ok"), wire.PersistentBorrow))
				return connio.Continue
			}),
			NotifyCompleted: func(remoteAddr string, reason connio.NotifyReason) {
				reasonCh <- reason
			},
		},
		ShutdownGracePeriod: 30 * time.Millisecond,
	})
	d.Start()

	c, err := net.DialTimeout("tcp", l.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()
	fmt.Fprint(c, "GET / HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n")
	<-started

	stopDone := make(chan struct{})
	go func() {
		d.Stop()
		close(stopDone)
	}()

	// Let the grace period elapse and force-close the in-flight
	// connection before the handler tries to write its response.
	time.Sleep(100 * time.Millisecond)
	close(release)

	select {
	case reason := <-reasonCh:
		if reason != connio.DaemonShutdown {
			t.Fatalf("reason = %v, want DaemonShutdown", reason)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("NotifyCompleted never fired")
	}
	<-stopDone
}

func TestPerIPConnectionLimitDenies(t *testing.T) {
	l, err := transport.Listen("127.0.0.1:0", transport.DefaultConfig())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	d := New(l, Config{
		Mode: ThreadPerConnection,
		ConnIO: connio.Config{
			PoolCapacity: 4096,
			Limits:       wire.DefaultLimits(),
			Timeout:      2 * time.Second,
			Handler:      echoHandler(),
		},
		PerIPConnectionLimit: 1,
	})
	d.Start()
	defer d.Stop()

	blocker, err := net.DialTimeout("tcp", l.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer blocker.Close()
	time.Sleep(50 * time.Millisecond)

	second, err := net.DialTimeout("tcp", l.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer second.Close()

	second.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 1)
	_, readErr := second.Read(buf)
	if readErr == nil {
		t.Fatalf("expected the second connection to be denied/closed, got a byte")
	}
}
