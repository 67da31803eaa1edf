// Package daemon implements the accept loop and the four connection
// execution modes described in spec §4.6, adapted from the teacher's
// BaseServer/ShockwaveServer accept-and-dispatch shape
// (pkg/shockwave/server/server.go, server_shockwave.go) and generalized
// from "always goroutine-per-connection" into all four modes §4.6 and
// §3's mode discriminator name.
package daemon

import (
	"errors"
	"hash/fnv"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lumenhttp/mhttpd/internal/connio"
	"github.com/lumenhttp/mhttpd/internal/logsink"
	"github.com/lumenhttp/mhttpd/internal/transport"
)

// Mode selects one of the four interchangeable execution models (spec
// §4.6, §3 mode discriminator).
type Mode int

const (
	// ExternalReadiness: the host drives GetFdSets/RunOnce itself.
	ExternalReadiness Mode = iota
	// SharedInternalLoop: one internal goroutine serially serves queued
	// connections; a slow handler stalls the rest. A connection accepted
	// while the 64-entry queue is full gets its own goroutine instead.
	SharedInternalLoop
	// ThreadPerConnection: one goroutine per accepted connection.
	ThreadPerConnection
	// WorkerPool: N shared-internal-loop workers, connections hashed to
	// one by RemoteAddr at accept time (spec §4.6 "straightforward
	// replication of mode 2").
	WorkerPool
)

// Go's net.Conn reads/writes are already integrated with the runtime's
// netpoller: a goroutine blocked in Read/Write never ties up an OS
// thread. SharedInternalLoop and WorkerPool are therefore implemented
// as a bounded pool of goroutines (1 for SharedInternalLoop, N for
// WorkerPool) each serially draining its own connection queue with
// ordinary blocking calls, rather than a hand-rolled epoll_wait loop —
// the scheduling property §4.6 describes (few logical workers, many
// connections, a blocking handler stalls its worker's share) falls out
// of that directly. ExternalReadiness is the one mode that wires
// golang.org/x/sys/unix epoll for real, at the granularity the host
// actually needs control over: the listening socket's readiness.

// ErrWrongMode is returned by GetFdSets/RunOnce outside ExternalReadiness.
var ErrWrongMode = errors.New("daemon: wrong mode")

// AcceptPolicy is consulted with the peer address at accept time; a
// false return closes the fd immediately (spec §4.6 accept loop).
type AcceptPolicy func(remoteAddr net.Addr) bool

// Config configures one daemon instance.
type Config struct {
	Mode                 Mode
	ConnIO               connio.Config
	AcceptPolicy         AcceptPolicy
	ConnectionLimit      int // 0 = unlimited
	PerIPConnectionLimit int // 0 = unlimited
	WorkerCount          int // WorkerPool only; defaults to 4
	ShutdownGracePeriod  time.Duration
}

// Stats mirrors the counters the teacher's BaseServer tracks (spec §6
// is silent on metrics, but a complete ambient stack keeps them).
type Stats struct {
	TotalConnections   atomic.Uint64
	ActiveConnections  atomic.Int64
	ConnectionErrors   atomic.Uint64
	ConnectionsDenied  atomic.Uint64
	RequestErrors      atomic.Uint64
}

// Daemon owns the listener and every live connection (spec §3 C6 data
// model).
type Daemon struct {
	listener net.Listener
	cfg      Config
	stats    Stats

	shutdown atomic.Bool
	wg       sync.WaitGroup
	doneCh   chan struct{}

	connSem chan struct{}

	perIPMu sync.Mutex
	perIP   map[string]int

	connsMu sync.Mutex
	conns   map[net.Conn]struct{}

	workers []chan net.Conn

	listenerOnce sync.Once
}

// New wraps an already-bound listener (plain TCP from transport.Listen,
// or TLS from transport.ListenTLS) with the daemon's accept/dispatch
// logic.
func New(listener net.Listener, cfg Config) *Daemon {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	d := &Daemon{
		listener: listener,
		cfg:      cfg,
		doneCh:   make(chan struct{}),
		perIP:    make(map[string]int),
		conns:    make(map[net.Conn]struct{}),
	}
	if cfg.ConnectionLimit > 0 {
		d.connSem = make(chan struct{}, cfg.ConnectionLimit)
	}
	return d
}

// Start launches the accept loop (and, for SharedInternalLoop/WorkerPool,
// the worker goroutines) and returns immediately.
func (d *Daemon) Start() {
	n := 1
	if d.cfg.Mode == WorkerPool {
		n = d.cfg.WorkerCount
	}
	if d.cfg.Mode == SharedInternalLoop || d.cfg.Mode == WorkerPool {
		d.workers = make([]chan net.Conn, n)
		for i := range d.workers {
			d.workers[i] = make(chan net.Conn, 64)
			d.wg.Add(1)
			go d.runWorker(d.workers[i])
		}
	}
	if d.cfg.Mode != ExternalReadiness {
		go d.acceptLoop()
	}
}

// Stop signals shutdown, closes the listener, and waits up to
// ShutdownGracePeriod for in-flight connections to drain (spec §4.6
// Shutdown).
func (d *Daemon) Stop() {
	d.shutdown.Store(true)
	d.listener.Close()
	for _, w := range d.workers {
		close(w)
	}

	done := make(chan struct{})
	go func() { d.wg.Wait(); close(done) }()

	if d.cfg.ShutdownGracePeriod > 0 {
		select {
		case <-done:
		case <-time.After(d.cfg.ShutdownGracePeriod):
			d.closeAllConnections()
			<-done
		}
	} else {
		<-done
	}
	close(d.doneCh)
}

// closeAllConnections force-closes every still-tracked connection once the
// shutdown grace period has elapsed (grounded on BaseServer.closeAllConnections).
func (d *Daemon) closeAllConnections() {
	d.connsMu.Lock()
	conns := make([]net.Conn, 0, len(d.conns))
	for c := range d.conns {
		conns = append(conns, c)
	}
	d.connsMu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}

// Stats returns the daemon's live counters.
func (d *Daemon) Stats() *Stats { return &d.stats }

func (d *Daemon) acceptLoop() {
	for {
		conn, err := d.listener.Accept()
		if err != nil {
			if d.shutdown.Load() {
				return
			}
			d.stats.ConnectionErrors.Add(1)
			d.log("accept_error", "", err)
			continue
		}
		d.log("accept", conn.RemoteAddr().String(), nil)
		d.handleAccepted(conn)
	}
}

func (d *Daemon) log(kind, remoteAddr string, err error) {
	sink := d.cfg.ConnIO.Sink
	if sink == nil {
		return
	}
	sink(logsink.Event{Kind: kind, RemoteAddr: remoteAddr, Err: err})
}

// handleAccepted runs the accept-policy/limit checks (spec §4.6 accept
// loop) and dispatches per mode.
func (d *Daemon) handleAccepted(conn net.Conn) {
	addr := conn.RemoteAddr()

	if d.cfg.AcceptPolicy != nil && !d.cfg.AcceptPolicy(addr) {
		d.stats.ConnectionsDenied.Add(1)
		conn.Close()
		return
	}

	host := hostOf(addr)
	if d.cfg.PerIPConnectionLimit > 0 {
		d.perIPMu.Lock()
		if d.perIP[host] >= d.cfg.PerIPConnectionLimit {
			d.perIPMu.Unlock()
			d.stats.ConnectionsDenied.Add(1)
			conn.Close()
			return
		}
		d.perIP[host]++
		d.perIPMu.Unlock()
	}

	if d.connSem != nil {
		select {
		case d.connSem <- struct{}{}:
		default:
			d.stats.ConnectionsDenied.Add(1)
			d.releasePerIP(host)
			conn.Close()
			return
		}
	}

	d.stats.TotalConnections.Add(1)
	d.stats.ActiveConnections.Add(1)

	if tc, ok := conn.(*net.TCPConn); ok {
		_ = transport.Apply(tc, transport.DefaultConfig())
	}

	switch d.cfg.Mode {
	case ThreadPerConnection, ExternalReadiness:
		// ExternalReadiness has no running worker loop to hand off to:
		// RunOnce's caller already waited for readiness, so dispatch
		// the one connection it accepted directly.
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.serveConn(conn, host)
		}()
	default: // SharedInternalLoop, WorkerPool
		idx := 0
		if len(d.workers) > 1 {
			idx = int(hashAddr(addr) % uint32(len(d.workers)))
		}
		select {
		case d.workers[idx] <- conn:
		default:
			// Worker queue full: fall back to a dedicated goroutine
			// rather than dropping an accepted connection.
			d.wg.Add(1)
			go func() {
				defer d.wg.Done()
				d.serveConn(conn, host)
			}()
		}
	}
}

func (d *Daemon) runWorker(queue chan net.Conn) {
	defer d.wg.Done()
	for conn := range queue {
		d.serveConn(conn, hostOf(conn.RemoteAddr()))
	}
}

func (d *Daemon) serveConn(conn net.Conn, host string) {
	d.connsMu.Lock()
	d.conns[conn] = struct{}{}
	d.connsMu.Unlock()

	defer func() {
		conn.Close()
		d.connsMu.Lock()
		delete(d.conns, conn)
		d.connsMu.Unlock()
		d.stats.ActiveConnections.Add(-1)
		if d.connSem != nil {
			<-d.connSem
		}
		d.releasePerIP(host)
	}()

	cfg := d.cfg.ConnIO
	userNotify := cfg.NotifyCompleted
	cfg.NotifyCompleted = func(remoteAddr string, reason connio.NotifyReason) {
		if reason == connio.WithError {
			d.stats.RequestErrors.Add(1)
		}
		if userNotify != nil {
			userNotify(remoteAddr, reason)
		}
	}
	cfg.ShuttingDown = d.shutdown.Load
	c := connio.NewConn(conn, cfg)
	c.Serve()
}

func (d *Daemon) releasePerIP(host string) {
	if d.cfg.PerIPConnectionLimit <= 0 {
		return
	}
	d.perIPMu.Lock()
	if d.perIP[host] > 0 {
		d.perIP[host]--
	}
	if d.perIP[host] == 0 {
		delete(d.perIP, host)
	}
	d.perIPMu.Unlock()
}

func hostOf(addr net.Addr) string {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.IP.String()
	}
	return addr.String()
}

func hashAddr(addr net.Addr) uint32 {
	h := fnv.New32a()
	h.Write([]byte(addr.String()))
	return h.Sum32()
}
