// Package transport constructs the net.Conn/net.Listener values the
// connection state machine (internal/connio) operates against (spec
// §4.5). Go's net.Conn interface already supplies the recv/send/close
// capability set §4.5 asks of a transport adapter uniformly across
// plain TCP and post-handshake TLS, so this package's job is building
// the right net.Conn/net.Listener — tuned plain TCP, or a TLS listener
// wrapping it — not re-deriving byte-level dispatch.
package transport

import (
	"net"
)

// Config mirrors the teacher's per-socket tuning knobs (spec §4.5 plain
// TCP variant), applied at accept/listen time via golang.org/x/sys/unix
// rather than the standard syscall package.
type Config struct {
	NoDelay     bool
	RecvBuffer  int
	SendBuffer  int
	QuickAck    bool
	DeferAccept bool
	FastOpen    bool
	KeepAlive   bool
}

// DefaultConfig is a conservative, broadly-correct baseline.
func DefaultConfig() Config {
	return Config{NoDelay: true, KeepAlive: true}
}

// HighThroughputConfig favors larger buffers over latency.
func HighThroughputConfig() Config {
	return Config{
		NoDelay: true, KeepAlive: true,
		RecvBuffer: 1 << 20, SendBuffer: 1 << 20,
		FastOpen: true,
	}
}

// LowLatencyConfig favors immediate ACKs and deferred-accept coalescing.
func LowLatencyConfig() Config {
	return Config{NoDelay: true, KeepAlive: true, QuickAck: true, DeferAccept: true}
}

// Listen opens a tuned TCP listener on addr.
func Listen(addr string, cfg Config) (net.Listener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	if tl, ok := l.(*net.TCPListener); ok {
		_ = ApplyListener(tl, cfg)
	}
	return l, nil
}

// Apply tunes an accepted connection.
func Apply(conn net.Conn, cfg Config) error {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	if cfg.NoDelay {
		_ = tc.SetNoDelay(true)
	}
	if cfg.KeepAlive {
		_ = tc.SetKeepAlive(true)
	}
	if cfg.RecvBuffer > 0 {
		_ = tc.SetReadBuffer(cfg.RecvBuffer)
	}
	if cfg.SendBuffer > 0 {
		_ = tc.SetWriteBuffer(cfg.SendBuffer)
	}
	raw, err := tc.SyscallConn()
	if err != nil {
		return err
	}
	var opErr error
	err = raw.Control(func(fd uintptr) {
		applyPlatformOptions(int(fd), cfg)
	})
	if err != nil {
		return err
	}
	return opErr
}

// ApplyListener tunes the listening socket itself (defer-accept, fast
// open queueing).
func ApplyListener(l *net.TCPListener, cfg Config) error {
	raw, err := l.SyscallConn()
	if err != nil {
		return err
	}
	var opErr error
	err = raw.Control(func(fd uintptr) {
		opErr = applyListenerOptions(int(fd), cfg)
	})
	if err != nil {
		return err
	}
	return opErr
}

// rawFD exposes the underlying file descriptor of a *net.TCPConn; it
// reports false for any other net.Conn.
func rawFD(conn net.Conn) (int, bool) {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return 0, false
	}
	raw, err := tc.SyscallConn()
	if err != nil {
		return 0, false
	}
	var fd int
	_ = raw.Control(func(f uintptr) { fd = int(f) })
	return fd, fd != 0
}

// RawFD is the exported form of rawFD. internal/daemon does not call it:
// its modes serve connections through net.Conn, not raw descriptors.
func RawFD(conn net.Conn) (int, bool) { return rawFD(conn) }
