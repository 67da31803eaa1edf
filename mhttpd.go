// Package mhttpd is the public surface (C7) of a small embeddable
// HTTP/1.1 server: start_daemon/stop_daemon, queue_response, the two
// response constructors, header iteration, and connection-value lookup
// (spec §6 "Library surface consumed by hosts").
package mhttpd

import (
	"fmt"
	"net"

	"github.com/lumenhttp/mhttpd/internal/clock"
	"github.com/lumenhttp/mhttpd/internal/connio"
	"github.com/lumenhttp/mhttpd/internal/daemon"
	"github.com/lumenhttp/mhttpd/internal/transport"
	"github.com/lumenhttp/mhttpd/internal/wire"
)

// Environment is the explicit capability record design note §9 asks for
// in place of the source's process-wide allocator/logging globals:
// "Replace with an explicit Environment record passed to start_daemon,
// holding allocator, sink, and clock capabilities. No hidden globals."
// The allocator capability is internal/pool, reached through
// Options.ConnectionMemoryLimit rather than injected directly here,
// since every allocator call is already scoped to one connection's pool.
type Environment struct {
	// Sink receives every log Event the daemon and its connections
	// produce. StartDaemon replaces a nil Sink with the same zerolog
	// console sink DefaultEnvironment installs.
	Sink Sink

	// Clock is the wall-clock capability; nil uses clock.System{}.
	Clock clock.Clock
}

// DefaultEnvironment returns the zerolog console-writer sink (grounded on
// the gateway service's logger.New — see internal/logsink) and the real
// clock.
func DefaultEnvironment() Environment {
	return Environment{Sink: defaultSink(), Clock: clock.System{}}
}

// Daemon is the running library instance returned by StartDaemon.
type Daemon struct {
	d        *daemon.Daemon
	listener net.Listener
	env      Environment
}

// StartDaemon binds opts.BindAddress, validates the (closed) option set,
// and begins accepting connections under opts.Mode (spec §6 start_daemon).
func StartDaemon(env Environment, opts Options) (*Daemon, error) {
	if opts.BindAddress == "" {
		return nil, fmt.Errorf("%w: BindAddress is required", ErrBindFailed)
	}
	if env.Clock == nil {
		env.Clock = clock.System{}
	}

	tcpCfg := transport.DefaultConfig()
	if opts.ListenBacklog > 0 {
		// net.ListenConfig doesn't expose a backlog knob portably; the
		// kernel's own default backlog is used, and ListenBacklog is
		// accepted (not rejected as UnsupportedOption) for option-table
		// parity with hosts porting existing configuration.
		_ = opts.ListenBacklog
	}

	var listener net.Listener
	var err error
	if len(opts.TlsMemoryCertificate) > 0 && len(opts.TlsMemoryKey) > 0 {
		listener, err = transport.ListenTLS(opts.BindAddress, tcpCfg, transport.TLSConfig{
			CertPEM: opts.TlsMemoryCertificate,
			KeyPEM:  opts.TlsMemoryKey,
		})
	} else {
		listener, err = transport.Listen(opts.BindAddress, tcpCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBindFailed, err)
	}

	poolCapacity := opts.ConnectionMemoryLimit
	if poolCapacity <= 0 {
		poolCapacity = 32 * 1024
	}

	var notify func(remoteAddr string, reason connio.NotifyReason)
	if opts.NotifyCompleted != nil {
		notify = func(remoteAddr string, reason connio.NotifyReason) {
			opts.NotifyCompleted(remoteAddr, reason)
		}
	}

	sink := env.Sink
	if sink == nil {
		sink = defaultSink()
	}

	connCfg := connio.Config{
		PoolCapacity:    poolCapacity,
		Limits:          wire.DefaultLimits(),
		Timeout:         opts.ConnectionTimeout,
		SuppressDate:    opts.SuppressDateHeader,
		ServerHeader:    opts.ServerHeader,
		Handler:         opts.DefaultHandler,
		NotifyCompleted: notify,
		Clock:           env.Clock,
		Sink:            sink,
	}

	var acceptPolicy daemon.AcceptPolicy
	if opts.AcceptPolicy != nil {
		acceptPolicy = opts.AcceptPolicy
	}

	dmn := daemon.New(listener, daemon.Config{
		Mode:                 opts.Mode,
		ConnIO:               connCfg,
		AcceptPolicy:         acceptPolicy,
		ConnectionLimit:      opts.ConnectionLimit,
		PerIPConnectionLimit: opts.PerIpConnectionLimit,
		WorkerCount:          opts.WorkerCount,
		ShutdownGracePeriod:  opts.ShutdownGracePeriod,
	})
	dmn.Start()

	return &Daemon{d: dmn, listener: listener, env: env}, nil
}

// StopDaemon stops accepting new connections and waits (up to the
// configured ShutdownGracePeriod) for in-flight ones to finish (spec §6
// stop_daemon, §4.6 Shutdown).
func (d *Daemon) StopDaemon() {
	d.d.Stop()
}

// Addr returns the daemon's bound listen address.
func (d *Daemon) Addr() net.Addr { return d.listener.Addr() }

// GetFdSets returns the listening socket's fd for a host driving its own
// readiness loop (spec §6 get_fdsets, §4.6 mode 1). Valid only when
// Options.Mode is ExternalReadiness.
func (d *Daemon) GetFdSets() (readFD int, err error) {
	return d.d.GetFdSets()
}

// RunOnce accepts and dispatches at most one connection once the
// listening socket becomes readable (spec §6 run_once, §4.6 mode 1).
// Valid only when Options.Mode is ExternalReadiness.
func (d *Daemon) RunOnce(timeoutMillis int) error {
	return d.d.RunOnce(timeoutMillis)
}

// Stats exposes the daemon's connection counters.
func (d *Daemon) Stats() *daemon.Stats { return d.d.Stats() }
