package mhttpd

import (
	"time"

	"github.com/lumenhttp/mhttpd/internal/connio"
	"github.com/lumenhttp/mhttpd/internal/daemon"
)

// AcceptPolicy is consulted with the peer address at accept time (spec
// §6 AcceptPolicy(fn,ctx)).
type AcceptPolicy = daemon.AcceptPolicy

// NotifyReason is the terminal reason code a connection's lifecycle
// notification callback receives (spec §4.4/§8, GLOSSARY "Notify-completed").
type NotifyReason = connio.NotifyReason

const (
	CompletedOk    = connio.CompletedOk
	TimeoutReached = connio.TimeoutReached
	WithError      = connio.WithError
	DaemonShutdown = connio.DaemonShutdown
	ClientAborted  = connio.ClientAborted
)

// NotifyCompletedFunc is the connection-lifecycle notification callback
// (spec §6 NotifyCompleted(fn,ctx)).
type NotifyCompletedFunc func(remoteAddr string, reason NotifyReason)

// Mode selects one of the four interchangeable execution models (spec
// §4.6, §3 mode discriminator).
type Mode = daemon.Mode

const (
	ExternalReadiness   = daemon.ExternalReadiness
	SharedInternalLoop  = daemon.SharedInternalLoop
	ThreadPerConnection = daemon.ThreadPerConnection
	WorkerPool          = daemon.WorkerPool
)

// Options is the closed configuration record start_daemon accepts (spec
// §6 "Configuration options recognized by start_daemon (closed
// enumeration)"). Every field below corresponds to exactly one named
// option; there is deliberately no escape hatch for unknown options —
// an option this record doesn't name cannot be expressed, which is the
// Go-idiomatic rendition of "unknown or unsupported options cause
// start_daemon to fail deterministically" (spec §6) without a runtime
// enum-dispatch/rejection step.
type Options struct {
	// ConnectionMemoryLimit bounds the per-request pool (spec §4.1
	// capacity / §6 ConnectionMemoryLimit(bytes)).
	ConnectionMemoryLimit int

	// ConnectionLimit caps concurrently live connections (0 = unlimited).
	ConnectionLimit int

	// ConnectionTimeout is the idle timeout; 0 disables it (spec §4.4
	// Timeouts).
	ConnectionTimeout time.Duration

	// BindAddress is the listen address, e.g. ":8080" or "127.0.0.1:8443".
	BindAddress string

	// TlsMemoryKey/TlsMemoryCertificate, if both set, switch the listener
	// to TLS (spec §4.5, §6).
	TlsMemoryKey         []byte
	TlsMemoryCertificate []byte

	// ThreadStackSize is accepted for option-surface parity with the
	// source but has no effect: goroutine stacks grow on demand and
	// aren't separately sized. Kept in the enumeration so a host porting
	// option tables verbatim doesn't trip UnsupportedOption on it.
	ThreadStackSize int

	// PerIpConnectionLimit caps concurrent connections per peer IP (0 =
	// unlimited).
	PerIpConnectionLimit int

	// ListenBacklog is accepted for option-surface parity but has no
	// effect: the listener uses the kernel's default backlog.
	ListenBacklog int

	// SuppressDateHeader disables the mandatory Date response header
	// (spec §4.4 Response serialization).
	SuppressDateHeader bool

	// AcceptPolicy is consulted with the peer address at accept time; a
	// false return denies the connection (spec §4.6 Accept loop).
	AcceptPolicy AcceptPolicy

	// NotifyCompleted runs exactly once per request with its terminal
	// reason (spec §4.4, §8).
	NotifyCompleted NotifyCompletedFunc

	// DefaultHandler is the application request handler.
	DefaultHandler connio.Handler

	// ServerHeader, if non-empty, is sent as the mandatory Server
	// response header (spec §4.4 "Server identifying string (optional,
	// configurable)").
	ServerHeader string

	// Mode selects the execution model (spec §4.6).
	Mode Mode

	// WorkerCount sizes the WorkerPool mode's worker set (supplemented
	// mode-4 description: "N instances of mode 2").
	WorkerCount int

	// ShutdownGracePeriod bounds how long StopDaemon waits for in-flight
	// connections to drain before force-closing them (supplemented
	// feature: §4.6 says draining is "best-effort up to a grace period"
	// but §6's closed enumeration had no knob for it until now).
	ShutdownGracePeriod time.Duration
}
