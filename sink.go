package mhttpd

import "github.com/lumenhttp/mhttpd/internal/logsink"

// Event is one structured log record the daemon and its connections
// produce (design note §9 Environment.Sink capability).
type Event = logsink.Event

// Sink receives every Event; internal/daemon and internal/connio log
// through this capability instead of the log package or a package-level
// global logger (design note §9 "no hidden globals").
type Sink = logsink.Sink

func defaultSink() Sink {
	return logsink.Default(false)
}
