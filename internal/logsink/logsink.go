// Package logsink is the structured-logging capability threaded through
// internal/daemon and internal/connio, grounded on the gateway service's
// zerolog-based logger.New (Sergey-Bar-Alfred/services/gateway/logger)
// rather than the log package or a package-level global (design note §9
// bans hidden globals; the Environment record is how the host's own
// sink, or this default, reaches the core).
package logsink

import (
	"os"

	"github.com/rs/zerolog"
)

// Event is one structured log record. Kind names the event
// ("accept", "parse_error", "timeout", "handler_panic", ...); Fields
// carries event-specific key/value context.
type Event struct {
	Kind       string
	RemoteAddr string
	Err        error
	Fields     map[string]any
}

// Sink receives every Event the daemon and its connections produce.
type Sink func(Event)

// Default builds the zerolog console-writer sink used when the host
// supplies none, mirroring logger.New: zerolog.ConsoleWriter to stderr,
// level gated by development vs. production, .With().Timestamp().Logger().
func Default(development bool) Sink {
	out := zerolog.ConsoleWriter{Out: os.Stderr}
	lvl := zerolog.InfoLevel
	if development {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log := zerolog.New(out).With().Timestamp().Logger()

	return func(ev Event) {
		e := log.Info()
		if ev.Err != nil {
			e = log.Error()
		}
		e = e.Str("event", ev.Kind)
		if ev.RemoteAddr != "" {
			e = e.Str("remote_addr", ev.RemoteAddr)
		}
		if ev.Err != nil {
			e = e.Err(ev.Err)
		}
		for k, v := range ev.Fields {
			e = e.Interface(k, v)
		}
		e.Msg(ev.Kind)
	}
}

// Discard is the Sink used when logging is entirely disabled.
func Discard(Event) {}
