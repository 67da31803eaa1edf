package mhttpd

import (
	"github.com/lumenhttp/mhttpd/internal/connio"
	"github.com/lumenhttp/mhttpd/internal/wire"
)

// Handler serves one HTTP request (spec §6 DefaultHandler, §4.4 handler
// invocation contract — adapted to Go idiom, see internal/connio's doc
// comment for why Serve is called once per request with a plain
// io.Reader body rather than repeatedly with a byte-count in/out param).
type Handler = connio.Handler

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc = connio.HandlerFunc

// Action is a handler's verdict for one request.
type Action = connio.Action

const (
	Continue = connio.Continue
	Abort    = connio.Abort
)

// Connection is the per-request handle a Handler receives: the parsed
// Request plus queue_response/get_connection_values/lookup_connection_value
// (spec §6 operation table; "connection" is the parameter those operations
// take).
type Connection = connio.Exchange

// Kind tags a connection-value entry's role (spec §3 header-list kinds,
// reused verbatim as the kind argument get_connection_values/
// lookup_connection_value take — spec §6 names the operations but not
// which kinds they accept; see DESIGN.md).
type Kind = wire.Kind

const (
	RequestHeaderKind = wire.RequestHeader
	CookieKind        = wire.Cookie
	PostFieldKind     = wire.PostField
	QueryArgumentKind = wire.QueryArgument
)

// LookupConnectionValue returns the first value of kind matching key on
// conn's request (spec §6 lookup_connection_value).
func LookupConnectionValue(conn *Connection, kind Kind, key string) (string, bool) {
	return conn.Request.Headers.Get(key, kind)
}

// GetConnectionValues visits every entry of kind on conn's request in
// insertion order, stopping early if visit returns false, and returns
// how many entries exist of that kind (spec §6 get_connection_values).
func GetConnectionValues(conn *Connection, kind Kind, visit func(name, value string) bool) int {
	count := conn.Request.Headers.Count(kind)
	conn.Request.Headers.VisitAll(func(e wire.Entry) bool {
		if e.Kind != kind {
			return true
		}
		return visit(e.Name, e.Value)
	})
	return count
}
