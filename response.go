package mhttpd

import "github.com/lumenhttp/mhttpd/internal/wire"

// Response is the immutable-after-enqueue payload + header list object
// (spec §4.3, §3).
type Response = wire.Response

// Ownership describes how a buffer-sourced Response holds onto the bytes
// it was given (spec §4.3 from_buffer).
type Ownership = wire.Ownership

const (
	PersistentBorrow = wire.PersistentBorrow
	TakeOwnership    = wire.TakeOwnership
	MakeInternalCopy = wire.MakeInternalCopy
)

// Size is the Known(n)/Unknown payload-size sum type (spec §3).
type Size = wire.Size

// Known builds a Size carrying an exact byte count.
func Known(n int64) Size { return wire.Known(n) }

// Unknown is the Size variant that forces chunked framing on HTTP/1.1 or
// connection-close framing on HTTP/1.0.
var Unknown = wire.Unknown

// FetchResult is the outcome of one PullCallback.Fetch call.
type FetchResult = wire.FetchResult

const (
	FetchTryAgain = wire.FetchTryAgain
	FetchError    = wire.FetchError
)

// PullCallback is the callback-sourced payload variant of a Response
// (spec §4.3 from_callback).
type PullCallback = wire.PullCallback

// CreateResponseFromBuffer builds a Response whose payload is an
// in-memory buffer (spec §6 create_response_from_buffer).
func CreateResponseFromBuffer(bytes []byte, ownership Ownership) *Response {
	return wire.FromBuffer(bytes, ownership)
}

// CreateResponseFromCallback builds a Response whose payload is produced
// on demand by cb.Fetch (spec §6 create_response_from_callback).
func CreateResponseFromCallback(cb *PullCallback) *Response {
	return wire.FromCallback(cb)
}

// DestroyResponse decrements resp's refcount, freeing it at zero (spec
// §6 destroy_response).
func DestroyResponse(resp *Response) {
	resp.Release()
}

// AddResponseHeader appends a header to resp. Fails with ErrFrozen once
// resp has been enqueued on any connection (spec §6 add_response_header).
func AddResponseHeader(resp *Response, name, value string) error {
	return resp.AddHeader(name, value)
}

// QueueResponse attaches resp as conn's reply with the given status
// (spec §6 queue_response). Calling it twice for the same connection
// fails with ErrAlreadyQueued.
func QueueResponse(conn *Connection, status int, resp *Response) error {
	return conn.QueueResponse(status, resp)
}
