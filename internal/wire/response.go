package wire

import (
	"sync"
	"sync/atomic"
)

// Ownership describes how a Buffer-sourced Response holds onto the bytes
// it was given (spec §4.3 from_buffer).
type Ownership uint8

const (
	PersistentBorrow Ownership = iota // caller guarantees the buffer outlives the response
	TakeOwnership                     // response takes the slice as-is, caller must not reuse it
	MakeInternalCopy                  // response copies the bytes immediately
)

// FetchResult is the outcome of one PullCallback.Fetch call.
type FetchResult int

const (
	FetchTryAgain FetchResult = -2 // transient "no data yet" (multi-threaded modes only)
	FetchError    FetchResult = -1 // permanent error or end-of-stream
)

// PullCallback is the callback-sourced payload variant of a Response
// (spec §4.3 from_callback). Fetch is called with the current stream
// position and must write into buf, returning the number of bytes
// written, FetchError (permanent end-of-stream/error), or FetchTryAgain.
// Free is called exactly once when the response's refcount reaches zero.
type PullCallback struct {
	SizeHint  Size
	BlockSize int
	Fetch     func(pos int64, buf []byte) (int, FetchResult)
	Free      func()
}

// Size is the Known(n)/Unknown payload-size sum type (spec §3).
type Size struct {
	known bool
	n     int64
}

// Known builds a Size carrying an exact byte count.
func Known(n int64) Size { return Size{known: true, n: n} }

// Unknown is the Size variant that forces chunked framing on HTTP/1.1 or
// connection-close framing on HTTP/1.0.
var Unknown = Size{known: false}

// IsKnown reports whether the size is the Known variant, returning the
// count when it is.
func (s Size) IsKnown() (int64, bool) { return s.n, s.known }

// Response is the immutable-after-enqueue payload + header list object
// (spec §4.3, §3). Exactly one of buffer/callback is populated.
type Response struct {
	mu       sync.Mutex
	headers  List
	size     Size
	buffer   []byte
	callback *PullCallback
	refcount atomic.Int64
	frozen   atomic.Bool
}

// FromBuffer builds a Response whose payload is an in-memory buffer.
// Ownership governs whether bytes is copied, retained as-is, or merely
// borrowed (caller must keep it alive and unmodified for the response's
// lifetime).
func FromBuffer(bytes []byte, ownership Ownership) *Response {
	r := &Response{size: Known(int64(len(bytes)))}
	switch ownership {
	case MakeInternalCopy:
		r.buffer = append([]byte(nil), bytes...)
	default: // PersistentBorrow, TakeOwnership: keep the slice as given
		r.buffer = bytes
	}
	r.refcount.Store(1)
	return r
}

// FromCallback builds a Response whose payload is produced on demand by
// cb.Fetch.
func FromCallback(cb *PullCallback) *Response {
	r := &Response{size: cb.SizeHint, callback: cb}
	r.refcount.Store(1)
	return r
}

// AddHeader appends a ResponseHeader entry. Fails with ErrFrozen once the
// response has been enqueued on any connection.
func (r *Response) AddHeader(name, value string) error {
	if r.frozen.Load() {
		return ErrFrozen
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen.Load() {
		return ErrFrozen
	}
	r.headers.Add(name, value, ResponseHeader)
	return nil
}

// DeleteHeader removes every ResponseHeader entry matching name. Fails
// with ErrFrozen once enqueued.
func (r *Response) DeleteHeader(name string) error {
	if r.frozen.Load() {
		return ErrFrozen
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen.Load() {
		return ErrFrozen
	}
	r.headers.Del(name, ResponseHeader)
	return nil
}

// GetHeader returns the first ResponseHeader value for name.
func (r *Response) GetHeader(name string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.headers.Get(name, ResponseHeader)
}

// IterateHeaders calls visit for every response header in wire order.
func (r *Response) IterateHeaders(visit func(name, value string) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.headers.VisitAll(func(e Entry) bool {
		if e.Kind != ResponseHeader {
			return true
		}
		return visit(e.Name, e.Value)
	})
}

// Freeze marks the response immutable. Called by the connection state
// machine on the first successful queue_response; safe to call again from
// additional connections that reuse the same response object.
func (r *Response) Freeze() {
	r.frozen.Store(true)
}

// Size returns the response's declared payload size.
func (r *Response) Size() Size { return r.size }

// Buffer returns the in-memory payload and whether this response is
// buffer-sourced.
func (r *Response) Buffer() ([]byte, bool) { return r.buffer, r.callback == nil }

// Callback returns the pull-callback payload source, if this response is
// callback-sourced.
func (r *Response) Callback() (*PullCallback, bool) { return r.callback, r.callback != nil }

// Retain increments the reference count when an additional connection
// enqueues this already-queued response object (spec §3 lifecycle).
func (r *Response) Retain() int64 { return r.refcount.Add(1) }

// Release decrements the reference count and runs the callback's Free
// hook (if any) once it reaches zero. Returns the post-decrement count.
func (r *Response) Release() int64 {
	n := r.refcount.Add(-1)
	if n == 0 && r.callback != nil && r.callback.Free != nil {
		r.callback.Free()
	}
	return n
}

// RefCount reports the current reference count.
func (r *Response) RefCount() int64 { return r.refcount.Load() }
