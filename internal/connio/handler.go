package connio

import "github.com/lumenhttp/mhttpd/internal/wire"

// Action is a handler's verdict after serving one request (spec §4.4
// "Continue | Abort").
type Action int

const (
	Continue Action = iota
	Abort
)

// Exchange is the per-request view a Handler operates against. Request
// is readable immediately; QueueResponse may be called at most once.
//
// The specification's handler contract calls for the application
// callback to be invoked repeatedly as upload bytes trickle in, with an
// in/out byte count the handler decrements as it consumes data. Go's
// blocking io.Reader already gives a handler that exact ability —
// reading Request.Body blocks until bytes are available and returns
// only what has arrived — so this implementation calls Handler.Serve
// once per request and lets it read Request.Body at its own pace,
// rather than re-invoking a callback on every arrival. The handler must
// still have called QueueResponse by the time it returns, matching the
// "must have queued a response by BodyReceived" rule; the connection
// synthesizes a 500 otherwise.
type Exchange struct {
	Request *wire.Request

	queued   bool
	status   int
	response *wire.Response
}

// QueueResponse attaches resp as this request's reply and freezes its
// header list. Calling it twice fails with wire.ErrAlreadyQueued (spec §6
// queue_response).
func (ex *Exchange) QueueResponse(status int, resp *wire.Response) error {
	if ex.queued {
		return wire.ErrAlreadyQueued
	}
	if resp != nil {
		resp.Freeze()
	}
	ex.queued = true
	ex.status = status
	ex.response = resp
	return nil
}

// Queued reports whether QueueResponse has already been called, and the
// status/response it recorded.
func (ex *Exchange) Queued() (status int, resp *wire.Response, ok bool) {
	return ex.status, ex.response, ex.queued
}

// Handler is the application request callback (spec §4.4).
type Handler interface {
	Serve(ex *Exchange) Action
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ex *Exchange) Action

func (f HandlerFunc) Serve(ex *Exchange) Action { return f(ex) }
