package wire

import "errors"

// Parse errors (spec §7 "Parse errors"). Each maps to exactly one status
// code via StatusFor and produces a single canned response before the
// connection closes.
var (
	ErrBadRequest             = errors.New("wire: bad request")
	ErrUriTooLong              = errors.New("wire: request-target too long")
	ErrEntityTooLarge          = errors.New("wire: header line too long")
	ErrUnsupportedVersion      = errors.New("wire: unsupported HTTP version")
	ErrDuplicateContentLength  = errors.New("wire: duplicate Content-Length with differing values")
	ErrBadChunk                = errors.New("wire: malformed chunked encoding")
	ErrMalformedPercentEncoding = errors.New("wire: malformed percent-encoding")
	ErrNulInHeader              = errors.New("wire: NUL byte in header name or value")
)

// Resource-exhaustion and programmer errors (spec §7).
var (
	ErrOutOfPool        = errors.New("wire: out of pool")
	ErrAlreadyQueued    = errors.New("wire: response already queued")
	ErrFrozen           = errors.New("wire: response frozen after enqueue")
	ErrInvalidHeader    = errors.New("wire: invalid header name or value")
	ErrInvalidStatus    = errors.New("wire: invalid status code")
)

// StatusFor maps a parse error to the status code §7 mandates. Errors not
// covered here are not wire-representable parse errors and StatusFor
// returns 0 for them — callers should treat that as "not a parse error".
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrUriTooLong):
		return 414
	case errors.Is(err, ErrEntityTooLarge):
		return 413
	case errors.Is(err, ErrUnsupportedVersion):
		return 505
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, ErrDuplicateContentLength),
		errors.Is(err, ErrBadChunk),
		errors.Is(err, ErrMalformedPercentEncoding),
		errors.Is(err, ErrNulInHeader):
		return 400
	default:
		return 0
	}
}
