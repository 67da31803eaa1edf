// Package connio implements the per-connection request/response state
// machine (spec §4.4): it owns one connection's pool, parses requests
// against it, invokes the application handler, serializes responses, and
// decides keep-alive and chunked framing.
package connio

// State is the connection's position in the request/response lifecycle
// (spec §4.4). The names match the specification's state list exactly so
// the mapping between prose and code needs no translation.
type State int

const (
	Init State = iota
	UrlReceived
	HeadersProcessing
	HeadersProcessed
	ContinueSending
	ContinueSent
	BodyReceiving
	BodyReceived
	FootersReceiving
	FootersReceived
	HeadersSending
	HeadersSent
	NormalBodyUnready
	NormalBodyReady
	ChunkedBodyUnready
	ChunkedBodyReady
	BodySent
	FootersSent
	Closed
)

func (s State) String() string {
	switch s {
	case Init:
		return "Init"
	case UrlReceived:
		return "UrlReceived"
	case HeadersProcessing:
		return "HeadersProcessing"
	case HeadersProcessed:
		return "HeadersProcessed"
	case ContinueSending:
		return "ContinueSending"
	case ContinueSent:
		return "ContinueSent"
	case BodyReceiving:
		return "BodyReceiving"
	case BodyReceived:
		return "BodyReceived"
	case FootersReceiving:
		return "FootersReceiving"
	case FootersReceived:
		return "FootersReceived"
	case HeadersSending:
		return "HeadersSending"
	case HeadersSent:
		return "HeadersSent"
	case NormalBodyUnready:
		return "NormalBodyUnready"
	case NormalBodyReady:
		return "NormalBodyReady"
	case ChunkedBodyUnready:
		return "ChunkedBodyUnready"
	case ChunkedBodyReady:
		return "ChunkedBodyReady"
	case BodySent:
		return "BodySent"
	case FootersSent:
		return "FootersSent"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// NotifyReason is the single terminal reason the notify-completed
// callback reports for a request (spec §4.4: exactly one per request,
// whatever the cause).
type NotifyReason int

const (
	CompletedOk NotifyReason = iota
	TimeoutReached
	WithError
	DaemonShutdown
	ClientAborted
)

func (r NotifyReason) String() string {
	switch r {
	case CompletedOk:
		return "CompletedOk"
	case TimeoutReached:
		return "TimeoutReached"
	case WithError:
		return "WithError"
	case DaemonShutdown:
		return "DaemonShutdown"
	case ClientAborted:
		return "ClientAborted"
	default:
		return "Unknown"
	}
}
