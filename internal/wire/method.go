package wire

// noBodyMethods are the methods whose requests are, by default, taken to
// carry no body when neither Content-Length nor chunked framing is
// present (spec §4.2 body framing, third bullet).
var noBodyMethods = map[string]bool{
	"GET":    true,
	"HEAD":   true,
	"DELETE": true,
}

// MethodCanDefaultToNoBody reports whether method is one of the methods
// that default to a zero-length body absent explicit framing.
func MethodCanDefaultToNoBody(method string) bool {
	return noBodyMethods[method]
}

// IsUppercaseASCII reports whether method looks like a valid all-uppercase
// ASCII token, the form the request line requires.
func IsUppercaseASCII(method string) bool {
	if len(method) == 0 {
		return false
	}
	for i := 0; i < len(method); i++ {
		c := method[i]
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}
