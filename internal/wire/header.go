package wire

// Kind tags what role a header-list entry plays. The same ordered list
// structure holds request headers, cookies, percent-decoded query
// arguments, decoded POST fields, and response headers; Kind is what lets
// a single iteration/lookup surface (get_connection_values,
// lookup_connection_value) serve all of them.
type Kind uint8

const (
	RequestHeader Kind = iota
	Cookie
	PostField
	QueryArgument
	ResponseHeader
)

func (k Kind) String() string {
	switch k {
	case RequestHeader:
		return "RequestHeader"
	case Cookie:
		return "Cookie"
	case PostField:
		return "PostField"
	case QueryArgument:
		return "QueryArgument"
	case ResponseHeader:
		return "ResponseHeader"
	default:
		return "Unknown"
	}
}

// Entry is one (name, value, kind) triple in a header list.
type Entry struct {
	Name  string
	Value string
	Kind  Kind
}

// List is an ordered sequence of header-list entries. Lookup is
// case-insensitive on Name; insertion order is preserved, which matters
// for response headers (wire order) and is incidental for everything
// else.
type List struct {
	entries []Entry
}

// Add appends an entry, preserving insertion order.
func (l *List) Add(name, value string, kind Kind) {
	l.entries = append(l.entries, Entry{Name: name, Value: value, Kind: kind})
}

// Get returns the first value for name among entries of the given kind,
// and whether it was found.
func (l *List) Get(name string, kind Kind) (string, bool) {
	for _, e := range l.entries {
		if e.Kind == kind && equalFold(e.Name, name) {
			return e.Value, true
		}
	}
	return "", false
}

// GetAny returns the first value for name regardless of kind, and
// whether it was found. Used for plain request-header lookups where the
// caller does not care that a Cookie header is also mirrored as
// RequestHeader.
func (l *List) GetAny(name string) (string, bool) {
	for _, e := range l.entries {
		if equalFold(e.Name, name) {
			return e.Value, true
		}
	}
	return "", false
}

// Has reports whether name is present among entries of the given kind.
func (l *List) Has(name string, kind Kind) bool {
	_, ok := l.Get(name, kind)
	return ok
}

// Del removes every entry matching name and kind. Returns the number of
// entries removed.
func (l *List) Del(name string, kind Kind) int {
	n := 0
	out := l.entries[:0]
	for _, e := range l.entries {
		if e.Kind == kind && equalFold(e.Name, name) {
			n++
			continue
		}
		out = append(out, e)
	}
	l.entries = out
	return n
}

// Set replaces every existing entry matching name and kind with a single
// entry, preserving the position of the first match, or appends if none
// existed.
func (l *List) Set(name, value string, kind Kind) {
	firstIdx := -1
	for i, e := range l.entries {
		if e.Kind == kind && equalFold(e.Name, name) {
			firstIdx = i
			break
		}
	}
	if firstIdx == -1 {
		l.Add(name, value, kind)
		return
	}
	l.Del(name, kind)
	if firstIdx > len(l.entries) {
		firstIdx = len(l.entries)
	}
	l.entries = append(l.entries, Entry{})
	copy(l.entries[firstIdx+1:], l.entries[firstIdx:])
	l.entries[firstIdx] = Entry{Name: name, Value: value, Kind: kind}
}

// Len returns the total number of entries across all kinds.
func (l *List) Len() int { return len(l.entries) }

// Reset empties the list for reuse.
func (l *List) Reset() { l.entries = l.entries[:0] }

// VisitAll calls visit for every entry in insertion order. Stops early if
// visit returns false.
func (l *List) VisitAll(visit func(e Entry) bool) {
	for _, e := range l.entries {
		if !visit(e) {
			return
		}
	}
}

// Count returns how many entries of kind exist, used by
// get_connection_values.
func (l *List) Count(kind Kind) int {
	n := 0
	for _, e := range l.entries {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
