package wire

import "strings"

// percentDecode strictly decodes a %XX-escaped string. plusAsSpace
// controls whether '+' is translated to a literal space, which the spec
// restricts to the query component and gates behind the "plus-as-space"
// option (default on). A malformed escape (not exactly two hex digits)
// yields ErrMalformedPercentEncoding.
func percentDecode(s string, plusAsSpace bool) (string, error) {
	hasEscape := false
	for i := 0; i < len(s); i++ {
		if s[i] == '%' || (plusAsSpace && s[i] == '+') {
			hasEscape = true
			break
		}
	}
	if !hasEscape {
		return s, nil
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '%':
			if i+2 >= len(s) {
				return "", ErrMalformedPercentEncoding
			}
			hi, ok1 := hexVal(s[i+1])
			lo, ok2 := hexVal(s[i+2])
			if !ok1 || !ok2 {
				return "", ErrMalformedPercentEncoding
			}
			b.WriteByte(hi<<4 | lo)
			i += 2
		case plusAsSpace && s[i] == '+':
			b.WriteByte(' ')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String(), nil
}

func hexVal(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}

// parseQueryArguments splits a raw query string on '&' and '=' and
// appends each decoded pair to headers as a QueryArgument entry.
// plusAsSpace applies only here, never to the path itself (spec §4.2).
func parseQueryArguments(headers *List, rawQuery string, plusAsSpace bool) error {
	return parseQueryArgumentsKind(headers, rawQuery, plusAsSpace, QueryArgument)
}

// parseCookieHeader re-parses a Cookie header's value into individual
// Cookie-kind entries in addition to the RequestHeader entry that is
// always kept (spec §4.2 header block).
func parseCookieHeader(headers *List, value string) {
	for _, part := range strings.Split(value, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, v, ok := strings.Cut(part, "=")
		if !ok {
			headers.Add(part, "", Cookie)
			continue
		}
		headers.Add(strings.TrimSpace(name), strings.TrimSpace(v), Cookie)
	}
}

// parsePostFields decodes an application/x-www-form-urlencoded body into
// PostField entries, mirroring the query-argument decoding rules exactly
// (spec's supplemented PostField population — §4.2 names the kind but
// does not describe production of it).
func parsePostFields(headers *List, body string, plusAsSpace bool) error {
	return parseQueryArgumentsKind(headers, body, plusAsSpace, PostField)
}

// ParsePostFields is the exported form connio calls once a request body
// with Content-Type application/x-www-form-urlencoded has been read in
// full.
func ParsePostFields(headers *List, body string, plusAsSpace bool) error {
	return parsePostFields(headers, body, plusAsSpace)
}

func parseQueryArgumentsKind(headers *List, raw string, plusAsSpace bool, kind Kind) error {
	if raw == "" {
		return nil
	}
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		name, value, _ := strings.Cut(pair, "=")
		dn, err := percentDecode(name, plusAsSpace)
		if err != nil {
			return err
		}
		dv, err := percentDecode(value, plusAsSpace)
		if err != nil {
			return err
		}
		headers.Add(dn, dv, kind)
	}
	return nil
}
