package wire

import (
	"io"
	"strconv"
)

// WriteStatusLine writes "HTTP/<major>.<minor> <code> <reason>\r\n".
func WriteStatusLine(w io.Writer, major, minor, code int) error {
	_, err := io.WriteString(w, "HTTP/"+strconv.Itoa(major)+"."+strconv.Itoa(minor)+" "+
		strconv.Itoa(code)+" "+ReasonPhrase(code)+"\r\n")
	return err
}

// WriteHeaderBlock writes every ResponseHeader entry as "Name: Value\r\n"
// in insertion (wire) order, followed by the blank line terminating the
// header block.
func WriteHeaderBlock(w io.Writer, headers *List) error {
	var writeErr error
	headers.VisitAll(func(e Entry) bool {
		if e.Kind != ResponseHeader {
			return true
		}
		if _, writeErr = io.WriteString(w, e.Name+": "+e.Value+"\r\n"); writeErr != nil {
			return false
		}
		return true
	})
	if writeErr != nil {
		return writeErr
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}
