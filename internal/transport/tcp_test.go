package transport

import (
	"net"
	"testing"
)

func TestListenAndApply(t *testing.T) {
	l, err := Listen("127.0.0.1:0", DefaultConfig())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer l.Close()

	done := make(chan struct{})
	go func() {
		conn, err := l.Accept()
		if err == nil {
			Apply(conn, DefaultConfig())
			conn.Close()
		}
		close(done)
	}()

	c, err := net.Dial("tcp", l.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	c.Close()
	<-done
}

func TestRawFDOnNonTCPConnReturnsFalse(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	if _, ok := RawFD(a); ok {
		t.Fatal("RawFD on a net.Pipe conn should report false")
	}
}
