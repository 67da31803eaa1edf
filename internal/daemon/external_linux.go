//go:build linux

package daemon

import (
	"net"

	"golang.org/x/sys/unix"
)

// epollState backs ExternalReadiness mode: an epoll instance watching the
// listening socket only (see the comment above ErrWrongMode in daemon.go
// for why per-connection readiness isn't exposed this way).
type epollState struct {
	epfd     int
	listenFD int
}

func (d *Daemon) epoll() (*epollState, error) {
	tl, ok := d.listener.(*net.TCPListener)
	if !ok {
		return nil, ErrWrongMode
	}
	raw, err := tl.SyscallConn()
	if err != nil {
		return nil, err
	}
	var fd int
	if err := raw.Control(func(sysfd uintptr) { fd = int(sysfd) }); err != nil {
		return nil, err
	}

	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, err
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		unix.Close(epfd)
		return nil, err
	}
	return &epollState{epfd: epfd, listenFD: fd}, nil
}

// GetFdSets returns the listening socket's fd for the host to watch for
// readability, mirroring get_fdsets' role in the external-readiness mode
// (spec §4.6). Only ExternalReadiness exposes this.
func (d *Daemon) GetFdSets() (readFD int, err error) {
	if d.cfg.Mode != ExternalReadiness {
		return -1, ErrWrongMode
	}
	st, err := d.epoll()
	if err != nil {
		return -1, err
	}
	defer unix.Close(st.epfd)
	return st.listenFD, nil
}

// RunOnce waits (with timeoutMillis, -1 to block) for the listening socket
// to become readable and, if so, accepts and dispatches exactly one
// connection — the external-readiness equivalent of run_once (spec §4.6).
func (d *Daemon) RunOnce(timeoutMillis int) error {
	if d.cfg.Mode != ExternalReadiness {
		return ErrWrongMode
	}
	st, err := d.epoll()
	if err != nil {
		return err
	}
	defer unix.Close(st.epfd)

	events := make([]unix.EpollEvent, 1)
	n, err := unix.EpollWait(st.epfd, events, timeoutMillis)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return err
	}
	if n == 0 {
		return nil
	}

	conn, err := d.listener.Accept()
	if err != nil {
		d.stats.ConnectionErrors.Add(1)
		return err
	}
	d.handleAccepted(conn)
	return nil
}
