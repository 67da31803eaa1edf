//go:build !linux

package daemon

// GetFdSets and RunOnce require epoll, which this build doesn't have.
// ExternalReadiness mode (spec §4.6) is Linux-only in this implementation;
// SharedInternalLoop/ThreadPerConnection/WorkerPool all work everywhere
// since they're goroutine-scheduling, not raw-fd, abstractions.

// GetFdSets is unavailable on this platform.
func (d *Daemon) GetFdSets() (readFD int, err error) {
	return -1, ErrWrongMode
}

// RunOnce is unavailable on this platform.
func (d *Daemon) RunOnce(timeoutMillis int) error {
	return ErrWrongMode
}
