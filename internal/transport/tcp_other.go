//go:build !linux

package transport

// applyPlatformOptions is a no-op on platforms without the Linux-specific
// options the teacher's tuning exploited.
func applyPlatformOptions(fd int, cfg Config) {}

// applyListenerOptions is a no-op on platforms without defer-accept/TFO
// listener options.
func applyListenerOptions(fd int, cfg Config) error { return nil }

// SetQuickAck is a no-op; this platform has no TCP_QUICKACK equivalent.
func SetQuickAck(fd int) error { return nil }
