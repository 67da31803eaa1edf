package mhttpd

import (
	"errors"

	"github.com/lumenhttp/mhttpd/internal/wire"
)

// Error kinds the daemon's public surface returns synchronously (spec
// §7 "Programmer errors" + the start_daemon-time failures from §6's
// operation table). Parse/transport/timeout errors never surface here —
// those are wire responses or notify_completed reasons.
var (
	ErrBindFailed        = errors.New("mhttpd: bind failed")
	ErrUnsupportedOption = errors.New("mhttpd: unsupported option")
	ErrOutOfMemory       = errors.New("mhttpd: out of memory")
	ErrWrongMode         = errors.New("mhttpd: operation not valid in this daemon's mode")

	// ErrAlreadyQueued and ErrFrozen re-export the wire package's
	// programmer errors under the public surface's own names, since
	// QueueResponse/AddResponseHeader are public operations.
	ErrAlreadyQueued = wire.ErrAlreadyQueued
	ErrFrozen        = wire.ErrFrozen
	ErrInvalidHeader = wire.ErrInvalidHeader
	ErrInvalidStatus = wire.ErrInvalidStatus
)
