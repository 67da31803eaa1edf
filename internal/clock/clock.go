// Package clock is the injectable time capability of the Environment
// record (spec §9 design note: "Replace [process-wide globals] with an
// explicit Environment record... holding allocator, sink, and clock
// capabilities").
package clock

import "time"

// Clock is the minimal surface internal/connio and internal/daemon need
// for Date headers and idle-timeout bookkeeping.
type Clock interface {
	Now() time.Time
}

// System is the production Clock, backed directly by time.Now.
type System struct{}

// Now returns the current wall-clock time.
func (System) Now() time.Time { return time.Now() }

// Frozen is a test Clock that always returns a fixed instant, and can be
// advanced explicitly instead of sleeping.
type Frozen struct {
	t time.Time
}

// NewFrozen returns a Frozen clock starting at t.
func NewFrozen(t time.Time) *Frozen { return &Frozen{t: t} }

// Now returns the frozen instant.
func (f *Frozen) Now() time.Time { return f.t }

// Advance moves the frozen instant forward by d.
func (f *Frozen) Advance(d time.Duration) { f.t = f.t.Add(d) }

// Func adapts a plain function to Clock.
type Func func() time.Time

// Now calls the wrapped function.
func (f Func) Now() time.Time { return f() }
