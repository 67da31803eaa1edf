package clock

import (
	"testing"
	"time"
)

func TestSystemNowAdvances(t *testing.T) {
	var s System
	a := s.Now()
	time.Sleep(time.Millisecond)
	b := s.Now()
	if !b.After(a) {
		t.Fatalf("expected b after a, got a=%v b=%v", a, b)
	}
}

func TestFrozenStaysFixedUntilAdvanced(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFrozen(start)

	if got := f.Now(); !got.Equal(start) {
		t.Fatalf("Now() = %v, want %v", got, start)
	}
	if got := f.Now(); !got.Equal(start) {
		t.Fatalf("second Now() = %v, want unchanged %v", got, start)
	}

	f.Advance(5 * time.Second)
	want := start.Add(5 * time.Second)
	if got := f.Now(); !got.Equal(want) {
		t.Fatalf("after Advance, Now() = %v, want %v", got, want)
	}
}

func TestFuncAdapter(t *testing.T) {
	fixed := time.Date(2030, 6, 15, 12, 0, 0, 0, time.UTC)
	var c Clock = Func(func() time.Time { return fixed })
	if got := c.Now(); !got.Equal(fixed) {
		t.Fatalf("Now() = %v, want %v", got, fixed)
	}
}
