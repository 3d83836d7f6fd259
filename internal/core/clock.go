package core

import "time"

// Clock provides the current time and can be replaced in tests.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the system time.
type RealClock struct{}

// Now returns the current system time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// FixedClock implements Clock with a settable instant for testing.
type FixedClock struct {
	at time.Time
}

// NewFixedClock creates a FixedClock frozen at t.
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{at: t}
}

// Now returns the fixed time.
func (f *FixedClock) Now() time.Time {
	return f.at
}

// Advance moves the clock forward by d.
func (f *FixedClock) Advance(d time.Duration) {
	f.at = f.at.Add(d)
}
