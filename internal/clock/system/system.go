// Package system provides clock implementations.
package system

import "time"

// Clock implements housing.Clock using time.Now.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time in UTC, truncated to microseconds so values survive a
// round trip through either store unchanged.
func (Clock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// Fixed is a clock frozen at a single instant.
type Fixed struct {
	At time.Time
}

// Now returns the frozen instant.
func (f Fixed) Now() time.Time {
	return f.At
}
