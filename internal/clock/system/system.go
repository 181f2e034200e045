// Package system provides the wall clock used outside tests.
package system

import "time"

// Clock implements checker.Clock using time.Now. Readings keep the monotonic
// component, so differences between them are safe for elapsed times.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current local time with its monotonic reading.
func (Clock) Now() time.Time {
	return time.Now()
}
