package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock is the package-level time source for assessment timestamps and
// history dates. Tests freeze it via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Now returns the current time from the package clock.
func Now() time.Time {
	return clock.Now()
}

// Today returns the current UTC calendar date.
func Today() time.Time {
	return CalendarDate(clock.Now())
}
