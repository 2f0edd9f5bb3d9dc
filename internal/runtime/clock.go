package runtime

import "time"

// Clock is the engine's time source.
//
// The engine reads the clock exactly once per turn - at Turn construction -
// and every action within the turn observes that frozen snapshot. Across
// turns the reported time must be monotonically non-decreasing; within a
// turn it never advances.
//
// Production code uses SystemClock. Tests use testutil.ManualClock to drive
// time explicitly.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock. time.Now carries a monotonic reading on
// all supported platforms, so successive turns never observe time moving
// backwards even across wall-clock adjustments.
type SystemClock struct{}

// Now returns the current instant.
func (SystemClock) Now() time.Time {
	return time.Now()
}
