// Package testutil provides deterministic helpers for engine tests: a
// manually driven clock and canonical test instants.
package testutil

import (
	"sync"
	"time"
)

// Epoch is the canonical base instant tests and golden traces start from.
// A fixed UTC instant keeps golden files stable across machines and zones.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// ManualClock is a runtime.Clock driven explicitly by the test.
//
// Unlike the system clock it never advances on its own, so a test can pin
// an exact instant, fire an event, and assert bit-identical timestamps on
// the resulting records.
//
// Thread-safety: all methods are safe for concurrent use via internal
// mutex, though engine usage is single-threaded.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a clock pinned at Epoch.
func NewManualClock() *ManualClock {
	return &ManualClock{now: Epoch}
}

// NewManualClockAt creates a clock pinned at a specific instant.
func NewManualClockAt(at time.Time) *ManualClock {
	return &ManualClock{now: at}
}

// Now returns the pinned instant.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d. Negative d panics: the engine
// requires monotonically non-decreasing time across turns, and a test
// winding the clock backwards is misconfigured.
func (c *ManualClock) Advance(d time.Duration) {
	if d < 0 {
		panic("ManualClock: cannot advance backwards")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// SetTime pins the clock to an absolute instant. Panics if at precedes the
// current pinned time.
func (c *ManualClock) SetTime(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if at.Before(c.now) {
		panic("ManualClock: cannot move backwards")
	}
	c.now = at
}
