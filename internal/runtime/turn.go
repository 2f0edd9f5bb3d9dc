package runtime

import (
	"log/slog"
	"time"
)

// DefaultMaxIterations bounds the number of actions one turn may execute.
// A cascade longer than this is a behavior defect, not a bigger workout.
const DefaultMaxIterations = 20

// Turn is one bounded, FIFO pass through the action queue, triggered by a
// single external event. It is constructed with one frozen clock snapshot
// for its entire lifetime: every action it executes observes the identical
// now, which is what makes a pop-notify-push cascade seamless.
type Turn struct {
	rt    *Runtime
	now   time.Time
	event string // event that opened the turn, for diagnostics

	queue      []Action
	iterations int
	limit      int
}

func newTurn(rt *Runtime, now time.Time, event string, limit int) *Turn {
	return &Turn{
		rt:    rt,
		now:   now,
		event: event,
		limit: limit,
	}
}

// Now returns the turn's frozen clock snapshot.
func (t *Turn) Now() time.Time {
	return t.now
}

// Runtime returns the owning runtime.
func (t *Turn) Runtime() *Runtime {
	return t.rt
}

// Event returns the name of the event that opened the turn.
func (t *Turn) Event() string {
	return t.event
}

// Iterations returns the number of actions dequeued so far.
func (t *Turn) Iterations() int {
	return t.iterations
}

// Do appends an action to this turn's queue. Called reentrantly from inside
// a running action (directly or via Runtime.Do), it extends the current
// turn rather than opening a new one - the whole cascade shares one frozen
// timestamp.
func (t *Turn) Do(a Action) {
	t.queue = append(t.queue, a)
}

// run seeds the queue and processes it to completion: dequeue at the head,
// execute, append whatever the action enqueued, stop when the queue drains.
//
// Exceeding the iteration limit is a hard failure on exactly the
// (limit+1)th attempted action - the queue is abandoned and the typed error
// surfaces to the Handle/Do caller. An action error likewise aborts the
// remainder of the turn.
func (t *Turn) run(seed []Action) error {
	t.queue = append(t.queue, seed...)

	for len(t.queue) > 0 {
		t.iterations++
		if t.iterations > t.limit {
			slog.Error("turn exceeded iteration limit",
				"event", t.event,
				"iterations", t.iterations,
				"limit", t.limit,
			)
			return &IterationLimitError{
				Event:      t.event,
				Iterations: t.iterations,
				Limit:      t.limit,
			}
		}

		a := t.queue[0]
		t.queue[0] = nil // Free the slot for GC; the backing array persists
		t.queue = t.queue[1:]

		slog.Debug("executing action",
			"event", t.event,
			"action", a.Name(),
			"iteration", t.iterations,
		)

		if err := a.Do(t); err != nil {
			return NewHandlerError(t.event, err)
		}
	}
	return nil
}
