package behaviors

import (
	"time"

	"github.com/roach88/wodkit/internal/program"
	"github.com/roach88/wodkit/internal/runtime"
)

// TimerBehavior drives a timed block from tick events: it maintains elapsed
// and remaining spans in public memory, honors pause/resume with exact
// paused-span accounting, and completes the block when its span expires.
//
// Subscriptions are bubble-scoped: a parent interval (e.g. a 20-minute cap
// over child movements) must keep counting while a child occupies the stack
// top, which active scope would prevent.
type TimerBehavior struct {
	runtime.Base

	// Span is the configured length. Zero with CountUp means uncapped.
	Span time.Duration

	// Direction selects countdown or count-up accounting.
	Direction program.TimerDirection

	remaining runtime.Ref[time.Duration]
	elapsed   runtime.Ref[time.Duration]
	paused    runtime.Ref[bool]

	block       *runtime.Block
	pausedSpan  time.Duration
	pauseStart  time.Time
	pausedState bool
}

// NewTimer creates a timer over the given duration fragment.
func NewTimer(d program.DurationFragment) *TimerBehavior {
	return &TimerBehavior{Span: d.Span, Direction: d.Direction}
}

// OnMount allocates the published spans and subscribes to tick and
// pause/resume events.
func (b *TimerBehavior) OnMount(ctx *runtime.Context) ([]runtime.Action, error) {
	b.block = ctx.Block()
	b.elapsed = runtime.AllocateVar(ctx, "timer.elapsed", time.Duration(0), runtime.VisibilityPublic)
	b.remaining = runtime.AllocateVar(ctx, "timer.remaining", b.Span, runtime.VisibilityPublic)
	b.paused = runtime.AllocateVar(ctx, "timer.paused", false, runtime.VisibilityPublic)

	ctx.Subscribe(runtime.EventTick, runtime.ScopeBubble, b.onTick)
	ctx.Subscribe(runtime.EventPause, runtime.ScopeBubble, b.onPause)
	ctx.Subscribe(runtime.EventResume, runtime.ScopeBubble, b.onResume)
	return nil, nil
}

// onTick recomputes spans from the event's frozen timestamp and expires the
// block when the span is consumed.
func (b *TimerBehavior) onTick(ev runtime.Event, rt *runtime.Runtime) ([]runtime.Action, error) {
	if b.pausedState {
		return nil, nil
	}

	elapsed := ev.At.Sub(b.block.StartedAt()) - b.pausedSpan
	if elapsed < 0 {
		elapsed = 0
	}
	if err := runtime.Set(rt.Memory(), b.elapsed, elapsed); err != nil {
		return nil, err
	}

	remaining := b.Span - elapsed
	if remaining < 0 {
		remaining = 0
	}
	if err := runtime.Set(rt.Memory(), b.remaining, remaining); err != nil {
		return nil, err
	}

	if b.Span <= 0 || elapsed < b.Span {
		return nil, nil
	}
	if done, _ := b.block.Completed(); done {
		return nil, nil
	}
	b.block.MarkComplete(runtime.ReasonTimerExpired)

	// If children are live above this block they are force-popped first -
	// an expired cap ends them without the usual completion chain - then
	// the timer block itself pops normally so its parent advances.
	if cur := rt.Stack().Current(); cur != nil && cur.Key != b.block.Key {
		return []runtime.Action{
			&runtime.PopUntil{Key: b.block.Key, Reason: runtime.ReasonTimerExpired},
			&runtime.PopBlock{Key: b.block.Key},
		}, nil
	}
	return []runtime.Action{&runtime.PopBlock{Key: b.block.Key}}, nil
}

// onPause opens a paused span. Pausing an already-paused timer is a no-op.
func (b *TimerBehavior) onPause(ev runtime.Event, rt *runtime.Runtime) ([]runtime.Action, error) {
	if b.pausedState {
		return nil, nil
	}
	b.pausedState = true
	b.pauseStart = ev.At
	return nil, runtime.Set(rt.Memory(), b.paused, true)
}

// onResume closes the paused span and folds it into the accounting so the
// timer's elapsed time excludes it exactly.
func (b *TimerBehavior) onResume(ev runtime.Event, rt *runtime.Runtime) ([]runtime.Action, error) {
	if !b.pausedState {
		return nil, nil
	}
	b.pausedState = false
	b.pausedSpan += ev.At.Sub(b.pauseStart)
	return nil, runtime.Set(rt.Memory(), b.paused, false)
}

// Elapsed returns the published elapsed span.
func (b *TimerBehavior) Elapsed(rt *runtime.Runtime) (time.Duration, error) {
	return runtime.Get(rt.Memory(), b.elapsed)
}

// Remaining returns the published remaining span.
func (b *TimerBehavior) Remaining(rt *runtime.Runtime) (time.Duration, error) {
	return runtime.Get(rt.Memory(), b.remaining)
}
