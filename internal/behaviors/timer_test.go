package behaviors_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wodkit/internal/behaviors"
	"github.com/roach88/wodkit/internal/program"
	"github.com/roach88/wodkit/internal/runtime"
	"github.com/roach88/wodkit/internal/testutil"
)

func timerBlock(rt *runtime.Runtime, label string, d time.Duration) (*runtime.Block, *behaviors.TimerBehavior) {
	timer := behaviors.NewTimer(span(d))
	return runtime.NewBlock(rt.NewBlockKey(), runtime.BlockTimer, label, nil,
		timer,
		behaviors.NewRecorder(),
	), timer
}

func TestTimer_CountdownExpires(t *testing.T) {
	rt, clock, records := newEngine(t)
	block, timer := timerBlock(rt, "Plank", 3*time.Second)
	push(t, rt, block)

	clock.Advance(time.Second)
	tick(t, rt)
	require.Equal(t, 1, rt.Stack().Depth())

	remaining, err := timer.Remaining(rt)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, remaining)

	clock.Advance(2 * time.Second)
	tick(t, rt)
	assert.Equal(t, 0, rt.Stack().Depth())

	done, reason := block.Completed()
	assert.True(t, done)
	assert.Equal(t, runtime.ReasonTimerExpired, reason)

	comps := completions(*records)
	require.Len(t, comps, 1)
	assert.Equal(t, 3*time.Second, comps[0].Elapsed)
}

func TestTimer_PausedSpanExcluded(t *testing.T) {
	rt, clock, records := newEngine(t)
	block, timer := timerBlock(rt, "Plank", 3*time.Second)
	push(t, rt, block)

	clock.Advance(time.Second)
	tick(t, rt)
	require.NoError(t, rt.Handle(runtime.Event{Name: runtime.EventPause}))

	// Ticks during the pause must not move the timer.
	clock.Advance(10 * time.Second)
	tick(t, rt)
	elapsed, err := timer.Elapsed(rt)
	require.NoError(t, err)
	assert.Equal(t, time.Second, elapsed)
	require.Equal(t, 1, rt.Stack().Depth())

	clock.Advance(20 * time.Second)
	require.NoError(t, rt.Handle(runtime.Event{Name: runtime.EventResume}))

	// 33s of wall time, 30s of it paused: the timer expires now.
	clock.Advance(2 * time.Second)
	tick(t, rt)
	assert.Equal(t, 0, rt.Stack().Depth())

	done, reason := block.Completed()
	assert.True(t, done)
	assert.Equal(t, runtime.ReasonTimerExpired, reason)

	// The completion record spans wall time, pause included.
	comps := completions(*records)
	require.Len(t, comps, 1)
	assert.Equal(t, 33*time.Second, comps[0].Elapsed)
}

func TestTimer_PauseAndResumeIdempotent(t *testing.T) {
	rt, clock, _ := newEngine(t)
	block, timer := timerBlock(rt, "Plank", 10*time.Second)
	push(t, rt, block)

	// Resume with no pause open is a no-op.
	require.NoError(t, rt.Handle(runtime.Event{Name: runtime.EventResume}))

	require.NoError(t, rt.Handle(runtime.Event{Name: runtime.EventPause}))
	clock.Advance(5 * time.Second)
	// A second pause must not reset the pause start.
	require.NoError(t, rt.Handle(runtime.Event{Name: runtime.EventPause}))
	clock.Advance(5 * time.Second)
	require.NoError(t, rt.Handle(runtime.Event{Name: runtime.EventResume}))

	clock.Advance(time.Second)
	tick(t, rt)
	elapsed, err := timer.Elapsed(rt)
	require.NoError(t, err)
	assert.Equal(t, time.Second, elapsed)
}

func TestTimer_UncappedCountUpNeverExpires(t *testing.T) {
	rt, clock, _ := newEngine(t)
	timer := behaviors.NewTimer(program.DurationFragment{Direction: program.CountUp})
	block := runtime.NewBlock(rt.NewBlockKey(), runtime.BlockTimer, "Clock", nil,
		timer,
		behaviors.NewRecorder(),
	)
	push(t, rt, block)

	clock.Advance(time.Hour)
	tick(t, rt)

	assert.Equal(t, 1, rt.Stack().Depth())
	elapsed, err := timer.Elapsed(rt)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, elapsed)
}

func TestTimer_CapForcePopsChildren(t *testing.T) {
	rt, clock, records := newEngine(t)

	rounds := behaviors.NewRounds(0, 1)
	capBlock := runtime.NewBlock(rt.NewBlockKey(), runtime.BlockTimer, "Cap", nil,
		behaviors.NewTimer(span(time.Minute)),
		rounds,
		behaviors.NewChildren([][]program.NodeID{{"row"}}, rounds),
		behaviors.NewRoundRecorder(rounds),
	)
	push(t, rt, capBlock)
	require.Equal(t, 2, rt.Stack().Depth(), "the cap mounts its first child")

	clock.Advance(time.Minute)
	tick(t, rt)
	assert.Equal(t, 0, rt.Stack().Depth())

	// The child is force-popped before the cap itself, both tagged expired.
	comps := completions(*records)
	require.Len(t, comps, 2)
	assert.Equal(t, "row", comps[0].Label)
	assert.Equal(t, runtime.ReasonTimerExpired, comps[0].Reason)
	assert.Equal(t, "Cap", comps[1].Label)
	assert.Equal(t, runtime.ReasonTimerExpired, comps[1].Reason)
}

// restCapCompiler compiles the shapes for the nested-expiry test: a timed
// cap wrapping a timed rest, plus user-advanced leaves for anything else.
type restCapCompiler struct{}

func (restCapCompiler) Compile(ids []program.NodeID, rt *runtime.Runtime) (*runtime.Block, error) {
	switch ids[0] {
	case "cap":
		rounds := behaviors.NewRounds(0, 1)
		return runtime.NewBlock(rt.NewBlockKey(), runtime.BlockTimer, "Cap", ids,
			behaviors.NewTimer(span(2*time.Minute)),
			rounds,
			behaviors.NewChildren([][]program.NodeID{{"rest"}}, rounds),
			behaviors.NewRoundRecorder(rounds),
		), nil
	case "rest":
		return runtime.NewBlock(rt.NewBlockKey(), runtime.BlockRest, "Rest", ids,
			behaviors.NewTimer(span(2*time.Minute)),
			behaviors.NewRecorder(),
		), nil
	default:
		return runtime.NewBlock(rt.NewBlockKey(), runtime.BlockEffort, string(ids[0]), ids,
			behaviors.NewAdvance(),
			behaviors.NewRecorder(),
		), nil
	}
}

func TestTimer_SimultaneousNestedExpiry(t *testing.T) {
	clock := testutil.NewManualClock()
	rt := runtime.New(restCapCompiler{}, nil,
		runtime.WithClock(clock),
		runtime.WithKeyGenerator(&runtime.SequentialKeyGenerator{}),
	)
	var records []runtime.OutputRecord
	rt.OnRecord(func(rec runtime.OutputRecord) {
		records = append(records, rec)
	})

	rounds := behaviors.NewRounds(1, 2)
	root := runtime.NewBlock(rt.NewBlockKey(), runtime.BlockRoot, "Workout", nil,
		rounds,
		behaviors.NewChildren([][]program.NodeID{{"cap"}, {"cooldown"}}, rounds),
		behaviors.NewRoundRecorder(rounds),
	)
	push(t, rt, root)
	require.Equal(t, 3, rt.Stack().Depth(), "root, cap, rest")

	// Cap and rest run out on the same tick. The cap's handler collects
	// both blocks; the rest's own queued pop then finds its target gone
	// and must leave the root alone.
	clock.Advance(2 * time.Minute)
	tick(t, rt)

	require.Equal(t, 2, rt.Stack().Depth())
	assert.Equal(t, runtime.BlockKey("block-1"), rt.Stack().Keys()[0])
	assert.Equal(t, "cooldown", rt.Stack().Current().Label)

	comps := completions(records)
	require.Len(t, comps, 2)
	assert.Equal(t, "Rest", comps[0].Label)
	assert.Equal(t, runtime.ReasonTimerExpired, comps[0].Reason)
	assert.Equal(t, "Cap", comps[1].Label)
	assert.Equal(t, runtime.ReasonTimerExpired, comps[1].Reason)
}

func TestTimer_ExpiryOnExactBoundary(t *testing.T) {
	rt, clock, _ := newEngine(t)
	block, _ := timerBlock(rt, "Plank", 3*time.Second)
	push(t, rt, block)

	clock.Advance(3 * time.Second)
	tick(t, rt)

	done, _ := block.Completed()
	assert.True(t, done, "elapsed == span must expire")
}

func TestTimer_SpansRemovedAfterUnmount(t *testing.T) {
	rt, clock, _ := newEngine(t)
	block, _ := timerBlock(rt, "Plank", time.Second)
	push(t, rt, block)

	clock.Advance(time.Second)
	tick(t, rt)
	require.Equal(t, 0, rt.Stack().Depth())

	assert.Empty(t, rt.Search(runtime.Criteria{TypeTag: "timer.elapsed"}))
	assert.Empty(t, rt.Search(runtime.Criteria{TypeTag: "timer.remaining"}))
}
