package runtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wodkit/internal/testutil"
)

// hookRecorder logs every lifecycle hook it receives.
type hookRecorder struct {
	Base
	calls []string
	ctx   *Context // last context seen, for staleness checks
}

func (h *hookRecorder) OnMount(ctx *Context) ([]Action, error) {
	h.calls = append(h.calls, "mount")
	h.ctx = ctx
	return nil, nil
}

func (h *hookRecorder) OnNext(ctx *Context) ([]Action, error) {
	h.calls = append(h.calls, "next")
	h.ctx = ctx
	return nil, nil
}

func (h *hookRecorder) OnUnmount(ctx *Context) ([]Action, error) {
	h.calls = append(h.calls, "unmount")
	h.ctx = ctx
	return nil, nil
}

func (h *hookRecorder) OnDispose(*Context) {
	h.calls = append(h.calls, "dispose")
}

func TestBlock_LifecycleOrder(t *testing.T) {
	rt := newTestRuntime()
	rec := &hookRecorder{}
	b := NewBlock("b", BlockTimer, "Plank", nil, rec)
	turn := newTurn(rt, testutil.Epoch, "test", DefaultMaxIterations)

	_, err := b.Mount(turn)
	require.NoError(t, err)
	_, err = b.Next(turn)
	require.NoError(t, err)
	_, err = b.Unmount(turn)
	require.NoError(t, err)
	b.Dispose(rt)

	assert.Equal(t, []string{"mount", "next", "unmount", "dispose"}, rec.calls)
	assert.True(t, b.StartedAt().Equal(testutil.Epoch))
	assert.True(t, b.EndedAt().Equal(testutil.Epoch))
}

func TestBlock_InvalidTransitions(t *testing.T) {
	rt := newTestRuntime()
	turn := newTurn(rt, testutil.Epoch, "test", DefaultMaxIterations)

	t.Run("next before mount", func(t *testing.T) {
		b := NewBlock("b", BlockEffort, "Row", nil)
		_, err := b.Next(turn)
		require.Error(t, err)
		assert.True(t, IsInvalidTransition(err))
	})

	t.Run("unmount before mount", func(t *testing.T) {
		b := NewBlock("b", BlockEffort, "Row", nil)
		_, err := b.Unmount(turn)
		require.Error(t, err)
		assert.True(t, IsInvalidTransition(err))
	})

	t.Run("double mount", func(t *testing.T) {
		b := NewBlock("b", BlockEffort, "Row", nil)
		_, err := b.Mount(turn)
		require.NoError(t, err)
		_, err = b.Mount(turn)
		require.Error(t, err)
		assert.True(t, IsInvalidTransition(err))
	})

	t.Run("next after unmount", func(t *testing.T) {
		b := NewBlock("b", BlockEffort, "Row", nil)
		_, err := b.Mount(turn)
		require.NoError(t, err)
		_, err = b.Unmount(turn)
		require.NoError(t, err)
		_, err = b.Next(turn)
		require.Error(t, err)
		assert.True(t, IsInvalidTransition(err))
	})
}

func TestBlock_InvalidTypePanics(t *testing.T) {
	assert.Panics(t, func() {
		NewBlock("b", BlockType("mystery"), "", nil)
	})
}

func TestBlock_MarkCompleteFirstReasonWins(t *testing.T) {
	b := NewBlock("b", BlockTimer, "", nil)

	done, reason := b.Completed()
	assert.False(t, done)
	assert.Equal(t, ReasonNone, reason)

	b.MarkComplete(ReasonTimerExpired)
	b.MarkComplete(ReasonStopped)

	done, reason = b.Completed()
	assert.True(t, done)
	assert.Equal(t, ReasonTimerExpired, reason)
}

func TestBlock_TimestampsFromFrozenClock(t *testing.T) {
	clock := testutil.NewManualClock()
	rt := New(nil, nil, WithClock(clock))
	b := NewBlock("b", BlockEffort, "Row", nil)

	mountTurn := newTurn(rt, clock.Now(), "start", DefaultMaxIterations)
	_, err := b.Mount(mountTurn)
	require.NoError(t, err)

	clock.Advance(30 * time.Second)
	popTurn := newTurn(rt, clock.Now(), "next", DefaultMaxIterations)
	_, err = b.Unmount(popTurn)
	require.NoError(t, err)

	assert.True(t, b.StartedAt().Equal(testutil.Epoch))
	assert.True(t, b.EndedAt().Equal(testutil.Epoch.Add(30*time.Second)))
}

func TestBlock_UnmountReleasesResources(t *testing.T) {
	rt := newTestRuntime()
	rec := &hookRecorder{}
	b := NewBlock("b", BlockTimer, "", nil, rec)
	rt.Stack().Push(b)
	turn := newTurn(rt, testutil.Epoch, "test", DefaultMaxIterations)

	baseHandlers := rt.Bus().HandlerCount()
	_, err := b.Mount(turn)
	require.NoError(t, err)

	Allocate(rt.Memory(), "state", b.Key, 1, VisibilityPrivate)
	rt.Bus().Subscribe(b.Key, "tick", ScopeBubble, noActions)
	require.Equal(t, 1, rt.Memory().Len())
	require.Equal(t, baseHandlers+1, rt.Bus().HandlerCount())

	_, err = b.Unmount(turn)
	require.NoError(t, err)

	assert.Equal(t, 0, rt.Memory().Len())
	assert.Equal(t, baseHandlers, rt.Bus().HandlerCount())
}

func TestBlock_UnmountNotifiesAncestors(t *testing.T) {
	rt := newTestRuntime()
	turn := newTurn(rt, testutil.Epoch, "test", DefaultMaxIterations)

	parent := NewBlock("parent", BlockLoop, "", nil)
	child := NewBlock("child", BlockEffort, "Row", nil)
	rt.Stack().Push(parent)
	rt.Stack().Push(child)

	var got UnmountedPayload
	rt.Bus().Subscribe("parent", EventBlockUnmounted, ScopeBubble, func(ev Event, _ *Runtime) ([]Action, error) {
		got = ev.Payload.(UnmountedPayload)
		return nil, nil
	})

	_, err := child.Mount(turn)
	require.NoError(t, err)
	child.MarkComplete(ReasonUserAdvanced)
	_, err = child.Unmount(turn)
	require.NoError(t, err)

	assert.Equal(t, BlockKey("child"), got.Key)
	assert.Equal(t, BlockEffort, got.Type)
	assert.Equal(t, ReasonUserAdvanced, got.Reason)
}

func TestBlock_StaleContextPanics(t *testing.T) {
	rt := newTestRuntime()
	rec := &hookRecorder{}
	b := NewBlock("b", BlockTimer, "", nil, rec)
	turn := newTurn(rt, testutil.Epoch, "test", DefaultMaxIterations)

	_, err := b.Mount(turn)
	require.NoError(t, err)
	mountCtx := rec.ctx
	require.NotNil(t, mountCtx)

	// Next builds a fresh context and disposes the mount-time one.
	_, err = b.Next(turn)
	require.NoError(t, err)

	assert.Panics(t, func() { mountCtx.Now() })
	assert.NotPanics(t, func() { rec.ctx.Now() })
}

func TestBlock_DisposeIdempotent(t *testing.T) {
	rt := newTestRuntime()
	rec := &hookRecorder{}
	b := NewBlock("b", BlockEffort, "", nil, rec)
	turn := newTurn(rt, testutil.Epoch, "test", DefaultMaxIterations)

	_, err := b.Mount(turn)
	require.NoError(t, err)
	_, err = b.Unmount(turn)
	require.NoError(t, err)

	b.Dispose(rt)
	b.Dispose(rt)

	assert.Equal(t, []string{"mount", "unmount", "dispose"}, rec.calls)
}

func TestBlock_ContextDepth(t *testing.T) {
	rt := newTestRuntime()

	var depth int
	probe := &stubBehavior{onMount: func(ctx *Context) ([]Action, error) {
		depth = ctx.Depth()
		return nil, nil
	}}

	rt.Stack().Push(newTestBlock("bottom"))
	b := NewBlock("b", BlockEffort, "", nil, probe)
	rt.Stack().Push(b)

	turn := newTurn(rt, testutil.Epoch, "test", DefaultMaxIterations)
	_, err := b.Mount(turn)
	require.NoError(t, err)
	assert.Equal(t, 2, depth)
}

// stubBehavior overrides individual hooks with closures.
type stubBehavior struct {
	Base
	onMount func(ctx *Context) ([]Action, error)
	onNext  func(ctx *Context) ([]Action, error)
}

func (s *stubBehavior) OnMount(ctx *Context) ([]Action, error) {
	if s.onMount == nil {
		return nil, nil
	}
	return s.onMount(ctx)
}

func (s *stubBehavior) OnNext(ctx *Context) ([]Action, error) {
	if s.onNext == nil {
		return nil, nil
	}
	return s.onNext(ctx)
}

func TestBlock_SetVarEnforcesOwnership(t *testing.T) {
	rt := newTestRuntime()

	foreign := Allocate(rt.Memory(), "foreign", "someone-else", 0, VisibilityPublic)

	var writeErr error
	b := NewBlock("b", BlockEffort, "", nil, &stubBehavior{
		onMount: func(ctx *Context) ([]Action, error) {
			writeErr = SetVar(ctx, foreign, 99)
			return nil, nil
		},
	})

	turn := newTurn(rt, testutil.Epoch, "test", DefaultMaxIterations)
	_, err := b.Mount(turn)
	require.NoError(t, err)

	require.Error(t, writeErr)
	assert.Contains(t, writeErr.Error(), "may not write")

	v, err := Get(rt.Memory(), foreign)
	require.NoError(t, err)
	assert.Equal(t, 0, v)
}

func TestBlock_HookWritesAreOwnerScoped(t *testing.T) {
	rt := newTestRuntime()

	foreign := Allocate(rt.Memory(), "foreign", "someone-else", 0, VisibilityPublic)

	// Bypassing the context and writing through the store directly still
	// hits the ownership check while a hook is running.
	b := NewBlock("b", BlockEffort, "", nil, &stubBehavior{
		onMount: func(ctx *Context) ([]Action, error) {
			return nil, Set(ctx.Runtime().Memory(), foreign, 99)
		},
	})

	turn := newTurn(rt, testutil.Epoch, "test", DefaultMaxIterations)
	_, err := b.Mount(turn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "may not write")

	v, err := Get(rt.Memory(), foreign)
	require.NoError(t, err)
	assert.Equal(t, 0, v)
}
