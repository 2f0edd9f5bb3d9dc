package runtime

import (
	"fmt"
	"log/slog"

	"github.com/roach88/wodkit/internal/program"
)

// Action is a discriminated stack operation. Do may mutate the stack and
// enqueue further actions into the same turn via t.Do.
type Action interface {
	// Name identifies the action kind for logs and diagnostics.
	Name() string

	// Do executes the action within a turn.
	Do(t *Turn) error
}

// PushBlock pushes an already-compiled block and mounts it. The mount's
// returned actions are re-enqueued into the same turn.
type PushBlock struct {
	Block *Block
}

// Name implements Action.
func (*PushBlock) Name() string { return "push" }

// Do implements Action.
func (a *PushBlock) Do(t *Turn) error {
	if a.Block == nil {
		return fmt.Errorf("push: nil block")
	}
	t.Runtime().Stack().Push(a.Block)

	actions, err := a.Block.Mount(t)
	if err != nil {
		return err
	}
	for _, next := range actions {
		t.Do(next)
	}
	return nil
}

// PopBlock unmounts and pops the current block, disposes it, then notifies
// the parent via Next - the normal completion chain. All within one turn:
// the popped block's end time and any successor's start time are the same
// frozen instant.
//
// Key, when set, names the block the pop was issued for. Actions queue
// before they run, and an earlier action in the same turn may have already
// removed the target (two timers expiring on one tick); a keyed pop whose
// target no longer holds the top fizzles instead of evicting whatever block
// moved there.
type PopBlock struct {
	Key BlockKey
}

// Name implements Action.
func (*PopBlock) Name() string { return "pop" }

// Do implements Action.
func (a *PopBlock) Do(t *Turn) error {
	rt := t.Runtime()
	cur := rt.Stack().Current()
	if cur == nil {
		slog.Debug("pop on empty stack ignored")
		return nil
	}
	if a.Key != "" && cur.Key != a.Key {
		slog.Debug("pop skipped: target no longer on top",
			"target", a.Key,
			"top", cur.Key,
		)
		return nil
	}

	actions, err := cur.Unmount(t)
	if err != nil {
		return err
	}
	rt.Stack().Pop()
	for _, next := range actions {
		t.Do(next)
	}
	cur.Dispose(rt)

	if parent := rt.Stack().Current(); parent != nil {
		parentActions, err := parent.Next(t)
		if err != nil {
			return err
		}
		for _, next := range parentActions {
			t.Do(next)
		}
	}
	return nil
}

// NextBlock advances the current block - the user-advance trigger. The
// block's behaviors cannot tell this trigger from a child-completion
// notification; both funnel through Block.Next.
type NextBlock struct{}

// Name implements Action.
func (*NextBlock) Name() string { return "next" }

// Do implements Action.
func (a *NextBlock) Do(t *Turn) error {
	cur := t.Runtime().Stack().Current()
	if cur == nil {
		slog.Debug("next on empty stack ignored")
		return nil
	}
	actions, err := cur.Next(t)
	if err != nil {
		return err
	}
	for _, next := range actions {
		t.Do(next)
	}
	return nil
}

// CompileAndPush lazily compiles a node group and delegates to PushBlock.
// This is the only place program nodes become blocks: compilation happens
// just in time, never eagerly for a whole tree.
type CompileAndPush struct {
	NodeIDs []program.NodeID
}

// Name implements Action.
func (*CompileAndPush) Name() string { return "compile-and-push" }

// Do implements Action.
func (a *CompileAndPush) Do(t *Turn) error {
	rt := t.Runtime()
	block, err := rt.Compiler().Compile(a.NodeIDs, rt)
	if err != nil {
		return err
	}
	t.Do(&PushBlock{Block: block})
	return nil
}

// PopUntil force-pops blocks above the one with Key, without notifying their
// parents. Each popped block is marked complete with Reason if it has not
// already completed. Used for abort/skip paths where the normal
// pop-then-notify chain would re-trigger sequencing.
type PopUntil struct {
	Key    BlockKey
	Reason CompletionReason
}

// Name implements Action.
func (*PopUntil) Name() string { return "pop-until" }

// Do implements Action.
func (a *PopUntil) Do(t *Turn) error {
	rt := t.Runtime()
	if !rt.Stack().Contains(a.Key) {
		return fmt.Errorf("pop-until: block %s not on stack", a.Key)
	}
	for {
		cur := rt.Stack().Current()
		if cur == nil || cur.Key == a.Key {
			return nil
		}
		if err := forcePop(t, cur, a.Reason); err != nil {
			return err
		}
	}
}

// PopAll force-pops every block without parent notification, unwinding the
// whole run. Used by the stop command.
type PopAll struct {
	Reason CompletionReason
}

// Name implements Action.
func (*PopAll) Name() string { return "pop-all" }

// Do implements Action.
func (a *PopAll) Do(t *Turn) error {
	rt := t.Runtime()
	for {
		cur := rt.Stack().Current()
		if cur == nil {
			return nil
		}
		if err := forcePop(t, cur, a.Reason); err != nil {
			return err
		}
	}
}

// forcePop unmounts, pops, and disposes one block without calling the
// parent's Next. Unmount actions still re-enqueue - recorder behaviors must
// see forced completions too.
func forcePop(t *Turn, b *Block, reason CompletionReason) error {
	b.MarkComplete(reason)
	actions, err := b.Unmount(t)
	if err != nil {
		return err
	}
	t.Runtime().Stack().Pop()
	for _, next := range actions {
		t.Do(next)
	}
	b.Dispose(t.Runtime())
	return nil
}
