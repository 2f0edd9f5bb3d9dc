package behaviors

import (
	"fmt"

	"github.com/roach88/wodkit/internal/program"
	"github.com/roach88/wodkit/internal/runtime"
)

// ChildrenBehavior sequences a block's child groups. On mount it pushes the
// first group; on every Next (child completed, or user skipped) it advances
// the round tracker and either pushes the next group or completes the block
// with rounds-exhausted.
//
// Compilation stays lazy: only the group about to execute is compiled, via
// CompileAndPush.
type ChildrenBehavior struct {
	runtime.Base

	// Groups are the child node-id groups in declaration order.
	Groups [][]program.NodeID

	// Rounds is the sibling round tracker - an explicit reference injected
	// by the strategy, never looked up at runtime.
	Rounds *RoundsBehavior
}

// NewChildren creates a child sequencer over the given groups, advancing
// through rounds.
func NewChildren(groups [][]program.NodeID, rounds *RoundsBehavior) *ChildrenBehavior {
	return &ChildrenBehavior{Groups: groups, Rounds: rounds}
}

// OnMount pushes the first child group.
func (b *ChildrenBehavior) OnMount(ctx *runtime.Context) ([]runtime.Action, error) {
	if len(b.Groups) == 0 {
		return nil, fmt.Errorf("children behavior mounted with no groups")
	}
	return []runtime.Action{
		&runtime.CompileAndPush{NodeIDs: b.Groups[0]},
	}, nil
}

// OnNext advances the sequence. Trigger-agnostic: a completing child and a
// user advance land here identically.
func (b *ChildrenBehavior) OnNext(ctx *runtime.Context) ([]runtime.Action, error) {
	if _, err := b.Rounds.Advance(ctx); err != nil {
		return nil, err
	}

	done, err := b.Rounds.Exhausted(ctx)
	if err != nil {
		return nil, err
	}
	if done {
		ctx.Block().MarkComplete(runtime.ReasonRoundsExhausted)
		return []runtime.Action{&runtime.PopBlock{Key: ctx.Block().Key}}, nil
	}

	offset, err := b.Rounds.Offset(ctx)
	if err != nil {
		return nil, err
	}
	return []runtime.Action{
		&runtime.CompileAndPush{NodeIDs: b.Groups[offset]},
	}, nil
}
