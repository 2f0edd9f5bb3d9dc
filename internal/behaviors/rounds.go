package behaviors

import (
	"fmt"

	"github.com/roach88/wodkit/internal/runtime"
)

// RoundsBehavior tracks sequencing progress for a block that repeats its
// child groups. The advance index increments on every Next call - once per
// child, not once per full pass - and the round number is derived from it.
//
// The index lives in memory with public visibility so displays and
// inspection tooling can watch round progress without touching behavior
// internals.
type RoundsBehavior struct {
	runtime.Base

	// TotalRounds is the number of full passes over the children. Zero or
	// negative means unbounded: the sequence cycles until something else
	// (typically a timer cap) ends the block.
	TotalRounds int

	// GroupCount is the number of child groups per pass. >= 1.
	GroupCount int

	index runtime.Ref[int]
}

// NewRounds creates a round tracker for totalRounds passes over groupCount
// child groups. totalRounds <= 0 cycles unbounded.
func NewRounds(totalRounds, groupCount int) *RoundsBehavior {
	if groupCount < 1 {
		groupCount = 1
	}
	return &RoundsBehavior{TotalRounds: totalRounds, GroupCount: groupCount}
}

// OnMount allocates the advance index.
func (b *RoundsBehavior) OnMount(ctx *runtime.Context) ([]runtime.Action, error) {
	b.index = runtime.AllocateVar(ctx, "rounds.index", 0, runtime.VisibilityPublic)
	return nil, nil
}

// Advance increments the index and emits a milestone record when a new
// round begins. Returns the new index.
func (b *RoundsBehavior) Advance(ctx *runtime.Context) (int, error) {
	idx, err := runtime.GetVar(ctx, b.index)
	if err != nil {
		return 0, fmt.Errorf("rounds advance: %w", err)
	}
	idx++
	if err := runtime.SetVar(ctx, b.index, idx); err != nil {
		return 0, fmt.Errorf("rounds advance: %w", err)
	}

	// A round boundary is crossed when the index lands on a multiple of the
	// group count with more work remaining.
	if idx%b.GroupCount == 0 && (b.TotalRounds <= 0 || idx < b.TotalRounds*b.GroupCount) {
		block := ctx.Block()
		ctx.Emit(runtime.OutputRecord{
			Kind:      runtime.RecordMilestone,
			BlockKey:  block.Key,
			Type:      block.Type,
			Label:     block.Label,
			Depth:     ctx.Depth(),
			Round:     idx/b.GroupCount + 1,
			StartedAt: ctx.Now(),
			EndedAt:   ctx.Now(),
		})
	}
	return idx, nil
}

// Index returns the current advance index.
func (b *RoundsBehavior) Index(ctx *runtime.Context) (int, error) {
	return runtime.GetVar(ctx, b.index)
}

// Round returns the 1-based current round number.
func (b *RoundsBehavior) Round(ctx *runtime.Context) (int, error) {
	idx, err := b.Index(ctx)
	if err != nil {
		return 0, err
	}
	if b.TotalRounds > 0 && idx >= b.TotalRounds*b.GroupCount {
		return b.TotalRounds, nil
	}
	return idx/b.GroupCount + 1, nil
}

// Exhausted reports whether every round of every group has been consumed.
// An unbounded tracker never exhausts.
func (b *RoundsBehavior) Exhausted(ctx *runtime.Context) (bool, error) {
	if b.TotalRounds <= 0 {
		return false, nil
	}
	idx, err := b.Index(ctx)
	if err != nil {
		return false, err
	}
	return idx >= b.TotalRounds*b.GroupCount, nil
}

// Offset returns the child-group offset for the current index.
func (b *RoundsBehavior) Offset(ctx *runtime.Context) (int, error) {
	idx, err := b.Index(ctx)
	if err != nil {
		return 0, err
	}
	return idx % b.GroupCount, nil
}
