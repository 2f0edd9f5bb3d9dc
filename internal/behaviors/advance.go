package behaviors

import "github.com/roach88/wodkit/internal/runtime"

// AdvanceBehavior completes a leaf block on user advance. Effort and gate
// blocks have no clock of their own; the athlete finishes the work and
// presses next, which lands here as the block's Next call.
type AdvanceBehavior struct {
	runtime.Base
}

// NewAdvance creates the user-advance completion behavior.
func NewAdvance() *AdvanceBehavior {
	return &AdvanceBehavior{}
}

// OnNext marks the block complete and pops it, letting the parent sequence
// onward within the same turn.
func (b *AdvanceBehavior) OnNext(ctx *runtime.Context) ([]runtime.Action, error) {
	ctx.Block().MarkComplete(runtime.ReasonUserAdvanced)
	return []runtime.Action{&runtime.PopBlock{Key: ctx.Block().Key}}, nil
}
