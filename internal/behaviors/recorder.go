package behaviors

import "github.com/roach88/wodkit/internal/runtime"

// RecorderBehavior emits the block's output records: a segment when the
// block mounts and a completion when it unmounts. It should be listed last
// in a block's behavior order so its unmount record carries the final
// completion reason the other behaviors settled on.
type RecorderBehavior struct {
	runtime.Base

	// Rounds, when present, stamps the current round onto records.
	// Explicit sibling reference, injected by the strategy.
	Rounds *RoundsBehavior
}

// NewRecorder creates a recorder without round annotation.
func NewRecorder() *RecorderBehavior {
	return &RecorderBehavior{}
}

// NewRoundRecorder creates a recorder that annotates records with the
// sibling round tracker's current round.
func NewRoundRecorder(rounds *RoundsBehavior) *RecorderBehavior {
	return &RecorderBehavior{Rounds: rounds}
}

// OnMount emits the opening segment record.
func (b *RecorderBehavior) OnMount(ctx *runtime.Context) ([]runtime.Action, error) {
	block := ctx.Block()
	rec := runtime.OutputRecord{
		Kind:      runtime.RecordSegment,
		BlockKey:  block.Key,
		Type:      block.Type,
		Label:     block.Label,
		Depth:     ctx.Depth(),
		StartedAt: ctx.Now(),
		EndedAt:   ctx.Now(),
	}
	if b.Rounds != nil {
		if round, err := b.Rounds.Round(ctx); err == nil {
			rec.Round = round
		}
	}
	ctx.Emit(rec)
	return nil, nil
}

// OnUnmount emits the completion record spanning the block's whole life.
// EndedAt comes from the unmounting turn's frozen clock, so a successor
// pushed in the same turn starts at a bit-identical instant.
func (b *RecorderBehavior) OnUnmount(ctx *runtime.Context) ([]runtime.Action, error) {
	block := ctx.Block()
	_, reason := block.Completed()
	rec := runtime.OutputRecord{
		Kind:      runtime.RecordCompletion,
		BlockKey:  block.Key,
		Type:      block.Type,
		Label:     block.Label,
		Depth:     ctx.Depth(),
		Reason:    reason,
		StartedAt: block.StartedAt(),
		EndedAt:   ctx.Now(),
		Elapsed:   ctx.Now().Sub(block.StartedAt()),
	}
	if b.Rounds != nil {
		if round, err := b.Rounds.Round(ctx); err == nil {
			rec.Round = round
		}
	}
	ctx.Emit(rec)
	return nil, nil
}
