package runtime

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/wodkit/internal/program"
)

// BlockType is the closed set of block kinds. Adapter and display code must
// match on it exhaustively - there are no free-form type tags.
type BlockType string

const (
	BlockRoot   BlockType = "root"
	BlockLoop   BlockType = "loop"
	BlockTimer  BlockType = "timer"
	BlockEffort BlockType = "effort"
	BlockRest   BlockType = "rest"
	BlockGate   BlockType = "gate"
)

// ValidateBlockType checks that t is a member of the closed set.
func ValidateBlockType(t BlockType) error {
	switch t {
	case BlockRoot, BlockLoop, BlockTimer, BlockEffort, BlockRest, BlockGate:
		return nil
	default:
		return fmt.Errorf("invalid block type %q", t)
	}
}

// blockState tracks the lifecycle position.
// Created -> Mounted -> Unmounted -> Disposed, no skips, no reversals.
// Active vs waiting-for-child is derived from stack position, not stored.
type blockState int

const (
	stateCreated blockState = iota
	stateMounted
	stateUnmounted
	stateDisposed
)

func (s blockState) String() string {
	switch s {
	case stateCreated:
		return "created"
	case stateMounted:
		return "mounted"
	case stateUnmounted:
		return "unmounted"
	case stateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// EventBlockUnmounted is the internal notification a block emits while
// unmounting, dispatched bubble-scoped so ancestor blocks can react.
const EventBlockUnmounted = "block:unmounted"

// UnmountedPayload is the payload of EventBlockUnmounted.
type UnmountedPayload struct {
	Key    BlockKey
	Type   BlockType
	Reason CompletionReason
}

// Block is a live execution unit: an ordered behavior list, a memory scope,
// and lifecycle timestamps, occupying one stack slot. Created by a compile
// strategy; destroyed after unmount and dispose.
type Block struct {
	Key     BlockKey
	Type    BlockType
	Label   string
	NodeIDs []program.NodeID

	behaviors []Behavior
	state     blockState
	ctx       *Context

	startedAt time.Time
	endedAt   time.Time

	complete bool
	reason   CompletionReason
}

// NewBlock assembles a block from its behaviors, in execution order.
// Panics on an invalid type - strategies construct blocks, and a strategy
// producing an unknown type is a programming error.
func NewBlock(key BlockKey, typ BlockType, label string, nodeIDs []program.NodeID, behaviors ...Behavior) *Block {
	if err := ValidateBlockType(typ); err != nil {
		panic(fmt.Sprintf("new block %s: %v", key, err))
	}
	return &Block{
		Key:       key,
		Type:      typ,
		Label:     label,
		NodeIDs:   append([]program.NodeID(nil), nodeIDs...),
		behaviors: behaviors,
	}
}

// Behaviors returns the ordered behavior list.
func (b *Block) Behaviors() []Behavior {
	return b.behaviors
}

// StartedAt returns the mount timestamp (zero before mount).
func (b *Block) StartedAt() time.Time { return b.startedAt }

// EndedAt returns the unmount timestamp (zero before unmount).
func (b *Block) EndedAt() time.Time { return b.endedAt }

// MarkComplete sets the completion flag and reason. It does not pop the
// block - an action must still do that. The first reason wins; later calls
// are no-ops so a cascade cannot overwrite why a block actually finished.
func (b *Block) MarkComplete(reason CompletionReason) {
	if b.complete {
		return
	}
	b.complete = true
	b.reason = reason
}

// Completed returns the completion flag and tagged reason.
func (b *Block) Completed() (bool, CompletionReason) {
	return b.complete, b.reason
}

// Mount transitions Created -> Mounted: records the start time from the
// turn's frozen clock, builds a fresh behavior context, and runs every
// behavior's OnMount in order, aggregating returned actions.
func (b *Block) Mount(t *Turn) ([]Action, error) {
	if b.state != stateCreated {
		return nil, NewInvalidTransitionError(b.Key,
			fmt.Sprintf("mount called in state %s", b.state))
	}
	b.state = stateMounted
	b.startedAt = t.Now()
	b.ctx = newContext(t.Runtime(), b, t.Now())

	slog.Debug("block mounted",
		"key", b.Key,
		"type", b.Type,
		"label", b.Label,
		"at", b.startedAt,
	)

	return b.runHooks(b.ctx, func(beh Behavior, ctx *Context) ([]Action, error) {
		return beh.OnMount(ctx)
	})
}

// Next advances the block. Builds a NEW behavior context bound to the
// current turn's frozen clock - never reuses the mount-time context - and
// runs every behavior's OnNext in order.
func (b *Block) Next(t *Turn) ([]Action, error) {
	if b.state != stateMounted {
		return nil, NewInvalidTransitionError(b.Key,
			fmt.Sprintf("next called in state %s", b.state))
	}

	if b.ctx != nil {
		b.ctx.dispose()
	}
	b.ctx = newContext(t.Runtime(), b, t.Now())

	return b.runHooks(b.ctx, func(beh Behavior, ctx *Context) ([]Action, error) {
		return beh.OnNext(ctx)
	})
}

// Unmount transitions Mounted -> Unmounted: records the end time, runs every
// behavior's OnUnmount, emits the bubble-scoped unmount notification,
// releases owned memory entries, removes event subscriptions, and disposes
// the behavior context.
func (b *Block) Unmount(t *Turn) ([]Action, error) {
	if b.state != stateMounted {
		return nil, NewInvalidTransitionError(b.Key,
			fmt.Sprintf("unmount called in state %s", b.state))
	}
	b.state = stateUnmounted
	b.endedAt = t.Now()

	if b.ctx != nil {
		b.ctx.dispose()
	}
	b.ctx = newContext(t.Runtime(), b, t.Now())

	actions, err := b.runHooks(b.ctx, func(beh Behavior, ctx *Context) ([]Action, error) {
		return beh.OnUnmount(ctx)
	})
	if err != nil {
		return nil, err
	}

	rt := t.Runtime()

	// Ancestors react to the unmount before this block's resources vanish.
	// The block is still on the stack here, so bubble eligibility includes
	// every ancestor; the block's own handlers are removed right after.
	eventActions, err := rt.dispatchInternal(Event{
		Name: EventBlockUnmounted,
		At:   t.Now(),
		Payload: UnmountedPayload{
			Key:    b.Key,
			Type:   b.Type,
			Reason: b.reason,
		},
	})
	if err != nil {
		return nil, err
	}
	actions = append(actions, eventActions...)

	rt.Memory().ReleaseOwned(b.Key)
	rt.Bus().RemoveOwner(b.Key)
	b.ctx.dispose()
	b.ctx = nil

	slog.Debug("block unmounted",
		"key", b.Key,
		"type", b.Type,
		"reason", b.reason,
		"at", b.endedAt,
	)

	return actions, nil
}

// Dispose runs OnDispose on every behavior. Terminal and idempotent:
// calling it twice is safe, calling anything after it is not.
func (b *Block) Dispose(rt *Runtime) {
	if b.state == stateDisposed {
		return
	}
	ctx := newContext(rt, b, rt.clock.Now())
	prev := rt.Memory().setWriter(b.Key)
	for _, beh := range b.behaviors {
		beh.OnDispose(ctx)
	}
	rt.Memory().setWriter(prev)
	ctx.dispose()
	b.state = stateDisposed
}

// runHooks executes one hook across the behavior list in declared order,
// concatenating returned actions. A hook error aborts the remainder.
// While hooks run, the block is the installed memory writer.
func (b *Block) runHooks(ctx *Context, hook func(Behavior, *Context) ([]Action, error)) ([]Action, error) {
	mem := ctx.rt.Memory()
	prev := mem.setWriter(b.Key)
	defer mem.setWriter(prev)

	var actions []Action
	for _, beh := range b.behaviors {
		produced, err := hook(beh, ctx)
		if err != nil {
			return nil, fmt.Errorf("block %s behavior %T: %w", b.Key, beh, err)
		}
		actions = append(actions, produced...)
	}
	return actions, nil
}
