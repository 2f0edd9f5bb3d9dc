package runtime

import (
	"fmt"
	"time"
)

// Behavior is a composable unit of block logic. A block owns an ordered list
// of behaviors; hooks run in that order and their returned actions are
// concatenated in that order before being enqueued.
//
// A behavior instance belongs to exactly one block and is never shared. A
// behavior that depends on a sibling holds an explicit reference passed in
// at construction - sibling state is never looked up by name at runtime.
type Behavior interface {
	// OnMount runs when the block mounts. Typical work: allocate memory
	// entries, subscribe to events, push a first child.
	OnMount(ctx *Context) ([]Action, error)

	// OnNext runs when the block advances. Two distinct triggers funnel
	// here - a user advance and a child completing - and the behavior
	// cannot distinguish them, so its logic must be trigger-agnostic.
	OnNext(ctx *Context) ([]Action, error)

	// OnUnmount runs when the block unmounts, before its memory entries and
	// subscriptions are released.
	OnUnmount(ctx *Context) ([]Action, error)

	// OnDispose runs at terminal cleanup. Must be safe to invoke more than
	// once.
	OnDispose(ctx *Context)
}

// Base is a no-op Behavior for embedding. Behaviors embed it and override
// only the hooks they need.
type Base struct{}

// OnMount implements Behavior.
func (Base) OnMount(*Context) ([]Action, error) { return nil, nil }

// OnNext implements Behavior.
func (Base) OnNext(*Context) ([]Action, error) { return nil, nil }

// OnUnmount implements Behavior.
func (Base) OnUnmount(*Context) ([]Action, error) { return nil, nil }

// OnDispose implements Behavior.
func (Base) OnDispose(*Context) {}

// Context is the per-invocation environment handed to behavior hooks.
//
// A fresh context is built for every lifecycle call and bound to that turn's
// frozen clock - a mount-time context is never reused for a later next().
// After the block unmounts its final context is disposed; using a stale
// context is a programming error and fails loudly.
type Context struct {
	rt       *Runtime
	block    *Block
	now      time.Time
	disposed bool
}

func newContext(rt *Runtime, block *Block, now time.Time) *Context {
	return &Context{rt: rt, block: block, now: now}
}

func (c *Context) dispose() {
	c.disposed = true
}

func (c *Context) check() {
	if c.disposed {
		panic(fmt.Sprintf("behavior context for block %s used after dispose", c.block.Key))
	}
}

// Now returns the frozen clock of the turn this context belongs to.
func (c *Context) Now() time.Time {
	c.check()
	return c.now
}

// Runtime returns the owning runtime.
func (c *Context) Runtime() *Runtime {
	c.check()
	return c.rt
}

// Block returns the block this context serves.
func (c *Context) Block() *Block {
	c.check()
	return c.block
}

// Subscribe registers an event handler owned by this context's block. The
// subscription is removed automatically when the block unmounts.
func (c *Context) Subscribe(name string, scope Scope, fn HandlerFunc) Subscription {
	c.check()
	return c.rt.Bus().Subscribe(c.block.Key, name, scope, fn)
}

// Emit publishes an output record to the runtime's subscribers.
func (c *Context) Emit(rec OutputRecord) {
	c.check()
	c.rt.emit(rec)
}

// Depth returns the block's current stack depth (1 = bottom). Zero if the
// block is not on the stack.
func (c *Context) Depth() int {
	c.check()
	for i, b := range c.rt.Stack().Blocks() {
		if b.Key == c.block.Key {
			return i + 1
		}
	}
	return 0
}

// AllocateVar allocates a typed memory entry owned by the context's block.
func AllocateVar[T any](c *Context, typeTag string, initial T, vis Visibility) Ref[T] {
	c.check()
	return Allocate(c.rt.Memory(), typeTag, c.block.Key, initial, vis)
}

// GetVar reads a memory entry through the context.
func GetVar[T any](c *Context, ref Ref[T]) (T, error) {
	c.check()
	return Get(c.rt.Memory(), ref)
}

// SetVar writes a memory entry through the context, enforcing the
// single-writer rule: only the owning block's behaviors may write.
func SetVar[T any](c *Context, ref Ref[T], value T) error {
	c.check()
	if ref.Owner() != c.block.Key {
		return fmt.Errorf("block %s may not write entry owned by %s", c.block.Key, ref.Owner())
	}
	return Set(c.rt.Memory(), ref, value)
}

// WatchVar registers a synchronous subscriber on a memory entry.
func WatchVar[T any](c *Context, ref Ref[T], fn func(old, new T)) error {
	c.check()
	return Watch(c.rt.Memory(), ref, fn)
}
