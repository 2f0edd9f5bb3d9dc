package runtime

import (
	"fmt"
	"log/slog"
	"time"
)

// Event is one named external or internal occurrence. Events never carry
// actions; only handlers produce actions.
type Event struct {
	// Name is the event identifier, e.g. "tick", "next", "timer:pause".
	Name string

	// At is the event timestamp, stamped from the engine clock when the
	// event enters Handle. Handlers must prefer the turn's frozen clock for
	// anything they record.
	At time.Time

	// Payload carries optional event data. The engine never inspects it.
	Payload any
}

// Scope is the handler-eligibility filter based on stack position.
type Scope string

const (
	// ScopeGlobal handlers receive events regardless of stack membership.
	ScopeGlobal Scope = "global"

	// ScopeBubble handlers receive events while their owning block is
	// anywhere on the stack.
	ScopeBubble Scope = "bubble"

	// ScopeActive handlers receive events only while their owning block is
	// the stack top.
	ScopeActive Scope = "active"
)

// ValidateScope checks that s is one of: global, bubble, active.
func ValidateScope(s Scope) error {
	switch s {
	case ScopeGlobal, ScopeBubble, ScopeActive:
		return nil
	default:
		return fmt.Errorf("invalid scope %q: must be global, bubble, or active", s)
	}
}

// HandlerFunc reacts to an event and returns the actions it wants executed.
type HandlerFunc func(ev Event, rt *Runtime) ([]Action, error)

// Subscription identifies a registered handler for later removal.
type Subscription struct {
	id int64
}

type busHandler struct {
	id    int64
	owner BlockKey // empty for engine-level handlers
	name  string
	scope Scope
	fn    HandlerFunc
}

// EventBus dispatches named events to scope-filtered handlers, collecting
// the actions they return.
//
// INVARIANT: handlers run in registration order, and that order never
// changes after registration. The sequencing behaviors rely on it.
type EventBus struct {
	nextID    int64
	handlers  []busHandler
	observers []func(Event)
}

// NewEventBus creates an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe registers fn for events named name at the given scope, owned by
// owner. An empty owner marks an engine-level handler; such handlers must use
// ScopeGlobal since they have no stack position.
// Panics on an invalid scope - a programming error, not a runtime condition.
func (b *EventBus) Subscribe(owner BlockKey, name string, scope Scope, fn HandlerFunc) Subscription {
	if err := ValidateScope(scope); err != nil {
		panic(fmt.Sprintf("bus subscribe %q: %v", name, err))
	}
	if owner == "" && scope != ScopeGlobal {
		panic(fmt.Sprintf("bus subscribe %q: ownerless handlers must be global, got %s", name, scope))
	}

	b.nextID++
	b.handlers = append(b.handlers, busHandler{
		id:    b.nextID,
		owner: owner,
		name:  name,
		scope: scope,
		fn:    fn,
	})
	return Subscription{id: b.nextID}
}

// Unsubscribe removes a single handler. Unknown subscriptions are a no-op.
func (b *EventBus) Unsubscribe(sub Subscription) {
	for i, h := range b.handlers {
		if h.id == sub.id {
			b.handlers = append(b.handlers[:i], b.handlers[i+1:]...)
			return
		}
	}
}

// RemoveOwner drops every handler owned by the given block.
// Called during block unmount.
func (b *EventBus) RemoveOwner(owner BlockKey) {
	if owner == "" {
		return
	}
	kept := b.handlers[:0]
	for _, h := range b.handlers {
		if h.owner != owner {
			kept = append(kept, h)
		}
	}
	// Nil out the tail so removed handler closures are collectable.
	for i := len(kept); i < len(b.handlers); i++ {
		b.handlers[i] = busHandler{}
	}
	b.handlers = kept
}

// Observe registers a passive, unscoped observer used for external
// telemetry. Observers see every event before any handler runs and never
// influence stack state - they produce no actions.
func (b *EventBus) Observe(fn func(Event)) {
	b.observers = append(b.observers, fn)
}

// HandlerCount returns the number of registered handlers.
// Used for testing and introspection.
func (b *EventBus) HandlerCount() int {
	return len(b.handlers)
}

// Dispatch routes ev to eligible handlers in registration order and returns
// the concatenation of their actions.
//
// If a handler fails, remaining handlers are skipped and the error
// propagates wrapped as a handler failure - the dispatch is aborted, never
// partially retried.
func (b *EventBus) Dispatch(ev Event, rt *Runtime) ([]Action, error) {
	for _, obs := range b.observers {
		obs(ev)
	}

	var currentKey BlockKey
	if cur := rt.Stack().Current(); cur != nil {
		currentKey = cur.Key
	}
	stack := rt.Stack()

	// Handlers may subscribe or unsubscribe mid-dispatch (a mounting block
	// registers tick handlers, an unmounting one removes them). Snapshot the
	// registration list so this dispatch sees a stable order.
	snapshot := append([]busHandler(nil), b.handlers...)

	var actions []Action
	for _, h := range snapshot {
		if h.name != ev.Name {
			continue
		}
		if !eligible(h, currentKey, stack) {
			continue
		}

		prev := rt.Memory().setWriter(h.owner)
		produced, err := h.fn(ev, rt)
		rt.Memory().setWriter(prev)
		if err != nil {
			slog.Error("event handler failed",
				"event", ev.Name,
				"owner", h.owner,
				"scope", h.scope,
				"error", err,
			)
			return nil, NewHandlerError(ev.Name, err)
		}
		actions = append(actions, produced...)
	}
	return actions, nil
}

// eligible applies the scope filter for one handler.
func eligible(h busHandler, currentKey BlockKey, stack *Stack) bool {
	switch h.scope {
	case ScopeGlobal:
		return true
	case ScopeBubble:
		return stack.Contains(h.owner)
	case ScopeActive:
		return h.owner != "" && h.owner == currentKey
	default:
		return false
	}
}
