package runtime

import (
	"log/slog"

	"github.com/roach88/wodkit/internal/program"
)

// Command event names accepted by Handle. Every external input - the
// fixed-interval tick and each discrete command - funnels through the same
// entry point and the same scope-filtered dispatch.
const (
	EventStart  = "start"
	EventTick   = "tick"
	EventNext   = "next"
	EventPause  = "timer:pause"
	EventResume = "timer:resume"
	EventStop   = "stop"
)

// Compiler turns program node groups into blocks. Implemented by
// compile.Compiler; an interface here so the core never imports strategies.
type Compiler interface {
	Compile(ids []program.NodeID, rt *Runtime) (*Block, error)
}

// Runtime orchestrates the engine: clock, memory, bus, stack, compiler, and
// the turn processor. It exposes exactly two external entry points, Handle
// and Do.
//
// Scheduling model: single-threaded, cooperative, turn-based. Exactly one
// turn runs to completion (or hard failure) before the next external input
// is accepted. Runtime is NOT safe for concurrent use; the caller owns the
// single logical thread of control.
type Runtime struct {
	clock    Clock
	keys     KeyGenerator
	memory   *Memory
	bus      *EventBus
	stack    *Stack
	compiler Compiler
	roots    []program.NodeID

	maxIterations int
	output        outputStream

	// turn is the active execution turn, nil between external inputs.
	// INVARIANT: at most one turn exists at a time; reentrant Do calls
	// append to it instead of opening another.
	turn *Turn
}

// Option configures a Runtime at construction.
type Option func(*Runtime)

// WithClock overrides the time source. Tests install a manual clock.
func WithClock(c Clock) Option {
	return func(r *Runtime) { r.clock = c }
}

// WithKeyGenerator overrides block key generation. Tests install a fixed or
// sequential generator for deterministic traces.
func WithKeyGenerator(g KeyGenerator) Option {
	return func(r *Runtime) { r.keys = g }
}

// WithMaxIterations sets the per-turn action bound.
//
// Default: 20 (DefaultMaxIterations). Raise it for deeply nested programs;
// lower it to exercise the bound in tests.
func WithMaxIterations(n int) Option {
	return func(r *Runtime) { r.maxIterations = n }
}

// New creates a Runtime bound to a compiler and the program's root node
// group. All collaborators are constructed here or passed in explicitly -
// there are no process-global singletons to reuse across runtimes.
func New(compiler Compiler, roots []program.NodeID, opts ...Option) *Runtime {
	r := &Runtime{
		clock:         SystemClock{},
		keys:          UUIDv7Generator{},
		memory:        NewMemory(),
		bus:           NewEventBus(),
		stack:         NewStack(),
		compiler:      compiler,
		roots:         append([]program.NodeID(nil), roots...),
		maxIterations: DefaultMaxIterations,
	}

	for _, opt := range opts {
		opt(r)
	}

	r.registerCommands()
	return r
}

// registerCommands wires the command surface onto the bus as engine-level
// global handlers. Tick, pause, and resume have no engine-level handler:
// only subscribed behaviors react to them, so an idle engine processes a
// tick as an empty turn.
func (r *Runtime) registerCommands() {
	r.bus.Subscribe("", EventStart, ScopeGlobal, func(ev Event, rt *Runtime) ([]Action, error) {
		if rt.stack.Depth() > 0 {
			slog.Warn("start ignored: run already in progress")
			return nil, nil
		}
		return []Action{&CompileAndPush{NodeIDs: rt.roots}}, nil
	})

	r.bus.Subscribe("", EventNext, ScopeGlobal, func(ev Event, rt *Runtime) ([]Action, error) {
		if rt.stack.Depth() == 0 {
			slog.Debug("next ignored: nothing running")
			return nil, nil
		}
		return []Action{&NextBlock{}}, nil
	})

	r.bus.Subscribe("", EventStop, ScopeGlobal, func(ev Event, rt *Runtime) ([]Action, error) {
		if rt.stack.Depth() == 0 {
			return nil, nil
		}
		return []Action{&PopAll{Reason: ReasonStopped}}, nil
	})
}

// Handle is the sole external entry point for events. It stamps the event,
// dispatches it through the bus, and executes every collected action inside
// exactly one new turn bound to one frozen clock snapshot.
//
// Handler failures and exceeded turns surface typed to the caller - the
// stack may be partially mutated, and silently swallowing that would hide
// it. Compilation failures also surface, and are the one recoverable case.
func (r *Runtime) Handle(ev Event) error {
	// A Handle from inside a running turn (an internal notification whose
	// handler re-entered) extends that turn: the cascade keeps the original
	// frozen clock.
	if r.turn != nil {
		ev.At = r.turn.Now()
		actions, err := r.bus.Dispatch(ev, r)
		if err != nil {
			return err
		}
		for _, a := range actions {
			r.turn.Do(a)
		}
		return nil
	}

	t := newTurn(r, r.clock.Now(), ev.Name, r.maxIterations)
	if ev.At.IsZero() {
		ev.At = t.Now()
	}

	slog.Debug("handling event", "event", ev.Name, "at", ev.At)

	// The turn is installed before dispatch so handlers observe the frozen
	// clock and any memory writes they make notify within this turn.
	r.turn = t
	defer func() { r.turn = nil }()

	actions, err := r.bus.Dispatch(ev, r)
	if err != nil {
		return err
	}
	return t.run(actions)
}

// Do executes a single action. Called while a turn is running, it appends
// to that turn's queue; otherwise it opens a new turn with a fresh frozen
// snapshot.
func (r *Runtime) Do(a Action) error {
	if r.turn != nil {
		r.turn.Do(a)
		return nil
	}
	return r.runTurn("", []Action{a})
}

func (r *Runtime) runTurn(event string, seed []Action) error {
	t := newTurn(r, r.clock.Now(), event, r.maxIterations)
	r.turn = t
	defer func() { r.turn = nil }()
	return t.run(seed)
}

// dispatchInternal routes an engine-generated event (e.g. a block's unmount
// notification) through the bus and returns the collected actions for the
// caller to enqueue into the current turn.
func (r *Runtime) dispatchInternal(ev Event) ([]Action, error) {
	return r.bus.Dispatch(ev, r)
}

// InTurn reports whether a turn is currently executing.
func (r *Runtime) InTurn() bool {
	return r.turn != nil
}

// OnRecord subscribes fn to the output-record stream. Records are delivered
// synchronously as they are emitted, in subscription order.
func (r *Runtime) OnRecord(fn RecordFunc) {
	r.output.subscribe(fn)
}

// Observe registers a passive event observer for external telemetry.
func (r *Runtime) Observe(fn func(Event)) {
	r.bus.Observe(fn)
}

// Search is the read-only inspection surface over memory. It must never be
// used to mutate state.
func (r *Runtime) Search(c Criteria) []EntrySnapshot {
	return r.memory.Search(c)
}

// emit publishes a record to subscribers.
func (r *Runtime) emit(rec OutputRecord) {
	r.output.emit(rec)
}

// NewBlockKey generates a fresh block key.
func (r *Runtime) NewBlockKey() BlockKey {
	return r.keys.Generate()
}

// Stack returns the block stack.
func (r *Runtime) Stack() *Stack { return r.stack }

// Memory returns the memory store.
func (r *Runtime) Memory() *Memory { return r.memory }

// Bus returns the event bus.
func (r *Runtime) Bus() *EventBus { return r.bus }

// Clock returns the configured time source.
func (r *Runtime) Clock() Clock { return r.clock }

// Compiler returns the configured compiler.
func (r *Runtime) Compiler() Compiler { return r.compiler }

// MaxIterations returns the per-turn action bound.
func (r *Runtime) MaxIterations() int { return r.maxIterations }
