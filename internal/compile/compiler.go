// Package compile turns program nodes into blocks through registered
// strategies.
//
// Compilation is lazy: the runtime compiles a node group only when it is
// about to execute, never eagerly for a whole tree. Resolution is strict
// first-match-wins over the registration order, so structurally specific
// strategies must be registered before general ones - the ordering is a
// design contract enforced by registration sequence, not computed here.
package compile

import (
	"fmt"

	"github.com/roach88/wodkit/internal/program"
	"github.com/roach88/wodkit/internal/runtime"
)

// Strategy is a match-then-compile pair. Strategies are pure functions of
// node shape (presence of duration, child count, repetition scheme) and
// must not mutate shared state.
type Strategy interface {
	// Name identifies the strategy for diagnostics and duplicate checks.
	Name() string

	// Match reports whether this strategy can compile the node group.
	Match(nodes []*program.Node, rt *runtime.Runtime) bool

	// Compile builds a block for the node group. Called only after Match
	// returned true for the same group.
	Compile(nodes []*program.Node, rt *runtime.Runtime) (*runtime.Block, error)
}

// Compiler resolves node ids against one immutable program and compiles
// them with the first matching strategy. It implements runtime.Compiler.
//
// INVARIANT: the strategy slice order never changes after construction.
type Compiler struct {
	prog       *program.Program
	strategies []Strategy
}

// New creates a compiler over prog with strategies in registration order.
//
// Strategy names must be unique; a duplicate is a wiring error surfaced at
// construction, not silently shadowed at match time.
func New(prog *program.Program, strategies ...Strategy) (*Compiler, error) {
	if prog == nil {
		return nil, fmt.Errorf("compiler requires a program")
	}

	seen := make(map[string]bool, len(strategies))
	for _, s := range strategies {
		if seen[s.Name()] {
			return nil, fmt.Errorf("duplicate strategy name %q", s.Name())
		}
		seen[s.Name()] = true
	}

	return &Compiler{
		prog:       prog,
		strategies: append([]Strategy(nil), strategies...),
	}, nil
}

// MustNew is New panicking on error. For wiring code with literal strategy
// lists, where an error is always a bug.
func MustNew(prog *program.Program, strategies ...Strategy) *Compiler {
	c, err := New(prog, strategies...)
	if err != nil {
		panic(err)
	}
	return c
}

// Program returns the compiler's program.
func (c *Compiler) Program() *program.Program {
	return c.prog
}

// Strategies returns the registration-ordered strategy names.
// Used for testing and introspection.
func (c *Compiler) Strategies() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name()
	}
	return names
}

// Compile resolves ids and returns the first matching strategy's block.
// When no strategy matches it returns runtime.CompilationError - the one
// recoverable engine error, letting the caller substitute a fallback.
func (c *Compiler) Compile(ids []program.NodeID, rt *runtime.Runtime) (*runtime.Block, error) {
	if len(ids) == 0 {
		return nil, &runtime.CompilationError{NodeIDs: ids}
	}

	nodes, err := c.prog.Resolve(ids)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	for _, s := range c.strategies {
		if s.Match(nodes, rt) {
			block, err := s.Compile(nodes, rt)
			if err != nil {
				return nil, fmt.Errorf("strategy %s: %w", s.Name(), err)
			}
			return block, nil
		}
	}
	return nil, &runtime.CompilationError{NodeIDs: ids}
}
