package compile

import (
	"github.com/roach88/wodkit/internal/behaviors"
	"github.com/roach88/wodkit/internal/program"
	"github.com/roach88/wodkit/internal/runtime"
)

// DefaultStrategies returns the built-in strategy set in its required
// registration order: structurally specific shapes (rounds+children,
// duration+children) before general ones (duration only, bare label).
func DefaultStrategies() []Strategy {
	return []Strategy{
		&LoopStrategy{},
		&IntervalStrategy{},
		&GroupStrategy{},
		&RestStrategy{},
		&CountdownStrategy{},
		&EffortStrategy{},
		&GateStrategy{},
		&RootStrategy{},
	}
}

// single returns the node if the group holds exactly one, else nil.
func single(nodes []*program.Node) *program.Node {
	if len(nodes) == 1 {
		return nodes[0]
	}
	return nil
}

// LoopStrategy compiles a node with a repetition scheme over children:
// N rounds of its child groups, completing when the rounds exhaust.
type LoopStrategy struct{}

// Name implements Strategy.
func (*LoopStrategy) Name() string { return "loop" }

// Match implements Strategy.
func (*LoopStrategy) Match(nodes []*program.Node, _ *runtime.Runtime) bool {
	n := single(nodes)
	if n == nil || !n.HasChildren() {
		return false
	}
	_, hasRounds := n.Rounds()
	_, hasDuration := n.Duration()
	return hasRounds && !hasDuration
}

// Compile implements Strategy.
func (*LoopStrategy) Compile(nodes []*program.Node, rt *runtime.Runtime) (*runtime.Block, error) {
	n := nodes[0]
	total, _ := n.Rounds()
	groups := n.ChildGroups()

	rounds := behaviors.NewRounds(total, len(groups))
	return runtime.NewBlock(
		rt.NewBlockKey(), runtime.BlockLoop, n.Label(), []program.NodeID{n.ID},
		rounds,
		behaviors.NewChildren(groups, rounds),
		behaviors.NewRoundRecorder(rounds),
	), nil
}

// IntervalStrategy compiles a node with both a duration and children: a
// timed cap over a child sequence. With a rounds fragment the sequence is
// bounded; without one it cycles until the timer expires (AMRAP).
type IntervalStrategy struct{}

// Name implements Strategy.
func (*IntervalStrategy) Name() string { return "interval" }

// Match implements Strategy.
func (*IntervalStrategy) Match(nodes []*program.Node, _ *runtime.Runtime) bool {
	n := single(nodes)
	if n == nil || !n.HasChildren() {
		return false
	}
	_, hasDuration := n.Duration()
	return hasDuration
}

// Compile implements Strategy.
func (*IntervalStrategy) Compile(nodes []*program.Node, rt *runtime.Runtime) (*runtime.Block, error) {
	n := nodes[0]
	d, _ := n.Duration()
	groups := n.ChildGroups()

	total := 0 // unbounded unless the node declares rounds
	if declared, ok := n.Rounds(); ok {
		total = declared
	}

	rounds := behaviors.NewRounds(total, len(groups))
	return runtime.NewBlock(
		rt.NewBlockKey(), runtime.BlockTimer, n.Label(), []program.NodeID{n.ID},
		behaviors.NewTimer(d),
		rounds,
		behaviors.NewChildren(groups, rounds),
		behaviors.NewRoundRecorder(rounds),
	), nil
}

// GroupStrategy compiles a node with children and no timing or repetition:
// one pass over the child groups.
type GroupStrategy struct{}

// Name implements Strategy.
func (*GroupStrategy) Name() string { return "group" }

// Match implements Strategy.
func (*GroupStrategy) Match(nodes []*program.Node, _ *runtime.Runtime) bool {
	n := single(nodes)
	return n != nil && n.HasChildren()
}

// Compile implements Strategy.
func (*GroupStrategy) Compile(nodes []*program.Node, rt *runtime.Runtime) (*runtime.Block, error) {
	n := nodes[0]
	groups := n.ChildGroups()

	rounds := behaviors.NewRounds(1, len(groups))
	return runtime.NewBlock(
		rt.NewBlockKey(), runtime.BlockLoop, n.Label(), []program.NodeID{n.ID},
		rounds,
		behaviors.NewChildren(groups, rounds),
		behaviors.NewRoundRecorder(rounds),
	), nil
}

// RestStrategy compiles a timed leaf labeled as rest.
type RestStrategy struct{}

// Name implements Strategy.
func (*RestStrategy) Name() string { return "rest" }

// Match implements Strategy.
func (*RestStrategy) Match(nodes []*program.Node, _ *runtime.Runtime) bool {
	n := single(nodes)
	return n != nil && !n.HasChildren() && n.IsRest()
}

// Compile implements Strategy.
func (*RestStrategy) Compile(nodes []*program.Node, rt *runtime.Runtime) (*runtime.Block, error) {
	n := nodes[0]
	d, _ := n.Duration()
	return runtime.NewBlock(
		rt.NewBlockKey(), runtime.BlockRest, n.Label(), []program.NodeID{n.ID},
		behaviors.NewTimer(d),
		behaviors.NewRecorder(),
	), nil
}

// CountdownStrategy compiles a timed leaf: the block completes when its
// span expires.
type CountdownStrategy struct{}

// Name implements Strategy.
func (*CountdownStrategy) Name() string { return "countdown" }

// Match implements Strategy.
func (*CountdownStrategy) Match(nodes []*program.Node, _ *runtime.Runtime) bool {
	n := single(nodes)
	if n == nil || n.HasChildren() {
		return false
	}
	_, hasDuration := n.Duration()
	return hasDuration
}

// Compile implements Strategy.
func (*CountdownStrategy) Compile(nodes []*program.Node, rt *runtime.Runtime) (*runtime.Block, error) {
	n := nodes[0]
	d, _ := n.Duration()
	return runtime.NewBlock(
		rt.NewBlockKey(), runtime.BlockTimer, n.Label(), []program.NodeID{n.ID},
		behaviors.NewTimer(d),
		behaviors.NewRecorder(),
	), nil
}

// EffortStrategy compiles an untimed movement leaf: the athlete performs
// the work and advances manually.
type EffortStrategy struct{}

// Name implements Strategy.
func (*EffortStrategy) Name() string { return "effort" }

// Match implements Strategy.
func (*EffortStrategy) Match(nodes []*program.Node, _ *runtime.Runtime) bool {
	n := single(nodes)
	if n == nil || n.HasChildren() {
		return false
	}
	if _, hasDuration := n.Duration(); hasDuration {
		return false
	}
	_, hasEffort := n.Effort()
	_, hasReps := n.Reps()
	return hasEffort || hasReps
}

// Compile implements Strategy.
func (*EffortStrategy) Compile(nodes []*program.Node, rt *runtime.Runtime) (*runtime.Block, error) {
	n := nodes[0]
	return runtime.NewBlock(
		rt.NewBlockKey(), runtime.BlockEffort, n.Label(), []program.NodeID{n.ID},
		behaviors.NewAdvance(),
		behaviors.NewRecorder(),
	), nil
}

// GateStrategy compiles any remaining leaf - typically label-only - as a
// wait-for-user gate. Keep it after the other leaf strategies: it is the
// general fallback.
type GateStrategy struct{}

// Name implements Strategy.
func (*GateStrategy) Name() string { return "gate" }

// Match implements Strategy.
func (*GateStrategy) Match(nodes []*program.Node, _ *runtime.Runtime) bool {
	n := single(nodes)
	return n != nil && !n.HasChildren()
}

// Compile implements Strategy.
func (*GateStrategy) Compile(nodes []*program.Node, rt *runtime.Runtime) (*runtime.Block, error) {
	n := nodes[0]
	return runtime.NewBlock(
		rt.NewBlockKey(), runtime.BlockGate, n.Label(), []program.NodeID{n.ID},
		behaviors.NewAdvance(),
		behaviors.NewRecorder(),
	), nil
}

// RootStrategy compiles a multi-node group - the program's root statement
// list - into a Root block sequencing each node as its own child group.
type RootStrategy struct{}

// Name implements Strategy.
func (*RootStrategy) Name() string { return "root" }

// Match implements Strategy.
func (*RootStrategy) Match(nodes []*program.Node, _ *runtime.Runtime) bool {
	return len(nodes) > 1
}

// Compile implements Strategy.
func (*RootStrategy) Compile(nodes []*program.Node, rt *runtime.Runtime) (*runtime.Block, error) {
	groups := make([][]program.NodeID, len(nodes))
	ids := make([]program.NodeID, len(nodes))
	for i, n := range nodes {
		groups[i] = []program.NodeID{n.ID}
		ids[i] = n.ID
	}

	rounds := behaviors.NewRounds(1, len(groups))
	return runtime.NewBlock(
		rt.NewBlockKey(), runtime.BlockRoot, "", ids,
		rounds,
		behaviors.NewChildren(groups, rounds),
		behaviors.NewRoundRecorder(rounds),
	), nil
}
