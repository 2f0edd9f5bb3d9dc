package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wodkit/internal/testutil"
)

func TestPopBlock_KeyedPopOnlyRemovesItsTarget(t *testing.T) {
	rt := newTestRuntime()
	a := newTestBlock("a")
	b := newTestBlock("b")

	turn := newTurn(rt, testutil.Epoch, "test", DefaultMaxIterations)
	require.NoError(t, turn.run([]Action{&PushBlock{Block: a}, &PushBlock{Block: b}}))
	require.Equal(t, []BlockKey{"a", "b"}, rt.Stack().Keys())

	// A pop issued for a block that no longer holds the top fizzles instead
	// of evicting whoever is there now.
	turn = newTurn(rt, testutil.Epoch, "test", DefaultMaxIterations)
	require.NoError(t, turn.run([]Action{&PopBlock{Key: "a"}}))
	assert.Equal(t, []BlockKey{"a", "b"}, rt.Stack().Keys())

	turn = newTurn(rt, testutil.Epoch, "test", DefaultMaxIterations)
	require.NoError(t, turn.run([]Action{&PopBlock{Key: "b"}}))
	assert.Equal(t, []BlockKey{"a"}, rt.Stack().Keys())
}

func TestPopBlock_UnkeyedPopTakesTop(t *testing.T) {
	rt := newTestRuntime()
	turn := newTurn(rt, testutil.Epoch, "test", DefaultMaxIterations)
	require.NoError(t, turn.run([]Action{&PushBlock{Block: newTestBlock("solo")}}))

	turn = newTurn(rt, testutil.Epoch, "test", DefaultMaxIterations)
	require.NoError(t, turn.run([]Action{&PopBlock{}}))
	assert.Equal(t, 0, rt.Stack().Depth())
}
