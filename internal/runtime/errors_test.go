package runtime

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/wodkit/internal/program"
)

func TestEngineError_Messages(t *testing.T) {
	tests := []struct {
		name string
		err  *EngineError
		want string
	}{
		{
			name: "block only",
			err:  NewInvalidTransitionError("b-1", "mount called in state mounted"),
			want: "INVALID_TRANSITION: mount called in state mounted (block=b-1)",
		},
		{
			name: "event only",
			err:  NewHandlerError("tick", errors.New("boom")),
			want: "HANDLER_FAILED: handler failed during dispatch (event=tick)",
		},
		{
			name: "bare",
			err:  &EngineError{Code: ErrCodeHandlerFailed, Message: "oops"},
			want: "HANDLER_FAILED: oops",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestEngineError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewHandlerError("tick", cause)

	assert.True(t, errors.Is(err, cause))
	// Wrapping again still resolves through errors.As.
	wrapped := fmt.Errorf("turn failed: %w", err)
	assert.True(t, IsHandlerError(wrapped))
	assert.True(t, errors.Is(wrapped, cause))
}

func TestErrorPredicates(t *testing.T) {
	transition := NewInvalidTransitionError("b-1", "bad")
	handler := NewHandlerError("tick", errors.New("boom"))
	limit := &IterationLimitError{Event: "tick", Iterations: 21, Limit: 20}
	compilation := &CompilationError{NodeIDs: nil}

	assert.True(t, IsInvalidTransition(transition))
	assert.False(t, IsInvalidTransition(handler))

	assert.True(t, IsHandlerError(handler))
	assert.False(t, IsHandlerError(transition))

	assert.True(t, IsIterationLimitError(limit))
	assert.False(t, IsIterationLimitError(handler))

	assert.True(t, IsCompilationError(compilation))
	assert.False(t, IsCompilationError(limit))

	assert.False(t, IsInvalidTransition(nil))
	assert.False(t, IsIterationLimitError(errors.New("plain")))
}

func TestIterationLimitError_Message(t *testing.T) {
	withEvent := &IterationLimitError{Event: "tick", Iterations: 21, Limit: 20}
	assert.Equal(t, `turn for event "tick" exceeded iteration limit: 21 actions > 20 limit`, withEvent.Error())

	bare := &IterationLimitError{Iterations: 6, Limit: 5}
	assert.Equal(t, "turn exceeded iteration limit: 6 actions > 5 limit", bare.Error())
}

func TestCompilationError_Message(t *testing.T) {
	err := &CompilationError{NodeIDs: []program.NodeID{"amrap", "rest"}}
	assert.Equal(t, "no strategy matches nodes [amrap rest]", err.Error())
}
