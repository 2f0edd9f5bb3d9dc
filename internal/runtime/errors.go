package runtime

import (
	"errors"
	"fmt"

	"github.com/roach88/wodkit/internal/program"
)

// EngineError represents an error detected during engine execution.
//
// Engine errors include:
//   - Invalid transition: a lifecycle method called out of order
//   - Handler failure: an event handler or action returned an error
//
// EngineError includes structured fields for diagnostics.
type EngineError struct {
	// Code identifies the error category.
	Code EngineErrorCode

	// Message is a human-readable description.
	Message string

	// BlockKey identifies the affected block, when one is involved.
	BlockKey BlockKey

	// Event names the event being dispatched, for handler failures.
	Event string

	// Err is the underlying cause, if any.
	Err error
}

// EngineErrorCode categorizes engine errors.
type EngineErrorCode string

const (
	// ErrCodeInvalidTransition indicates a lifecycle method was invoked on a
	// block that is disposed or not yet mounted.
	ErrCodeInvalidTransition EngineErrorCode = "INVALID_TRANSITION"

	// ErrCodeHandlerFailed indicates an event handler or action failed,
	// aborting the remainder of its dispatch or turn.
	ErrCodeHandlerFailed EngineErrorCode = "HANDLER_FAILED"
)

// Error implements the error interface.
func (e *EngineError) Error() string {
	switch {
	case e.BlockKey != "" && e.Event != "":
		return fmt.Sprintf("%s: %s (block=%s, event=%s)", e.Code, e.Message, e.BlockKey, e.Event)
	case e.BlockKey != "":
		return fmt.Sprintf("%s: %s (block=%s)", e.Code, e.Message, e.BlockKey)
	case e.Event != "":
		return fmt.Sprintf("%s: %s (event=%s)", e.Code, e.Message, e.Event)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// NewInvalidTransitionError creates an EngineError for a lifecycle misuse.
func NewInvalidTransitionError(key BlockKey, message string) *EngineError {
	return &EngineError{
		Code:     ErrCodeInvalidTransition,
		Message:  message,
		BlockKey: key,
	}
}

// NewHandlerError wraps a handler or action failure with dispatch context.
func NewHandlerError(event string, err error) *EngineError {
	return &EngineError{
		Code:    ErrCodeHandlerFailed,
		Message: "handler failed during dispatch",
		Event:   event,
		Err:     err,
	}
}

// IsInvalidTransition returns true if the error is a lifecycle misuse.
// Uses errors.As to handle wrapped errors.
func IsInvalidTransition(err error) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeInvalidTransition
	}
	return false
}

// IsHandlerError returns true if the error is a handler failure.
// Uses errors.As to handle wrapped errors.
func IsHandlerError(err error) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeHandlerFailed
	}
	return false
}

// IterationLimitError is returned when a turn dequeues more actions than its
// configured maximum. It signals a runaway action cascade - a behavior bug -
// and is always fatal to the turn.
//
// Unlike a compilation failure (which the caller may recover from), an
// exceeded turn leaves the stack wherever the last completed action put it,
// so the error always surfaces to the Handle/Do caller.
type IterationLimitError struct {
	Event      string // Event that opened the turn, if known
	Iterations int    // Number of actions dequeued, including the failing one
	Limit      int    // Configured maximum
}

// Error implements the error interface.
func (e *IterationLimitError) Error() string {
	if e.Event != "" {
		return fmt.Sprintf("turn for event %q exceeded iteration limit: %d actions > %d limit",
			e.Event, e.Iterations, e.Limit)
	}
	return fmt.Sprintf("turn exceeded iteration limit: %d actions > %d limit", e.Iterations, e.Limit)
}

// IsIterationLimitError returns true if the error is an exceeded turn bound.
// Uses errors.As to handle wrapped errors.
func IsIterationLimitError(err error) bool {
	var le *IterationLimitError
	return errors.As(err, &le)
}

// CompilationError is returned when no registered strategy matches a node
// group. It is the one recoverable engine error: the caller may substitute a
// fallback block or surface the condition to the user.
type CompilationError struct {
	NodeIDs []program.NodeID
}

// Error implements the error interface.
func (e *CompilationError) Error() string {
	return fmt.Sprintf("no strategy matches nodes %v", e.NodeIDs)
}

// IsCompilationError returns true if the error is a strategy-match failure.
// Uses errors.As to handle wrapped errors.
func IsCompilationError(err error) bool {
	var ce *CompilationError
	return errors.As(err, &ce)
}
