package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidName is returned when a function or state name is not a valid identifier.
var ErrInvalidName = errors.New("invalid name")

// ErrEmptyFlow is returned when a flow (or a tool) contributes no states.
var ErrEmptyFlow = errors.New("flow has no states")

// ErrNoStartState is returned when StartAt names a state that does not exist.
var ErrNoStartState = errors.New("start state not found")

// ErrNoTerminalState is returned when a flow does not have exactly one terminal state.
var ErrNoTerminalState = errors.New("flow must have exactly one terminal state")

// ErrDanglingNext is returned when a Next pointer targets a state outside its flow.
var ErrDanglingNext = errors.New("next targets unknown state")

// ErrUnreachableState is returned when a state is not on the Next chain from the entry.
var ErrUnreachableState = errors.New("state unreachable from entry")

// ErrInvalidState is returned when a state entry is missing or malformed.
var ErrInvalidState = errors.New("invalid state")

// ErrInvalidSelector is returned when a modifier selector does not set exactly one field.
var ErrInvalidSelector = errors.New("invalid selector")

// ErrUnknownSelector is returned when a modifier selector matches no state.
var ErrUnknownSelector = errors.New("selector matches no state")

// ErrInvalidPath is returned when a modifier field path cannot be parsed.
var ErrInvalidPath = errors.New("invalid field path")

// ErrProtectedField is returned when a modifier tries to rewrite the flow wiring.
var ErrProtectedField = errors.New("field cannot be modified")

// ErrToolNotFound is returned when a tool reference cannot be resolved.
var ErrToolNotFound = errors.New("tool not found")

// ErrFlowNotFound is returned when a stored flow cannot be found.
var ErrFlowNotFound = errors.New("flow not found")

// CompileError locates a failure inside one of the compiled flows.
type CompileError struct {
	// Flow is the position of the offending flow in the compile input.
	Flow int
	// State is the offending state name, if any.
	State string
	Err   error
}

func (e *CompileError) Error() string {
	if e.State != "" {
		return fmt.Sprintf("flow %d: state %q: %v", e.Flow, e.State, e.Err)
	}
	return fmt.Sprintf("flow %d: %v", e.Flow, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}
