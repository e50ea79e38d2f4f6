package vector

import (
	"errors"
	"fmt"
)

// ErrNestedMatchedLoop rejects a matched loop inside another matched loop's
// condition or idle block. The HP93000 sequencer cannot parse nested MACT
// statements, so the construct is refused when built rather than when written.
var ErrNestedMatchedLoop = errors.New("vector: matched loops cannot be nested")

// UnknownPinError reports a pin reference that matches neither a logical nor
// a physical name of the pin space.
type UnknownPinError struct {
	Ref string
}

func (e *UnknownPinError) Error() string {
	return fmt.Sprintf("vector: unknown pin %q", e.Ref)
}

// DuplicatePinNameError reports a collision between pin names during pin
// space construction.
type DuplicatePinNameError struct {
	Name string
}

func (e *DuplicatePinNameError) Error() string {
	return fmt.Sprintf("vector: duplicate pin name %q", e.Name)
}

// InvalidStateError reports a state character outside the printable alphabet.
type InvalidStateError struct {
	Pin   string
	State byte
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("vector: invalid state character %q for pin %q", e.State, e.Pin)
}

// RepeatCountError reports a vector or loop repeat count below one.
type RepeatCountError struct {
	Count int
}

func (e *RepeatCountError) Error() string {
	return fmt.Sprintf("vector: repeat count %d is below one", e.Count)
}

// RetryCountError reports a matched loop retry count below one.
type RetryCountError struct {
	Count int
}

func (e *RetryCountError) Error() string {
	return fmt.Sprintf("vector: retry count %d is below one", e.Count)
}
