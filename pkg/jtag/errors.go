package jtag

import (
	"errors"
	"fmt"
)

// ErrChainFrozen rejects topology changes after the first shift operation.
// The chain-wide bit accounting depends on a fixed tap order, so the driver
// freezes the chain instead of relying on caller discipline.
var ErrChainFrozen = errors.New("jtag: chain topology is frozen after the first shift")

// BitLengthMismatchError reports a bit string whose length does not match
// the register it targets.
type BitLengthMismatchError struct {
	Tap  string
	Want int
	Got  int
}

func (e *BitLengthMismatchError) Error() string {
	if e.Tap != "" {
		return fmt.Sprintf("jtag: tap %q expects %d bits, got %d", e.Tap, e.Want, e.Got)
	}
	return fmt.Sprintf("jtag: expected %d bits, got %d", e.Want, e.Got)
}

// UnknownTapError reports an operation against a tap that was never added to
// the driver's chain.
type UnknownTapError struct {
	Name string
}

func (e *UnknownTapError) Error() string {
	return fmt.Sprintf("jtag: tap %q is not part of the chain", e.Name)
}

func validateBits(bits string) error {
	for i := 0; i < len(bits); i++ {
		switch bits[i] {
		case '0', '1':
		default:
			return fmt.Errorf("jtag: invalid bit character %q at position %d in %q", bits[i], i, bits)
		}
	}
	return nil
}

func validateExpected(expected string) error {
	for i := 0; i < len(expected); i++ {
		switch expected[i] {
		case '0', '1', 'X', 'x':
		default:
			return fmt.Errorf("jtag: invalid expected character %q at position %d in %q", expected[i], i, expected)
		}
	}
	return nil
}

// allDontCare reports whether an expected string carries no real comparison.
func allDontCare(expected string) bool {
	for i := 0; i < len(expected); i++ {
		if expected[i] != 'X' && expected[i] != 'x' {
			return false
		}
	}
	return true
}
