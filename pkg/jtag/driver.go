// Package jtag generates bitbang stimulus vectors for a multi-tap scan
// chain. The Driver walks the TAP controller state machine, encodes every
// clock cycle as one vector, and pads chain-wide IR and DR shifts so that a
// single tap can be addressed without knowledge of its siblings.
package jtag

import (
	"fmt"
	"strings"

	"github.com/chiplabs/vecgen/pkg/tap"
	"github.com/chiplabs/vecgen/pkg/vector"
)

// Logical pin names the driver expects in the builder's pin space. The
// physical pad names behind them are free to differ per chip.
const (
	PinTCK  = "tck"
	PinTMS  = "tms"
	PinTDI  = "tdi"
	PinTDO  = "tdo"
	PinTRST = "trst"
)

// DontCare is the state character for an unchecked TDO sample.
const DontCare byte = 'X'

var jtagPins = []string{PinTCK, PinTMS, PinTDI, PinTDO, PinTRST}

// Driver composes a vector builder with an ordered list of taps. Every
// operation returns the vectors it produced, in application order; the only
// builder state it touches are the five JTAG pins.
type Driver struct {
	builder *vector.Builder
	machine *tap.Machine
	chain   []*Tap
	frozen  bool
}

// NewDriver wires a driver onto a builder. The builder's pin space must
// declare all five logical JTAG pins.
func NewDriver(builder *vector.Builder) (*Driver, error) {
	for _, pin := range jtagPins {
		if _, ok := builder.Space().Resolve(pin); !ok {
			return nil, &vector.UnknownPinError{Ref: pin}
		}
	}
	return &Driver{
		builder: builder,
		machine: tap.NewMachine(),
	}, nil
}

// Builder exposes the underlying vector builder so chip code can drive
// non-JTAG pins between JTAG operations.
func (d *Driver) Builder() *vector.Builder {
	return d.builder
}

// State reports the TAP controller state the driver tracks for the chain.
func (d *Driver) State() tap.State {
	return d.machine.State()
}

// AddTap appends a tap to the scan chain. Taps must be added in the order
// TDI traverses them: the first tap added is the first one the data-in
// signal enters. Once any shift has been generated the topology is frozen.
func (d *Driver) AddTap(name string, irSize int) (*Tap, error) {
	if d.frozen {
		return nil, ErrChainFrozen
	}
	if irSize < 1 {
		return nil, fmt.Errorf("jtag: tap %q needs an IR size of at least one bit, got %d", name, irSize)
	}
	t := &Tap{
		name:     name,
		irSize:   irSize,
		position: len(d.chain),
		driver:   d,
	}
	d.chain = append(d.chain, t)
	return t, nil
}

// IRLength returns the total instruction register length of the chain.
func (d *Driver) IRLength() int {
	total := 0
	for _, t := range d.chain {
		total += t.irSize
	}
	return total
}

// Taps returns the chain's tap names in scan order.
func (d *Driver) Taps() []string {
	names := make([]string, len(d.chain))
	for i, t := range d.chain {
		names[i] = t.name
	}
	return names
}

// SetJTAGDefaults parks the five JTAG pins at their idle levels in the
// builder without emitting a vector. Non-JTAG pins are untouched.
func (d *Driver) SetJTAGDefaults() {
	d.builder.Set(PinTCK, '0')
	d.builder.Set(PinTRST, '1')
	d.builder.Set(PinTMS, '0')
	d.builder.Set(PinTDI, '0')
	d.builder.Set(PinTDO, DontCare)
}

// IdleVector returns a single vector holding the interface idle with the
// given repeat count: clock off, mode select low.
func (d *Driver) IdleVector(repeat int, comment string) (*vector.Normal, error) {
	d.SetJTAGDefaults()
	return d.builder.VectorN(repeat, comment)
}

// IdleVectors returns count idle vectors, annotating the first with the
// comment. Use IdleVector's repeat attribute instead when vector memory
// matters.
func (d *Driver) IdleVectors(count int, comment string) []vector.Vector {
	d.SetJTAGDefaults()
	vecs := make([]vector.Vector, 0, count)
	for i := 0; i < count; i++ {
		if i == 0 {
			vecs = append(vecs, d.builder.Vector(comment))
			continue
		}
		vecs = append(vecs, d.builder.Vector(""))
	}
	return vecs
}

// Reset returns vectors that bring the TAP controller to Test-Logic-Reset
// from any prior state and park it in Run-Test/Idle: TRST asserted while TMS
// is held high for five clocks, then one TMS-low clock. The output depends
// only on pin defaults, so a reset after arbitrary traffic is structurally
// identical to a reset on a fresh driver.
func (d *Driver) Reset(comment string) []vector.Vector {
	if comment == "" {
		comment = "JTAG reset"
	}
	d.SetJTAGDefaults()
	d.builder.Set(PinTRST, '0')
	d.builder.Set(PinTCK, '1')
	d.builder.Set(PinTMS, '1')

	vecs := make([]vector.Vector, 0, tap.ResetClocks+1)
	for i := range d.machine.Reset() {
		if i == 0 {
			vecs = append(vecs, d.builder.Vector(comment))
			continue
		}
		vecs = append(vecs, d.builder.Vector(""))
	}

	d.builder.Set(PinTRST, '1')
	d.builder.Set(PinTMS, '0')
	d.machine.Clock(false)
	vecs = append(vecs, d.builder.Vector("go to Run-Test/Idle"))
	return vecs
}

// GotoShiftIR emits one vector per TAP transition from the current state to
// Shift-IR, annotating the first with the comment.
func (d *Driver) GotoShiftIR(comment string) []vector.Vector {
	d.frozen = true
	return d.walkTo(tap.ShiftIR, comment)
}

// GotoShiftDR emits one vector per TAP transition from the current state to
// Shift-DR, annotating the first with the comment.
func (d *Driver) GotoShiftDR(comment string) []vector.Vector {
	d.frozen = true
	return d.walkTo(tap.ShiftDR, comment)
}

// GotoIdle walks the controller into Run-Test/Idle from wherever it sits.
func (d *Driver) GotoIdle(comment string) []vector.Vector {
	return d.walkTo(tap.RunTestIdle, comment)
}

func (d *Driver) walkTo(target tap.State, comment string) []vector.Vector {
	path, _ := d.machine.PathTo(target)
	d.SetJTAGDefaults()
	d.builder.Set(PinTCK, '1')
	vecs := make([]vector.Vector, 0, len(path))
	for i, tms := range path {
		d.builder.SetBit(PinTMS, boolBit(tms))
		if i == 0 {
			vecs = append(vecs, d.builder.Vector(comment))
			continue
		}
		vecs = append(vecs, d.builder.Vector(""))
	}
	return vecs
}

// Shift clocks the given bit string through the chain, one vector per bit in
// string order, with the TDO pin carrying the matching expected character
// (or don't-care). The controller must already sit in a shift state. Unless
// noexit is set, the last bit leaves the shift state and two further vectors
// walk through Update back to Run-Test/Idle.
func (d *Driver) Shift(bits, expected, comment string, noexit bool) ([]vector.Vector, error) {
	if err := validateBits(bits); err != nil {
		return nil, err
	}
	if expected != "" {
		if len(expected) != len(bits) {
			return nil, &BitLengthMismatchError{Want: len(bits), Got: len(expected)}
		}
		if err := validateExpected(expected); err != nil {
			return nil, err
		}
	}
	state := d.machine.State()
	if state != tap.ShiftIR && state != tap.ShiftDR {
		return nil, fmt.Errorf("jtag: shift issued in state %s", state)
	}
	compare := expected != "" && !allDontCare(expected)

	d.frozen = true
	d.SetJTAGDefaults()
	d.builder.Set(PinTCK, '1')
	vecs := make([]vector.Vector, 0, len(bits)+2)
	for i := 0; i < len(bits); i++ {
		d.builder.Set(PinTDI, bits[i])
		if compare {
			d.builder.Set(PinTDO, expected[i])
		}
		last := i == len(bits)-1
		tms := last && !noexit
		d.builder.SetBit(PinTMS, boolBit(tms))
		d.machine.Clock(tms)

		note := fmt.Sprintf("shift bit %c", bits[i])
		if compare {
			note += fmt.Sprintf(" expecting tdo %c", expected[i])
		}
		if i == 0 && comment != "" {
			note = comment + " / " + note
		}
		vecs = append(vecs, d.builder.Vector(note))
	}

	if !noexit {
		// Exit1 -> Update -> Run-Test/Idle, data pins back at idle.
		d.builder.Set(PinTDI, '0')
		d.builder.Set(PinTDO, DontCare)
		d.builder.Set(PinTMS, '1')
		d.machine.Clock(true)
		vecs = append(vecs, d.builder.Vector(fmt.Sprintf("go to %s", d.machine.State())))
		d.builder.Set(PinTMS, '0')
		d.machine.Clock(false)
		vecs = append(vecs, d.builder.Vector("go to Run-Test/Idle"))
	}
	return vecs, nil
}

// SetIR loads an instruction into one tap while every other tap receives its
// all-ones BYPASS opcode, keeping the chain-wide instruction register fully
// specified. Bits are shifted in string order: the first character of the
// target segment is the first bit clocked in.
func (d *Driver) SetIR(t *Tap, bits, comment string) ([]vector.Vector, error) {
	if err := d.checkTap(t); err != nil {
		return nil, err
	}
	if len(bits) != t.irSize {
		return nil, &BitLengthMismatchError{Tap: t.name, Want: t.irSize, Got: len(bits)}
	}
	if err := validateBits(bits); err != nil {
		return nil, err
	}
	var chain strings.Builder
	for _, elem := range d.chain {
		if elem == t {
			chain.WriteString(bits)
			continue
		}
		chain.WriteString(strings.Repeat("1", elem.irSize))
	}
	if comment == "" {
		comment = fmt.Sprintf("set IR of tap %s to 0b%s", t.name, bits)
	}
	vecs := d.GotoShiftIR(comment)
	shift, err := d.Shift(chain.String(), "", comment, false)
	if err != nil {
		return nil, err
	}
	return append(vecs, shift...), nil
}

// SetDR shifts a data register value into one tap, assuming every other tap
// is parked in BYPASS and therefore contributes exactly one flip-flop to the
// data path. An optional expected string of matching length is compared
// against TDO on the target's bits; bypass bits are never compared.
func (d *Driver) SetDR(t *Tap, bits, expected, comment string) ([]vector.Vector, error) {
	if err := d.checkTap(t); err != nil {
		return nil, err
	}
	if err := validateBits(bits); err != nil {
		return nil, err
	}
	if expected != "" {
		if len(expected) != len(bits) {
			return nil, &BitLengthMismatchError{Tap: t.name, Want: len(bits), Got: len(expected)}
		}
		if err := validateExpected(expected); err != nil {
			return nil, err
		}
	}
	var chain, expectChain strings.Builder
	for _, elem := range d.chain {
		if elem == t {
			chain.WriteString(bits)
			expectChain.WriteString(expected)
			continue
		}
		chain.WriteByte('0')
		expectChain.WriteByte(DontCare)
	}
	if comment == "" {
		comment = fmt.Sprintf("set DR of tap %s to 0b%s", t.name, bits)
		if expected != "" && !allDontCare(expected) {
			comment += fmt.Sprintf(" expecting 0b%s", expected)
		}
	}
	expectStr := ""
	if expected != "" {
		expectStr = expectChain.String()
	}
	vecs := d.GotoShiftDR(comment)
	shift, err := d.Shift(chain.String(), expectStr, comment, false)
	if err != nil {
		return nil, err
	}
	return append(vecs, shift...), nil
}

func (d *Driver) checkTap(t *Tap) error {
	if t == nil || t.driver != d {
		name := ""
		if t != nil {
			name = t.name
		}
		return &UnknownTapError{Name: name}
	}
	return nil
}

func boolBit(b bool) int {
	if b {
		return 1
	}
	return 0
}
