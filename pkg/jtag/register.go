package jtag

import (
	"fmt"
	"strings"

	"github.com/chiplabs/vecgen/pkg/vector"
)

// Tap is the opaque handle a chip-specific tap extension holds onto. It
// identifies one position on the scan chain and carries that tap's IR width;
// everything else about the chain stays inside the driver, so an extension
// never sees its siblings.
type Tap struct {
	name     string
	irSize   int
	position int
	driver   *Driver
	regs     []Register
}

// Name returns the human readable tap name.
func (t *Tap) Name() string { return t.name }

// IRSize returns the tap's instruction register width in bits.
func (t *Tap) IRSize() int { return t.irSize }

// Position returns the tap's index on the scan chain, 0 being the first tap
// the data-in signal enters.
func (t *Tap) Position() int { return t.position }

// Register names a data register reachable through this tap: the IR opcode
// that selects it and the register's width in bits. A DRSize of zero marks a
// register whose width depends on the transaction (burst style registers).
type Register struct {
	Name     string
	IROpcode string
	DRSize   int
}

// Bypass returns the tap's BYPASS register: the all-ones opcode selecting
// the single-bit pass-through path.
func (t *Tap) Bypass() Register {
	return Register{
		Name:     "BYPASS",
		IROpcode: strings.Repeat("1", t.irSize),
		DRSize:   1,
	}
}

// AddRegister declares a named register on this tap, validating the opcode
// against the tap's IR width.
func (t *Tap) AddRegister(name, irOpcode string, drSize int) (Register, error) {
	if len(irOpcode) != t.irSize {
		return Register{}, &BitLengthMismatchError{Tap: t.name, Want: t.irSize, Got: len(irOpcode)}
	}
	if err := validateBits(irOpcode); err != nil {
		return Register{}, err
	}
	reg := Register{Name: name, IROpcode: irOpcode, DRSize: drSize}
	t.regs = append(t.regs, reg)
	return reg, nil
}

// SetIR loads an instruction into this tap, bypassing all siblings.
func (t *Tap) SetIR(bits, comment string) ([]vector.Vector, error) {
	return t.driver.SetIR(t, bits, comment)
}

// SetDR shifts a data register value into this tap, assuming siblings are
// parked in BYPASS.
func (t *Tap) SetDR(bits, expected, comment string) ([]vector.Vector, error) {
	return t.driver.SetDR(t, bits, expected, comment)
}

// EnterShiftDR brings the controller into Shift-DR and clocks one bypass bit
// for every tap ahead of this one on the chain, leaving the shift aligned on
// this tap's data register. Burst-style protocols use this together with
// ShiftDR when a single SetDR call cannot express the transaction.
func (t *Tap) EnterShiftDR(comment string) ([]vector.Vector, error) {
	vecs := t.driver.GotoShiftDR(comment)
	if t.position > 0 {
		pad, err := t.driver.Shift(strings.Repeat("0", t.position), "", "", true)
		if err != nil {
			return nil, err
		}
		vecs = append(vecs, pad...)
	}
	return vecs, nil
}

// ShiftDR clocks raw bits through the data path while the controller sits in
// Shift-DR. The caller owns bit accounting past this tap's register; bypass
// bits of taps further down the chain can be left unshifted when exiting.
func (t *Tap) ShiftDR(bits, expected, comment string, noexit bool) ([]vector.Vector, error) {
	return t.driver.Shift(bits, expected, comment, noexit)
}

// Idle returns count idle vectors from the owning driver.
func (t *Tap) Idle(count int, comment string) []vector.Vector {
	return t.driver.IdleVectors(count, comment)
}

// IdleVector returns one idle vector with a repeat count.
func (t *Tap) IdleVector(repeat int, comment string) (*vector.Normal, error) {
	return t.driver.IdleVector(repeat, comment)
}

// WriteReg selects the register through the IR and shifts the value into it.
func (t *Tap) WriteReg(reg Register, value, comment string) ([]vector.Vector, error) {
	if reg.DRSize > 0 && len(value) != reg.DRSize {
		return nil, &BitLengthMismatchError{Tap: t.name, Want: reg.DRSize, Got: len(value)}
	}
	vecs, err := t.SetIR(reg.IROpcode, comment)
	if err != nil {
		return nil, err
	}
	write, err := t.SetDR(value, "", fmt.Sprintf("write 0b%s to %s", value, reg.Name))
	if err != nil {
		return nil, err
	}
	return append(vecs, write...), nil
}

// ReadReg selects the register through the IR and shifts zeroes through it
// while comparing TDO against the expected value. The read length defaults
// to the register's declared width.
func (t *Tap) ReadReg(reg Register, length int, expected, comment string) ([]vector.Vector, error) {
	if length == 0 {
		length = reg.DRSize
	}
	if length < 1 {
		return nil, fmt.Errorf("jtag: register %s of tap %q has no defined read length", reg.Name, t.name)
	}
	if expected != "" && len(expected) != length {
		return nil, &BitLengthMismatchError{Tap: t.name, Want: length, Got: len(expected)}
	}
	vecs, err := t.SetIR(reg.IROpcode, comment)
	if err != nil {
		return nil, err
	}
	note := fmt.Sprintf("read %s", reg.Name)
	if expected != "" {
		note += fmt.Sprintf(" expecting 0b%s", expected)
	}
	read, err := t.SetDR(strings.Repeat("0", length), expected, note)
	if err != nil {
		return nil, err
	}
	return append(vecs, read...), nil
}
