// Package replay applies generated vectors against a behavioural model of
// the scan chain, standing in for the RTL simulation harness. It clocks a
// TAP controller per vector, shifts IR and DR chain registers, checks every
// non-don't-care TDO expectation and executes loop and matched-loop records
// with their declared bounds. Comments are collected as trace annotations.
package replay

import (
	"fmt"

	"github.com/chiplabs/vecgen/pkg/jtag"
	"github.com/chiplabs/vecgen/pkg/tap"
	"github.com/chiplabs/vecgen/pkg/vector"
)

// TapDef describes one tap of the modelled chain, in scan order.
type TapDef struct {
	Name   string
	IRSize int
}

// Mismatch records a TDO compare failure at a given cycle.
type Mismatch struct {
	Cycle   int
	Want    byte
	Got     byte
	Comment string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("cycle %d: tdo %c, expected %c (%s)", m.Cycle, m.Got, m.Want, m.Comment)
}

// Result aggregates one replay run.
type Result struct {
	Cycles     int
	Mismatches []Mismatch
	Trace      []string
}

// OK reports whether the run completed without compare failures.
func (r *Result) OK() bool {
	return len(r.Mismatches) == 0
}

// Engine is the chain model. The data path convention matches the driver:
// segment order equals tap order and bits latch in stream order, so the IR
// segment a caller shifted for tap k can be read back with LatchedIR(k).
type Engine struct {
	space   *vector.PinSpace
	taps    []TapDef
	machine *tap.Machine

	irChain []byte // live IR shift register, one byte per bit
	irLatch []byte // instruction latched at Update-IR
	drChain []byte // bypass data path, one bit per tap

	cycle int
}

// New builds an engine over the same pin space the vectors were generated
// from and the declared chain topology.
func New(space *vector.PinSpace, taps []TapDef) (*Engine, error) {
	if len(taps) == 0 {
		return nil, fmt.Errorf("replay: chain needs at least one tap")
	}
	for _, pin := range []string{jtag.PinTCK, jtag.PinTMS, jtag.PinTDI, jtag.PinTDO, jtag.PinTRST} {
		if _, ok := space.Resolve(pin); !ok {
			return nil, &vector.UnknownPinError{Ref: pin}
		}
	}
	total := 0
	for _, def := range taps {
		if def.IRSize < 1 {
			return nil, fmt.Errorf("replay: tap %q has invalid IR size %d", def.Name, def.IRSize)
		}
		total += def.IRSize
	}
	return &Engine{
		space:   space,
		taps:    taps,
		machine: tap.NewMachine(),
		irChain: make([]byte, total),
		irLatch: make([]byte, total),
		drChain: make([]byte, len(taps)),
	}, nil
}

// Run replays a vector sequence from the engine's current state.
func (e *Engine) Run(vecs []vector.Vector) (*Result, error) {
	res := &Result{}
	if err := e.apply(vecs, res); err != nil {
		return nil, err
	}
	res.Cycles = e.cycle
	return res, nil
}

// LatchedIR returns the instruction bits last latched into the given tap's
// instruction register, in stream order.
func (e *Engine) LatchedIR(position int) (string, error) {
	if position < 0 || position >= len(e.taps) {
		return "", fmt.Errorf("replay: no tap at position %d", position)
	}
	start := 0
	for _, def := range e.taps[:position] {
		start += def.IRSize
	}
	return string(e.irLatch[start : start+e.taps[position].IRSize]), nil
}

// State reports the modelled TAP controller state.
func (e *Engine) State() tap.State {
	return e.machine.State()
}

func (e *Engine) apply(vecs []vector.Vector, res *Result) error {
	for _, vec := range vecs {
		switch v := vec.(type) {
		case *vector.Normal:
			if err := e.applyNormal(v, res); err != nil {
				return err
			}
		case *vector.Loop:
			for i := 0; i < v.Repeat; i++ {
				if err := e.apply(v.Body, res); err != nil {
					return err
				}
			}
		case *vector.MatchedLoop:
			if err := e.applyMatchedLoop(v, res); err != nil {
				return err
			}
		default:
			return fmt.Errorf("replay: unknown vector variant %T", vec)
		}
	}
	return nil
}

// applyMatchedLoop retries the condition block, interleaving the idle block
// on failure, exactly as the tester sequencer would. Mismatches only count
// against the run when the final attempt still fails.
func (e *Engine) applyMatchedLoop(v *vector.MatchedLoop, res *Result) error {
	for attempt := 1; attempt <= v.Retries; attempt++ {
		trial := &Result{}
		if err := e.apply(v.Cond, trial); err != nil {
			return err
		}
		res.Trace = append(res.Trace, trial.Trace...)
		if len(trial.Mismatches) == 0 {
			return nil
		}
		if attempt == v.Retries {
			res.Mismatches = append(res.Mismatches, trial.Mismatches...)
			return nil
		}
		if err := e.apply(v.Idle, res); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) applyNormal(v *vector.Normal, res *Result) error {
	if len(v.PinStates) != e.space.Len() {
		return fmt.Errorf("replay: vector carries %d pin states, pin space declares %d", len(v.PinStates), e.space.Len())
	}
	if v.Comment != "" {
		res.Trace = append(res.Trace, fmt.Sprintf("cycle %d: %s", e.cycle, v.Comment))
	}
	for i := 0; i < v.Repeat; i++ {
		e.cycle++
		e.step(v, res)
	}
	return nil
}

func (e *Engine) step(v *vector.Normal, res *Result) {
	if state(v, jtag.PinTRST) == '0' {
		// Asynchronous test reset overrides the clocked walk.
		for e.machine.State() != tap.TestLogicReset {
			e.machine.Clock(true)
		}
	}
	if state(v, jtag.PinTCK) != '1' {
		return
	}

	prev := e.machine.State()
	tms := state(v, jtag.PinTMS) == '1'
	next := e.machine.Clock(tms)

	var out byte = 'X'
	switch prev {
	case tap.ShiftIR:
		out = shiftChain(e.irChain, state(v, jtag.PinTDI))
	case tap.ShiftDR:
		out = shiftChain(e.drChain, state(v, jtag.PinTDI))
	}

	switch next {
	case tap.CaptureIR:
		e.captureIR()
	case tap.CaptureDR:
		for i := range e.drChain {
			e.drChain[i] = '0'
		}
	case tap.UpdateIR:
		copy(e.irLatch, e.irChain)
	}

	want := state(v, jtag.PinTDO)
	if want != 'X' && want != 'x' && want != out {
		res.Mismatches = append(res.Mismatches, Mismatch{
			Cycle:   e.cycle,
			Want:    want,
			Got:     out,
			Comment: v.Comment,
		})
	}
}

// captureIR loads the mandatory IEEE capture pattern into every tap's IR
// segment: the first bit to leave the segment reads 1, the second 0.
func (e *Engine) captureIR() {
	offset := 0
	for _, def := range e.taps {
		for i := 0; i < def.IRSize; i++ {
			e.irChain[offset+i] = '0'
		}
		e.irChain[offset] = '1'
		if def.IRSize > 1 {
			e.irChain[offset+1] = '0'
		}
		offset += def.IRSize
	}
}

// shiftChain advances the data path by one bit: the stream-order front bit
// leaves toward TDO while the TDI level enters at the back.
func shiftChain(chain []byte, tdi byte) byte {
	out := chain[0]
	copy(chain, chain[1:])
	chain[len(chain)-1] = tdi
	return out
}

func state(v *vector.Normal, pin string) byte {
	return v.PinStates[pin]
}
