package tap

import (
	"testing"
)

func TestNextTransitions(t *testing.T) {
	cases := []struct {
		from State
		tms  bool
		want State
	}{
		{TestLogicReset, true, TestLogicReset},
		{TestLogicReset, false, RunTestIdle},
		{RunTestIdle, false, RunTestIdle},
		{RunTestIdle, true, SelectDRScan},
		{SelectDRScan, true, SelectIRScan},
		{SelectIRScan, true, TestLogicReset},
		{CaptureDR, false, ShiftDR},
		{ShiftDR, false, ShiftDR},
		{ShiftDR, true, Exit1DR},
		{Exit1DR, true, UpdateDR},
		{Exit2DR, false, ShiftDR},
		{PauseIR, false, PauseIR},
		{UpdateIR, false, RunTestIdle},
		{UpdateIR, true, SelectDRScan},
	}
	for _, c := range cases {
		if got := Next(c.from, c.tms); got != c.want {
			t.Errorf("Next(%s, %v) = %s, want %s", c.from, c.tms, got, c.want)
		}
	}
}

func TestStateString(t *testing.T) {
	if TestLogicReset.String() != "Test-Logic-Reset" {
		t.Errorf("TestLogicReset.String() = %q", TestLogicReset.String())
	}
	if ShiftIR.String() != "Shift-IR" {
		t.Errorf("ShiftIR.String() = %q", ShiftIR.String())
	}
	if State(200).String() != "State(200)" {
		t.Errorf("out of range State.String() = %q", State(200).String())
	}
}

func TestResetFromEveryState(t *testing.T) {
	for s := State(0); s < numStates; s++ {
		m := &Machine{state: s}
		seq := m.Reset()
		if len(seq) != ResetClocks {
			t.Fatalf("Reset from %s returned %d clocks, want %d", s, len(seq), ResetClocks)
		}
		for i, tms := range seq {
			if !tms {
				t.Errorf("Reset clock %d has TMS low", i)
			}
		}
		if m.State() != TestLogicReset {
			t.Errorf("Reset from %s ends in %s", s, m.State())
		}
	}
}

func TestPathToIdle(t *testing.T) {
	m := NewMachine()
	path, err := m.PathTo(RunTestIdle)
	if err != nil {
		t.Fatalf("PathTo failed: %v", err)
	}
	if len(path) != 1 || path[0] {
		t.Errorf("path = %v, want [false]", path)
	}
	if m.State() != RunTestIdle {
		t.Errorf("machine in %s after walk", m.State())
	}
}

func TestPathToShiftDR(t *testing.T) {
	m := NewMachine()
	m.Clock(false) // Run-Test/Idle
	path, err := m.PathTo(ShiftDR)
	if err != nil {
		t.Fatalf("PathTo failed: %v", err)
	}
	want := []bool{true, false, false}
	if len(path) != len(want) {
		t.Fatalf("path = %v, want %v", path, want)
	}
	for i := range want {
		if path[i] != want[i] {
			t.Fatalf("path = %v, want %v", path, want)
		}
	}
	if m.State() != ShiftDR {
		t.Errorf("machine in %s after walk", m.State())
	}
}

func TestPathToSameState(t *testing.T) {
	m := NewMachine()
	path, err := m.PathTo(TestLogicReset)
	if err != nil {
		t.Fatalf("PathTo failed: %v", err)
	}
	if len(path) != 0 {
		t.Errorf("path to current state = %v, want empty", path)
	}
}

func TestPathToIsShortest(t *testing.T) {
	// Shift-IR back to Shift-DR crosses Exit1-IR and Update-IR rather than
	// detouring through Run-Test/Idle.
	m := &Machine{state: ShiftIR}
	path, err := m.PathTo(ShiftDR)
	if err != nil {
		t.Fatalf("PathTo failed: %v", err)
	}
	if len(path) != 5 {
		t.Errorf("path length = %d, want 5 (%v)", len(path), path)
	}
	if m.State() != ShiftDR {
		t.Errorf("machine in %s after walk", m.State())
	}
}

func TestPathToInvalidTarget(t *testing.T) {
	m := NewMachine()
	if _, err := m.PathTo(State(42)); err == nil {
		t.Errorf("PathTo accepted an invalid state")
	}
}
