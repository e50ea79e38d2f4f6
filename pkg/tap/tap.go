// Package tap models the 16-state IEEE 1149.1 TAP controller. The model
// performs no I/O: it tracks the state a device's controller would be in and
// computes the TMS bit sequences needed to move between states, so a vector
// driver can encode each transition as one clock cycle.
package tap

import "fmt"

// State is one of the 16 defined TAP controller states.
type State uint8

const (
	TestLogicReset State = iota
	RunTestIdle
	SelectDRScan
	CaptureDR
	ShiftDR
	Exit1DR
	PauseDR
	Exit2DR
	UpdateDR
	SelectIRScan
	CaptureIR
	ShiftIR
	Exit1IR
	PauseIR
	Exit2IR
	UpdateIR

	numStates = 16
)

var stateNames = [numStates]string{
	"Test-Logic-Reset",
	"Run-Test/Idle",
	"Select-DR-Scan",
	"Capture-DR",
	"Shift-DR",
	"Exit1-DR",
	"Pause-DR",
	"Exit2-DR",
	"Update-DR",
	"Select-IR-Scan",
	"Capture-IR",
	"Shift-IR",
	"Exit1-IR",
	"Pause-IR",
	"Exit2-IR",
	"Update-IR",
}

func (s State) String() string {
	if int(s) < numStates {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// next[s] holds the successor state for TMS=0 and TMS=1.
var next = [numStates][2]State{
	TestLogicReset: {RunTestIdle, TestLogicReset},
	RunTestIdle:    {RunTestIdle, SelectDRScan},
	SelectDRScan:   {CaptureDR, SelectIRScan},
	CaptureDR:      {ShiftDR, Exit1DR},
	ShiftDR:        {ShiftDR, Exit1DR},
	Exit1DR:        {PauseDR, UpdateDR},
	PauseDR:        {PauseDR, Exit2DR},
	Exit2DR:        {ShiftDR, UpdateDR},
	UpdateDR:       {RunTestIdle, SelectDRScan},
	SelectIRScan:   {CaptureIR, TestLogicReset},
	CaptureIR:      {ShiftIR, Exit1IR},
	ShiftIR:        {ShiftIR, Exit1IR},
	Exit1IR:        {PauseIR, UpdateIR},
	PauseIR:        {PauseIR, Exit2IR},
	Exit2IR:        {ShiftIR, UpdateIR},
	UpdateIR:       {RunTestIdle, SelectDRScan},
}

// Next returns the state reached by one TCK cycle with the given TMS level.
func Next(s State, tms bool) State {
	if tms {
		return next[s][1]
	}
	return next[s][0]
}

// ResetClocks is the number of TMS-high clock cycles guaranteed to bring the
// controller to Test-Logic-Reset from any state.
const ResetClocks = 5

// Machine tracks the controller state across clock cycles.
type Machine struct {
	state State
}

// NewMachine returns a machine in Test-Logic-Reset, the power-up state.
func NewMachine() *Machine {
	return &Machine{state: TestLogicReset}
}

// State reports the current controller state.
func (m *Machine) State() State {
	return m.state
}

// Clock advances one TCK cycle with the given TMS level and returns the new
// state.
func (m *Machine) Clock(tms bool) State {
	m.state = Next(m.state, tms)
	return m.state
}

// Reset returns the TMS sequence of ResetClocks high cycles and advances the
// machine to Test-Logic-Reset. The sequence works from any starting state.
func (m *Machine) Reset() []bool {
	seq := make([]bool, ResetClocks)
	for i := range seq {
		seq[i] = true
		m.Clock(true)
	}
	return seq
}

// PathTo computes the shortest TMS sequence from the current state to the
// target and advances the machine along it. Reaching a state that is already
// current yields an empty sequence.
func (m *Machine) PathTo(target State) ([]bool, error) {
	if int(target) >= numStates {
		return nil, fmt.Errorf("tap: invalid target state %d", uint8(target))
	}
	path := shortestPath(m.state, target)
	for _, tms := range path {
		m.Clock(tms)
	}
	return path, nil
}

// shortestPath runs a breadth-first search over the state diagram. The graph
// has 16 nodes with out-degree 2, so the search is trivially cheap.
func shortestPath(from, to State) []bool {
	if from == to {
		return nil
	}
	type node struct {
		state State
		tms   []bool
	}
	queue := []node{{state: from}}
	visited := [numStates]bool{}
	visited[from] = true

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, tms := range []bool{false, true} {
			succ := Next(cur.state, tms)
			if visited[succ] {
				continue
			}
			path := append(append([]bool{}, cur.tms...), tms)
			if succ == to {
				return path
			}
			visited[succ] = true
			queue = append(queue, node{state: succ, tms: path})
		}
	}
	// Unreachable: the TAP diagram is strongly connected.
	return nil
}
