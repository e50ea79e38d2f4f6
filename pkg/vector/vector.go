// Package vector holds the target-independent intermediate representation
// for tester stimuli: a pin space describing the device pads, a builder that
// turns pin-state mutations into vectors, and the three-variant vector union
// consumed by pattern writers and replay harnesses.
package vector

// Vector is the closed union of sequencer records. Exactly three variants
// exist: Normal, Loop and MatchedLoop. Consumers type-switch over them;
// there is no fourth case to handle.
type Vector interface {
	isVector()
}

// Normal is one tester cycle: a complete snapshot of every declared pin,
// applied Repeat times. PinStates always carries one entry per pin of the
// originating pin space, keyed by logical name.
type Normal struct {
	PinStates map[string]byte
	Repeat    int
	Comment   string
}

func (*Normal) isVector() {}

// Loop applies Body in order, Repeat times. The body is stored verbatim and
// never flattened.
type Loop struct {
	Body   []Vector
	Repeat int
}

func (*Loop) isVector() {}

// MatchedLoop is the sequencer retry construct: Cond is applied and, on a
// compare mismatch, Idle is applied before Cond is tried again, up to
// Retries attempts. The retry count is an upper bound carried as data; the
// consuming tester or simulator executes it.
type MatchedLoop struct {
	Cond    []Vector
	Idle    []Vector
	Retries int
}

func (*MatchedLoop) isVector() {}

// NewLoop builds a Loop record, rejecting repeat counts below one.
func NewLoop(body []Vector, repeat int) (*Loop, error) {
	if repeat < 1 {
		return nil, &RepeatCountError{Count: repeat}
	}
	return &Loop{Body: body, Repeat: repeat}, nil
}

// NewMatchedLoop builds a MatchedLoop record. Retry counts below one are
// rejected, as are matched loops nested inside either block.
func NewMatchedLoop(cond, idle []Vector, retries int) (*MatchedLoop, error) {
	if retries < 1 {
		return nil, &RetryCountError{Count: retries}
	}
	if containsMatchedLoop(cond) || containsMatchedLoop(idle) {
		return nil, ErrNestedMatchedLoop
	}
	return &MatchedLoop{Cond: cond, Idle: idle, Retries: retries}, nil
}

func containsMatchedLoop(vecs []Vector) bool {
	for _, vec := range vecs {
		switch v := vec.(type) {
		case *MatchedLoop:
			return true
		case *Loop:
			if containsMatchedLoop(v.Body) {
				return true
			}
		}
	}
	return false
}

// Count returns the number of tester cycles a sequence expands to, with
// matched loops counted at a single condition pass.
func Count(vecs []Vector) int {
	total := 0
	for _, vec := range vecs {
		switch v := vec.(type) {
		case *Normal:
			total += v.Repeat
		case *Loop:
			total += v.Repeat * Count(v.Body)
		case *MatchedLoop:
			total += Count(v.Cond)
		}
	}
	return total
}
