package vector

// Compress merges runs of adjacent Normal vectors with identical pin states
// and comments by summing their repeat counts. Loop bodies are compressed
// recursively; matched loops are passed through untouched. The input slice
// is not modified and merged records are fresh copies.
func Compress(vecs []Vector) []Vector {
	var out []Vector
	var run *Normal

	flush := func() {
		if run != nil {
			out = append(out, run)
			run = nil
		}
	}

	for _, vec := range vecs {
		switch v := vec.(type) {
		case *Normal:
			if run != nil && run.Comment == v.Comment && sameStates(run.PinStates, v.PinStates) {
				run.Repeat += v.Repeat
				continue
			}
			flush()
			run = cloneNormal(v)
		case *Loop:
			flush()
			out = append(out, &Loop{Body: Compress(v.Body), Repeat: v.Repeat})
		case *MatchedLoop:
			flush()
			out = append(out, v)
		}
	}
	flush()
	return out
}

// PadToEight appends copies of pad until the sequence length is a multiple
// of eight. The HP93000 sequencer requires matched-loop condition and idle
// blocks to hold an exact multiple of eight vectors.
func PadToEight(vecs []Vector, pad *Normal) []Vector {
	out := make([]Vector, len(vecs))
	copy(out, vecs)
	for len(out)%8 != 0 {
		out = append(out, cloneNormal(pad))
	}
	return out
}

func cloneNormal(v *Normal) *Normal {
	states := make(map[string]byte, len(v.PinStates))
	for pin, state := range v.PinStates {
		states[pin] = state
	}
	return &Normal{PinStates: states, Repeat: v.Repeat, Comment: v.Comment}
}

func sameStates(a, b map[string]byte) bool {
	if len(a) != len(b) {
		return false
	}
	for pin, state := range a {
		if b[pin] != state {
			return false
		}
	}
	return true
}
