package vector

// Builder owns the live pin-state snapshot over one pin space. Drivers set
// individual pins and call Vector to capture the full snapshot; pins keep
// their value between vectors, so only changed pins need to be re-assigned.
//
// A Builder is single-writer state for one generation session and must not
// be shared between concurrent call sites.
type Builder struct {
	space *PinSpace
	state map[string]byte
}

// NewBuilder validates the pin declarations and returns a builder with every
// pin initialized to its declared default.
func NewBuilder(decls map[string]PinDecl) (*Builder, error) {
	space, err := NewPinSpace(decls)
	if err != nil {
		return nil, err
	}
	b := &Builder{space: space}
	b.Init()
	return b, nil
}

// Space exposes the pin space the builder was constructed over.
func (b *Builder) Space() *PinSpace {
	return b.space
}

// Init restores every pin to its declared default value.
func (b *Builder) Init() {
	b.state = make(map[string]byte, b.space.Len())
	for _, logical := range b.space.names {
		b.state[logical] = b.space.decls[logical].Default
	}
}

// Set assigns a state character to the pin addressed by logical or physical
// name. Only the targeted pin changes.
func (b *Builder) Set(ref string, state byte) error {
	logical, ok := b.space.Resolve(ref)
	if !ok {
		return &UnknownPinError{Ref: ref}
	}
	if !printableState(state) {
		return &InvalidStateError{Pin: logical, State: state}
	}
	b.state[logical] = state
	return nil
}

// SetBit assigns a binary level to a pin, mapping 0 and 1 to the state
// characters '0' and '1'.
func (b *Builder) SetBit(ref string, bit int) error {
	switch bit {
	case 0:
		return b.Set(ref, '0')
	case 1:
		return b.Set(ref, '1')
	default:
		logical, _ := b.space.Resolve(ref)
		return &InvalidStateError{Pin: logical, State: byte('0' + bit)}
	}
}

// Get reads the current state of a pin by logical or physical name.
func (b *Builder) Get(ref string) (byte, error) {
	logical, ok := b.space.Resolve(ref)
	if !ok {
		return 0, &UnknownPinError{Ref: ref}
	}
	return b.state[logical], nil
}

// Vector captures the current snapshot as a Normal vector with repeat 1.
// The snapshot is copied; later Set calls do not alter emitted vectors.
func (b *Builder) Vector(comment string) *Normal {
	states := make(map[string]byte, len(b.state))
	for pin, state := range b.state {
		states[pin] = state
	}
	return &Normal{PinStates: states, Repeat: 1, Comment: comment}
}

// VectorN captures the current snapshot with an explicit repeat count. The
// tester stores the repeat in vector memory, so repeating one vector ten
// thousand times costs a single vector entry.
func (b *Builder) VectorN(repeat int, comment string) (*Normal, error) {
	if repeat < 1 {
		return nil, &RepeatCountError{Count: repeat}
	}
	vec := b.Vector(comment)
	vec.Repeat = repeat
	return vec, nil
}
