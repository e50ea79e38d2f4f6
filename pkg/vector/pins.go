package vector

import (
	"sort"
)

// Direction describes how the tester drives or samples a pin.
type Direction string

const (
	DirInput  Direction = "input"
	DirOutput Direction = "output"
	DirInOut  Direction = "inout"
)

// PinDecl declares a single pin of the device under test. The logical name
// used to address the pin lives in the PinSpace map key; Name is the physical
// pad name as it appears in the design and in emitted pattern files.
type PinDecl struct {
	Name    string
	Default byte
	Dir     Direction
}

// PinSpace is the immutable set of pin declarations a Builder operates on.
// Both logical and physical names resolve to the same pin, so a declaration
// table is validated once for global uniqueness at construction instead of on
// every access.
type PinSpace struct {
	decls   map[string]PinDecl
	names   []string          // logical names, sorted
	resolve map[string]string // logical or physical name -> logical name
}

// NewPinSpace validates the declaration table and builds the bidirectional
// name index. Any collision between logical and physical names across the
// whole table is a DuplicatePinNameError.
func NewPinSpace(decls map[string]PinDecl) (*PinSpace, error) {
	space := &PinSpace{
		decls:   make(map[string]PinDecl, len(decls)),
		resolve: make(map[string]string, 2*len(decls)),
	}
	for logical := range decls {
		space.names = append(space.names, logical)
	}
	sort.Strings(space.names)

	for _, logical := range space.names {
		decl := decls[logical]
		if !printableState(decl.Default) {
			return nil, &InvalidStateError{Pin: logical, State: decl.Default}
		}
		if _, taken := space.resolve[logical]; taken {
			return nil, &DuplicatePinNameError{Name: logical}
		}
		space.resolve[logical] = logical
		if decl.Name != logical {
			if _, taken := space.resolve[decl.Name]; taken {
				return nil, &DuplicatePinNameError{Name: decl.Name}
			}
			space.resolve[decl.Name] = logical
		}
		space.decls[logical] = decl
	}
	return space, nil
}

// Names returns the logical pin names in sorted order.
func (s *PinSpace) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len reports the number of declared pins.
func (s *PinSpace) Len() int {
	return len(s.names)
}

// Decl looks up a declaration by logical name.
func (s *PinSpace) Decl(logical string) (PinDecl, bool) {
	decl, ok := s.decls[logical]
	return decl, ok
}

// Resolve maps a logical or physical pin name to its logical name.
func (s *PinSpace) Resolve(ref string) (string, bool) {
	logical, ok := s.resolve[ref]
	return logical, ok
}

func printableState(c byte) bool {
	return c >= 0x21 && c <= 0x7e
}
