package jtag

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/chiplabs/vecgen/pkg/tap"
	"github.com/chiplabs/vecgen/pkg/vector"
)

func testDecls() map[string]vector.PinDecl {
	return map[string]vector.PinDecl{
		PinTCK:  {Name: "pad_jtag_tck", Default: '0', Dir: vector.DirInput},
		PinTMS:  {Name: "pad_jtag_tms", Default: '0', Dir: vector.DirInput},
		PinTDI:  {Name: "pad_jtag_tdi", Default: '0', Dir: vector.DirInput},
		PinTDO:  {Name: "pad_jtag_tdo", Default: 'X', Dir: vector.DirOutput},
		PinTRST: {Name: "pad_jtag_trst", Default: '1', Dir: vector.DirInput},
	}
}

func newTestDriver(t *testing.T, irSizes ...int) (*Driver, []*Tap) {
	t.Helper()
	builder, err := vector.NewBuilder(testDecls())
	if err != nil {
		t.Fatalf("NewBuilder failed: %v", err)
	}
	driver, err := NewDriver(builder)
	if err != nil {
		t.Fatalf("NewDriver failed: %v", err)
	}
	taps := make([]*Tap, len(irSizes))
	for i, size := range irSizes {
		taps[i], err = driver.AddTap(string(rune('a'+i)), size)
		if err != nil {
			t.Fatalf("AddTap failed: %v", err)
		}
	}
	return driver, taps
}

// shiftPinStates extracts one pin's state character from every shift vector,
// in emission order.
func shiftPinStates(vecs []vector.Vector, pin string) string {
	var out strings.Builder
	for _, vec := range vecs {
		normal, ok := vec.(*vector.Normal)
		if !ok {
			continue
		}
		if strings.Contains(normal.Comment, "shift bit") {
			out.WriteByte(normal.PinStates[pin])
		}
	}
	return out.String()
}

func TestNewDriverRequiresJTAGPins(t *testing.T) {
	decls := testDecls()
	delete(decls, PinTRST)
	builder, err := vector.NewBuilder(decls)
	if err != nil {
		t.Fatalf("NewBuilder failed: %v", err)
	}
	_, err = NewDriver(builder)
	var unknown *vector.UnknownPinError
	if !errors.As(err, &unknown) {
		t.Fatalf("NewDriver returned %v, want UnknownPinError", err)
	}
}

func TestResetSequence(t *testing.T) {
	d, _ := newTestDriver(t, 4)
	vecs := d.Reset("")
	if len(vecs) != tap.ResetClocks+1 {
		t.Fatalf("Reset emitted %d vectors, want %d", len(vecs), tap.ResetClocks+1)
	}
	for i := 0; i < tap.ResetClocks; i++ {
		v := vecs[i].(*vector.Normal)
		if v.PinStates[PinTRST] != '0' || v.PinStates[PinTMS] != '1' || v.PinStates[PinTCK] != '1' {
			t.Errorf("reset vector %d: trst=%c tms=%c tck=%c",
				i, v.PinStates[PinTRST], v.PinStates[PinTMS], v.PinStates[PinTCK])
		}
	}
	last := vecs[tap.ResetClocks].(*vector.Normal)
	if last.PinStates[PinTRST] != '1' || last.PinStates[PinTMS] != '0' {
		t.Errorf("final vector: trst=%c tms=%c", last.PinStates[PinTRST], last.PinStates[PinTMS])
	}
	if d.State() != tap.RunTestIdle {
		t.Errorf("driver in %s after reset", d.State())
	}
}

func TestResetIsIdempotent(t *testing.T) {
	fresh, _ := newTestDriver(t, 4)
	want := fresh.Reset("")

	used, taps := newTestDriver(t, 4)
	used.Reset("")
	if _, err := used.SetIR(taps[0], "1010", ""); err != nil {
		t.Fatalf("SetIR failed: %v", err)
	}
	got := used.Reset("")

	if !reflect.DeepEqual(want, got) {
		t.Errorf("reset after traffic differs from reset on a fresh driver")
	}
}

func TestSetIRPadsSiblingsWithBypass(t *testing.T) {
	d, taps := newTestDriver(t, 4, 5)
	d.Reset("")
	vecs, err := d.SetIR(taps[0], "1010", "")
	if err != nil {
		t.Fatalf("SetIR failed: %v", err)
	}
	if got := shiftPinStates(vecs, PinTDI); got != "101011111" {
		t.Errorf("IR shift tdi = %q, want %q", got, "101011111")
	}
	if d.State() != tap.RunTestIdle {
		t.Errorf("driver in %s after SetIR", d.State())
	}
}

func TestSetIRTargetsSecondTap(t *testing.T) {
	d, taps := newTestDriver(t, 4, 5)
	d.Reset("")
	vecs, err := d.SetIR(taps[1], "00110", "")
	if err != nil {
		t.Fatalf("SetIR failed: %v", err)
	}
	if got := shiftPinStates(vecs, PinTDI); got != "111100110" {
		t.Errorf("IR shift tdi = %q, want %q", got, "111100110")
	}
}

func TestSetIRBitLength(t *testing.T) {
	d, taps := newTestDriver(t, 4)
	d.Reset("")
	_, err := d.SetIR(taps[0], "10100", "")
	var mismatch *BitLengthMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("SetIR returned %v, want BitLengthMismatchError", err)
	}
	if mismatch.Want != 4 || mismatch.Got != 5 {
		t.Errorf("mismatch reports want=%d got=%d", mismatch.Want, mismatch.Got)
	}
}

func TestSetIRRejectsNonBits(t *testing.T) {
	d, taps := newTestDriver(t, 4)
	d.Reset("")
	if _, err := d.SetIR(taps[0], "10a0", ""); err == nil {
		t.Errorf("SetIR accepted a non-binary character")
	}
}

func TestSetDRBypassPadding(t *testing.T) {
	d, taps := newTestDriver(t, 4, 5)
	d.Reset("")
	vecs, err := d.SetDR(taps[1], "101", "X1X", "")
	if err != nil {
		t.Fatalf("SetDR failed: %v", err)
	}
	if got := shiftPinStates(vecs, PinTDI); got != "0101" {
		t.Errorf("DR shift tdi = %q, want %q", got, "0101")
	}
	if got := shiftPinStates(vecs, PinTDO); got != "XX1X" {
		t.Errorf("DR shift tdo = %q, want %q", got, "XX1X")
	}
}

func TestChainFreezesOnFirstShift(t *testing.T) {
	d, taps := newTestDriver(t, 4)
	d.Reset("")
	if _, err := d.AddTap("late", 5); err != nil {
		t.Fatalf("AddTap before any shift failed: %v", err)
	}
	if _, err := d.SetIR(taps[0], "1010", ""); err != nil {
		t.Fatalf("SetIR failed: %v", err)
	}
	if _, err := d.AddTap("too-late", 5); !errors.Is(err, ErrChainFrozen) {
		t.Errorf("AddTap after shift returned %v, want ErrChainFrozen", err)
	}
}

func TestGotoShiftDRFreezes(t *testing.T) {
	d, _ := newTestDriver(t, 4)
	d.Reset("")
	d.GotoShiftDR("")
	if _, err := d.AddTap("late", 5); !errors.Is(err, ErrChainFrozen) {
		t.Errorf("AddTap after GotoShiftDR returned %v, want ErrChainFrozen", err)
	}
}

func TestUnknownTap(t *testing.T) {
	d, _ := newTestDriver(t, 4)
	other, taps := newTestDriver(t, 4)
	other.Reset("")
	d.Reset("")
	_, err := d.SetIR(taps[0], "1010", "")
	var unknown *UnknownTapError
	if !errors.As(err, &unknown) {
		t.Fatalf("SetIR with foreign tap returned %v, want UnknownTapError", err)
	}
}

func TestShiftRequiresShiftState(t *testing.T) {
	d, _ := newTestDriver(t, 4)
	d.Reset("")
	if _, err := d.Shift("1010", "", "", false); err == nil {
		t.Errorf("Shift accepted outside a shift state")
	}
}

func TestShiftExitWalksToIdle(t *testing.T) {
	d, _ := newTestDriver(t, 4)
	d.Reset("")
	d.GotoShiftIR("")
	vecs, err := d.Shift("1010", "", "", false)
	if err != nil {
		t.Fatalf("Shift failed: %v", err)
	}
	// Four shift bits, then Update-IR and Run-Test/Idle.
	if len(vecs) != 6 {
		t.Fatalf("Shift emitted %d vectors, want 6", len(vecs))
	}
	lastBit := vecs[3].(*vector.Normal)
	if lastBit.PinStates[PinTMS] != '1' {
		t.Errorf("last shift bit keeps TMS low, never leaves Shift-IR")
	}
	if d.State() != tap.RunTestIdle {
		t.Errorf("driver in %s after Shift", d.State())
	}
}

func TestShiftNoExitStaysInShiftState(t *testing.T) {
	d, _ := newTestDriver(t, 4)
	d.Reset("")
	d.GotoShiftDR("")
	vecs, err := d.Shift("11", "", "", true)
	if err != nil {
		t.Fatalf("Shift failed: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("Shift emitted %d vectors, want 2", len(vecs))
	}
	if d.State() != tap.ShiftDR {
		t.Errorf("driver in %s, want Shift-DR", d.State())
	}
}

func TestShiftExpectedLengthMismatch(t *testing.T) {
	d, _ := newTestDriver(t, 4)
	d.Reset("")
	d.GotoShiftDR("")
	_, err := d.Shift("1010", "01", "", false)
	var mismatch *BitLengthMismatchError
	if !errors.As(err, &mismatch) {
		t.Errorf("Shift returned %v, want BitLengthMismatchError", err)
	}
}

func TestIdleVectors(t *testing.T) {
	d, _ := newTestDriver(t, 4)
	vecs := d.IdleVectors(3, "idle")
	if len(vecs) != 3 {
		t.Fatalf("IdleVectors emitted %d vectors, want 3", len(vecs))
	}
	first := vecs[0].(*vector.Normal)
	if first.Comment != "idle" {
		t.Errorf("first comment = %q", first.Comment)
	}
	if first.PinStates[PinTCK] != '0' {
		t.Errorf("idle vector clocks TCK")
	}
	if vecs[1].(*vector.Normal).Comment != "" {
		t.Errorf("followup idle vector carries a comment")
	}
}

func TestIRLengthAndTaps(t *testing.T) {
	d, _ := newTestDriver(t, 4, 5)
	if d.IRLength() != 9 {
		t.Errorf("IRLength = %d, want 9", d.IRLength())
	}
	names := d.Taps()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Taps = %v", names)
	}
}
