package pulptap

import (
	"strings"
	"testing"

	"github.com/chiplabs/vecgen/pkg/jtag"
	"github.com/chiplabs/vecgen/pkg/vector"
)

func newTestTap(t *testing.T) (*jtag.Driver, *Tap) {
	t.Helper()
	builder, err := vector.NewBuilder(map[string]vector.PinDecl{
		jtag.PinTCK:  {Name: "pad_jtag_tck", Default: '0', Dir: vector.DirInput},
		jtag.PinTMS:  {Name: "pad_jtag_tms", Default: '0', Dir: vector.DirInput},
		jtag.PinTDI:  {Name: "pad_jtag_tdi", Default: '0', Dir: vector.DirInput},
		jtag.PinTDO:  {Name: "pad_jtag_tdo", Default: 'X', Dir: vector.DirOutput},
		jtag.PinTRST: {Name: "pad_jtag_trst", Default: '1', Dir: vector.DirInput},
	})
	if err != nil {
		t.Fatalf("NewBuilder failed: %v", err)
	}
	driver, err := jtag.NewDriver(builder)
	if err != nil {
		t.Fatalf("NewDriver failed: %v", err)
	}
	pulp, err := New(driver)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	driver.Reset("")
	return driver, pulp
}

func shiftBits(vecs []vector.Vector, pin string) string {
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

func TestRegisterTable(t *testing.T) {
	_, pulp := newTestTap(t)
	cases := []struct {
		reg    jtag.Register
		opcode string
		size   int
	}{
		{pulp.IDCode, "00010", 32},
		{pulp.AXIReg, "00100", 0},
		{pulp.BBMuxReg, "00101", 21},
		{pulp.ConfReg, "00110", 9},
		{pulp.TestModeReg, "01000", 4},
		{pulp.BistReg, "01001", 20},
	}
	for _, c := range cases {
		if c.reg.IROpcode != c.opcode || c.reg.DRSize != c.size {
			t.Errorf("%s: opcode %q size %d, want %q %d",
				c.reg.Name, c.reg.IROpcode, c.reg.DRSize, c.opcode, c.size)
		}
	}
	if pulp.Handle().IRSize() != IRSize {
		t.Errorf("tap IR size = %d, want %d", pulp.Handle().IRSize(), IRSize)
	}
}

func TestLSBFirst(t *testing.T) {
	if got := lsbFirst(0b1011, 4); got != "1101" {
		t.Errorf("lsbFirst(0b1011, 4) = %q, want %q", got, "1101")
	}
	if got := lsbFirst(1, 8); got != "10000000" {
		t.Errorf("lsbFirst(1, 8) = %q", got)
	}
}

func TestMSBFirst(t *testing.T) {
	if got := msbFirst(0b1011, 4); got != "1011" {
		t.Errorf("msbFirst(0b1011, 4) = %q, want %q", got, "1011")
	}
}

func TestConfValue(t *testing.T) {
	if got := confValue(0b00000110, true); got != "100000110" {
		t.Errorf("confValue = %q", got)
	}
	if got := confValue(0, false); got != "000000000" {
		t.Errorf("confValue = %q", got)
	}
}

func TestSetupBurstLayout(t *testing.T) {
	_, pulp := newTestTap(t)
	if _, err := pulp.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	vecs, err := pulp.SetupBurst(OpWrite32, 0x1c008080, 4, "")
	if err != nil {
		t.Fatalf("SetupBurst failed: %v", err)
	}
	bits := shiftBits(vecs, jtag.PinTDI)
	// 16 count bits, 32 address bits, 4 opcode bits and the ready slot.
	if len(bits) != 53 {
		t.Fatalf("burst setup shifts %d bits, want 53", len(bits))
	}
	if bits[:16] != lsbFirst(4, 16) {
		t.Errorf("word count field = %q", bits[:16])
	}
	if bits[16:48] != lsbFirst(0x1c008080, 32) {
		t.Errorf("address field = %q", bits[16:48])
	}
	if bits[48:52] != lsbFirst(uint64(OpWrite32), 4) {
		t.Errorf("opcode field = %q", bits[48:52])
	}
}

func TestSetupBurstRejectsBadCount(t *testing.T) {
	_, pulp := newTestTap(t)
	if _, err := pulp.SetupBurst(OpWrite32, 0, 0, ""); err == nil {
		t.Errorf("zero word count accepted")
	}
	if _, err := pulp.SetupBurst(OpWrite32, 0, 0x10000, ""); err == nil {
		t.Errorf("oversized word count accepted")
	}
}

func TestWriteBurstFraming(t *testing.T) {
	_, pulp := newTestTap(t)
	if _, err := pulp.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	vecs, err := pulp.WriteBurst([]uint32{0xdeadbeef}, "")
	if err != nil {
		t.Fatalf("WriteBurst failed: %v", err)
	}
	bits := shiftBits(vecs, jtag.PinTDI)
	// Start bit, one data word, CRC trailer, match bit slot.
	if len(bits) != 1+32+32+1 {
		t.Fatalf("write burst shifts %d bits, want 66", len(bits))
	}
	if bits[0] != '1' {
		t.Errorf("missing start bit")
	}
	if bits[1:33] != lsbFirst(0xdeadbeef, 32) {
		t.Errorf("data word = %q", bits[1:33])
	}
}

func TestReadBurstMatchedLoop(t *testing.T) {
	_, pulp := newTestTap(t)
	if _, err := pulp.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	vecs, err := pulp.ReadBurst([]uint32{0x12345678, 0x9abcdef0}, 16, "")
	if err != nil {
		t.Fatalf("ReadBurst failed: %v", err)
	}

	var loop *vector.MatchedLoop
	for _, vec := range vecs {
		if m, ok := vec.(*vector.MatchedLoop); ok {
			loop = m
			break
		}
	}
	if loop == nil {
		t.Fatalf("read burst carries no matched loop")
	}
	if loop.Retries != 16 {
		t.Errorf("retries = %d, want 16", loop.Retries)
	}
	if len(loop.Cond)%8 != 0 {
		t.Errorf("condition block holds %d vectors, not a multiple of eight", len(loop.Cond))
	}
	if len(loop.Idle)%8 != 0 {
		t.Errorf("idle block holds %d vectors, not a multiple of eight", len(loop.Idle))
	}

	// The data shift checks both words and skips the CRC.
	tdo := shiftBits(vecs, jtag.PinTDO)
	wantData := lsbFirst(0x12345678, 32) + lsbFirst(0x9abcdef0, 32)
	if !strings.Contains(tdo, wantData) {
		t.Errorf("expected data bits %q not found in tdo stream", wantData)
	}
	if !strings.HasSuffix(tdo, strings.Repeat("X", 32)) {
		t.Errorf("CRC trailer is compared instead of ignored")
	}
}

func TestWrite32ComposesBurst(t *testing.T) {
	_, pulp := newTestTap(t)
	if _, err := pulp.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	vecs, err := pulp.Write32(0x1c000000, []uint32{1, 2, 3}, "")
	if err != nil {
		t.Fatalf("Write32 failed: %v", err)
	}
	bits := shiftBits(vecs, jtag.PinTDI)
	// Module select, burst setup, then the framed data stream.
	want := len(moduleID) + 53 + 1 + 3*32 + 32 + 1
	if len(bits) != want {
		t.Errorf("write32 shifts %d bits, want %d", len(bits), want)
	}
	if !strings.HasPrefix(bits, "100000") {
		t.Errorf("module select bits = %q", bits[:6])
	}
}
