// Package pulptap implements the PULP SoC debug tap on top of the chain
// driver: register programming through CONFREG and memory access over the
// adv-dbg burst protocol tunnelled through AXIREG. It is an extension tap:
// it registers one descriptor on the chain and addresses all traffic through
// its own handle, without any view of sibling taps.
package pulptap

import (
	"fmt"
	"strings"

	"github.com/chiplabs/vecgen/pkg/jtag"
	"github.com/chiplabs/vecgen/pkg/vector"
)

// IRSize is the instruction register width of the PULP tap.
const IRSize = 5

// Op is an adv-dbg burst opcode.
type Op uint8

const (
	OpNop Op = iota
	OpWrite8
	OpWrite16
	OpWrite32
	OpWrite64
	OpRead8
	OpRead16
	OpRead32
	OpRead64
	OpIntRegWrite
	OpIntRegSelect Op = 0xD
)

// moduleID selects the AXI4 debug module inside the adv-dbg unit, shifted in
// ahead of every burst.
const moduleID = "100000"

// crcBits is the width of the (unchecked) CRC trailer on burst transfers.
const crcBits = 32

// Tap drives the PULP JTAG module. Construct it once per driver with New.
type Tap struct {
	driver *jtag.Driver
	tap    *jtag.Tap

	IDCode      jtag.Register
	AXIReg      jtag.Register
	BBMuxReg    jtag.Register
	ConfReg     jtag.Register
	TestModeReg jtag.Register
	BistReg     jtag.Register
}

// New registers the PULP tap on the driver's chain and declares its
// registers. Call it in chain order relative to the other taps.
func New(driver *jtag.Driver) (*Tap, error) {
	handle, err := driver.AddTap("pulp", IRSize)
	if err != nil {
		return nil, err
	}
	t := &Tap{driver: driver, tap: handle}

	regs := []struct {
		dst    *jtag.Register
		name   string
		opcode string
		size   int
	}{
		{&t.IDCode, "IDCODE", "00010", 32},
		{&t.AXIReg, "AXIREG", "00100", 0}, // width depends on the burst setup
		{&t.BBMuxReg, "BBMUXREG", "00101", 21},
		{&t.ConfReg, "CONFREG", "00110", 9},
		{&t.TestModeReg, "TESTMODEREG", "01000", 4},
		{&t.BistReg, "BISTREG", "01001", 20},
	}
	for _, r := range regs {
		reg, err := handle.AddRegister(r.name, r.opcode, r.size)
		if err != nil {
			return nil, err
		}
		*r.dst = reg
	}
	return t, nil
}

// Handle returns the tap's chain handle.
func (t *Tap) Handle() *jtag.Tap {
	return t.tap
}

// Init selects AXIREG so subsequent DR traffic reaches the adv-dbg unit.
func (t *Tap) Init() ([]vector.Vector, error) {
	return t.tap.SetIR(t.AXIReg.IROpcode, "init PULP tap")
}

// SetConfig programs CONFREG: eight SoC configuration bits plus the FLL
// clock select.
func (t *Tap) SetConfig(socBits uint8, selFLLClk bool, comment string) ([]vector.Vector, error) {
	if comment == "" {
		comment = fmt.Sprintf("set CONFREG to 0x%02x, FLL clock %s", socBits, onOff(selFLLClk))
	}
	return t.tap.WriteReg(t.ConfReg, confValue(socBits, selFLLClk), comment)
}

// VerifyConfig reads CONFREG back and compares it against the expected
// configuration.
func (t *Tap) VerifyConfig(socBits uint8, selFLLClk bool, comment string) ([]vector.Vector, error) {
	if comment == "" {
		comment = fmt.Sprintf("verify CONFREG is 0x%02x, FLL clock %s", socBits, onOff(selFLLClk))
	}
	return t.tap.ReadReg(t.ConfReg, 0, confValue(socBits, selFLLClk), comment)
}

// ModuleSelect addresses the AXI4 module of the adv-dbg unit.
func (t *Tap) ModuleSelect(comment string) ([]vector.Vector, error) {
	return t.tap.SetDR(moduleID, "", comment)
}

// SetupBurst announces a burst transfer: opcode, start address and word
// count packed into the 53-bit burst setup register, LSB shifted first.
func (t *Tap) SetupBurst(op Op, addr uint32, nwords int, comment string) ([]vector.Vector, error) {
	if nwords < 1 || nwords > 0xffff {
		return nil, fmt.Errorf("pulptap: burst word count %d out of range", nwords)
	}
	if comment == "" {
		comment = fmt.Sprintf("set up burst op %d @0x%08x for %d words", op, addr, nwords)
	}
	var dr strings.Builder
	dr.WriteString(lsbFirst(uint64(nwords), 16))
	dr.WriteString(lsbFirst(uint64(addr), 32))
	dr.WriteString(lsbFirst(uint64(op), 4))
	dr.WriteByte('0')
	return t.tap.SetDR(dr.String(), "", comment)
}

// WriteBurst streams the data words of a prepared write burst: a start bit,
// each word LSB first, then a dummy CRC (the match bit is never checked on
// writes) and the trailing match bit slot.
func (t *Tap) WriteBurst(words []uint32, comment string) ([]vector.Vector, error) {
	if comment == "" {
		comment = fmt.Sprintf("write burst data for %d words", len(words))
	}
	var burst strings.Builder
	burst.WriteByte('1')
	for _, word := range words {
		burst.WriteString(lsbFirst(uint64(word), 32))
	}
	burst.WriteString(strings.Repeat("1", crcBits))
	burst.WriteByte('0')
	return t.tap.SetDR(burst.String(), "", comment)
}

// ReadBurst verifies the data words of a prepared read burst. The adv-dbg
// unit raises a ready bit before streaming data, so the wait is expressed as
// a matched loop: the condition block shifts one bit expecting '1', the idle
// block keeps the interface quiet, and the tester retries up to retries
// times. Sequencer blocks must hold a multiple of eight vectors.
func (t *Tap) ReadBurst(expected []uint32, retries int, comment string) ([]vector.Vector, error) {
	if comment == "" {
		comment = fmt.Sprintf("read burst data for %d words", len(expected))
	}
	vecs, err := t.tap.EnterShiftDR(comment)
	if err != nil {
		return nil, err
	}

	cond, err := t.tap.ShiftDR("0", "1", "wait for burst ready bit", true)
	if err != nil {
		return nil, err
	}
	pad, err := t.tap.IdleVector(1, "")
	if err != nil {
		return nil, err
	}
	loop, err := vector.NewMatchedLoop(
		vector.PadToEight(cond, pad),
		t.tap.Idle(8, ""),
		retries,
	)
	if err != nil {
		return nil, err
	}
	vecs = append(vecs, loop)
	vecs = append(vecs, t.tap.Idle(8, "")...)

	var expect strings.Builder
	for _, word := range expected {
		expect.WriteString(lsbFirst(uint64(word), 32))
	}
	expect.WriteString(strings.Repeat("X", crcBits))
	// Bypass bits of taps after this one stay unshifted; leaving Shift-DR
	// early discards them, which the adv-dbg unit tolerates.
	data, err := t.tap.ShiftDR(strings.Repeat("0", expect.Len()), expect.String(), "", false)
	if err != nil {
		return nil, err
	}
	return append(vecs, data...), nil
}

// Write32 writes a word burst starting at addr.
func (t *Tap) Write32(addr uint32, words []uint32, comment string) ([]vector.Vector, error) {
	if comment == "" {
		comment = fmt.Sprintf("write32 burst @0x%08x for %d words", addr, len(words))
	}
	vecs, err := t.ModuleSelect("select AXI4 debug module")
	if err != nil {
		return nil, err
	}
	setup, err := t.SetupBurst(OpWrite32, addr, len(words), comment)
	if err != nil {
		return nil, err
	}
	data, err := t.WriteBurst(words, "")
	if err != nil {
		return nil, err
	}
	return append(append(vecs, setup...), data...), nil
}

// Read32 reads a word burst starting at addr and compares it against the
// expected values, retrying the ready poll up to retries times.
func (t *Tap) Read32(addr uint32, expected []uint32, retries int, comment string) ([]vector.Vector, error) {
	if comment == "" {
		comment = fmt.Sprintf("read32 burst @0x%08x for %d words", addr, len(expected))
	}
	vecs, err := t.ModuleSelect("select AXI4 debug module")
	if err != nil {
		return nil, err
	}
	setup, err := t.SetupBurst(OpRead32, addr, len(expected), comment)
	if err != nil {
		return nil, err
	}
	data, err := t.ReadBurst(expected, retries, "")
	if err != nil {
		return nil, err
	}
	return append(append(vecs, setup...), data...), nil
}

func confValue(socBits uint8, selFLLClk bool) string {
	fll := "0"
	if selFLLClk {
		fll = "1"
	}
	return fll + msbFirst(uint64(socBits), 8)
}

// lsbFirst renders value as a bit string in shift order with the least
// significant bit first, the order the adv-dbg unit consumes burst fields.
func lsbFirst(value uint64, width int) string {
	buf := make([]byte, width)
	for i := 0; i < width; i++ {
		buf[i] = '0' + byte(value>>uint(i)&1)
	}
	return string(buf)
}

func msbFirst(value uint64, width int) string {
	buf := make([]byte, width)
	for i := 0; i < width; i++ {
		buf[width-1-i] = '0' + byte(value>>uint(i)&1)
	}
	return string(buf)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
