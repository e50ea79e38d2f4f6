// Package riscvtap implements the RISC-V debug transport module tap on top
// of the chain driver: debug module register access over DMIACCESS, with a
// matched-loop poll on the DMI status bits. Like pulptap it is an extension
// tap and holds nothing but its own chain handle.
package riscvtap

import (
	"fmt"
	"strings"

	"github.com/chiplabs/vecgen/pkg/jtag"
	"github.com/chiplabs/vecgen/pkg/vector"
)

// IRSize is the instruction register width of the debug transport module.
const IRSize = 5

// DefaultIDCode is the IDCODE of the PULP implementation of the debug
// module, 0x249511C3.
const DefaultIDCode = "00100100100101010001000111000011"

// DMIOp is the two-bit operation field of a DMIACCESS transfer.
type DMIOp string

const (
	OpNop   DMIOp = "00"
	OpRead  DMIOp = "01"
	OpWrite DMIOp = "10"
)

// DMI status results shifted out with the next DMIACCESS transfer.
const (
	StatusSuccess = "00"
	StatusFailed  = "10"
	StatusPending = "11"
)

// DMReg is a seven-bit debug module register address.
type DMReg string

const (
	RegNoReg      DMReg = "0000000" // 0x00
	RegData0      DMReg = "0000100" // 0x04
	RegDMControl  DMReg = "0010000" // 0x10
	RegDMStatus   DMReg = "0010001" // 0x11
	RegAbstractCS DMReg = "0010110" // 0x16
	RegCommand    DMReg = "0010111" // 0x17
	RegProgBuf0   DMReg = "0100000" // 0x20
	RegSBCS       DMReg = "0111000" // 0x38
	RegSBAddress0 DMReg = "0111001" // 0x39
	RegSBData0    DMReg = "0111100" // 0x3c
)

const (
	dmRegBits   = 7
	dmDataBits  = 32
	dmiOpBits   = 2
	dmiRegBits  = dmRegBits + dmDataBits + dmiOpBits
	dtmcsBits   = 32
	idcodeBits  = 32
	unknownAddr = "XXXXXXX"
)

// DTMCS write values. Register data rides MSB first, so bit 16 (dmireset)
// and bit 17 (dmihardreset) sit left of the middle of the string.
var (
	dtmcsDMIReset     = strings.Repeat("0", 15) + "1" + strings.Repeat("0", 16)
	dtmcsDMIHardReset = strings.Repeat("0", 14) + "1" + strings.Repeat("0", 17)
)

// Tap drives the RISC-V debug transport module. Construct it once per
// driver with New, in chain order relative to the other taps.
type Tap struct {
	driver *jtag.Driver
	tap    *jtag.Tap
	idcode string

	IDCode jtag.Register
	DTMCS  jtag.Register
	DMI    jtag.Register
}

// New registers the debug tap on the driver's chain. idcode is the 32-bit
// IDCODE expected from the module; pass the empty string for the PULP
// default.
func New(driver *jtag.Driver, idcode string) (*Tap, error) {
	if idcode == "" {
		idcode = DefaultIDCode
	}
	if len(idcode) != idcodeBits {
		return nil, &jtag.BitLengthMismatchError{Tap: "riscv-dbg", Want: idcodeBits, Got: len(idcode)}
	}
	handle, err := driver.AddTap("riscv-dbg", IRSize)
	if err != nil {
		return nil, err
	}
	t := &Tap{driver: driver, tap: handle, idcode: idcode}

	regs := []struct {
		dst    *jtag.Register
		name   string
		opcode string
		size   int
	}{
		{&t.IDCode, "IDCODE", "00001", idcodeBits},
		{&t.DTMCS, "DTMCS", "10000", dtmcsBits},
		{&t.DMI, "DMIACCESS", "10001", dmiRegBits},
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

// VerifyIDCode reads the IDCODE register and compares it against the
// expected value.
func (t *Tap) VerifyIDCode(comment string) ([]vector.Vector, error) {
	if comment == "" {
		comment = "verify IDCODE of RISC-V debug module"
	}
	return t.tap.ReadReg(t.IDCode, 0, t.idcode, comment)
}

// InitDMI selects DMIACCESS so subsequent DR traffic carries debug module
// transfers.
func (t *Tap) InitDMI() ([]vector.Vector, error) {
	return t.tap.SetIR(t.DMI.IROpcode, "init DMIACCESS")
}

// SetDMI starts one DMIACCESS transfer: register address, data word and
// operation, in that field order. The optional expected strings are
// compared against the data and status fields shifted out with this
// transfer; empty strings skip the compare.
func (t *Tap) SetDMI(op DMIOp, addr DMReg, data, expectedData, expectedStatus, comment string) ([]vector.Vector, error) {
	if len(data) != dmDataBits {
		return nil, &jtag.BitLengthMismatchError{Tap: t.tap.Name(), Want: dmDataBits, Got: len(data)}
	}
	if expectedData == "" {
		expectedData = strings.Repeat("X", dmDataBits)
	}
	if expectedStatus == "" {
		expectedStatus = "XX"
	}
	if comment == "" {
		comment = fmt.Sprintf("DMI access op %s to register 0b%s", op, addr)
	}
	dr := string(addr) + data + string(op)
	expected := unknownAddr + expectedData + expectedStatus
	return t.tap.SetDR(dr, expected, comment)
}

// DMIReset clears the DMI busy error flag through the dmireset bit of
// DTMCS, then selects DMIACCESS again.
func (t *Tap) DMIReset() ([]vector.Vector, error) {
	vecs, err := t.tap.WriteReg(t.DTMCS, dtmcsDMIReset, "reset DMI")
	if err != nil {
		return nil, err
	}
	initVecs, err := t.InitDMI()
	if err != nil {
		return nil, err
	}
	return append(vecs, initVecs...), nil
}

// DMIHardReset asserts the dmihardreset bit of DTMCS. Whether this resets
// the SoC depends on the chip's reset wiring.
func (t *Tap) DMIHardReset() ([]vector.Vector, error) {
	return t.tap.WriteReg(t.DTMCS, dtmcsDMIHardReset, "hard reset DMI")
}

// SetDMActive drives the dmactive flag in DMCONTROL, enabling or disabling
// the debug module.
func (t *Tap) SetDMActive(active bool) ([]vector.Vector, error) {
	data := strings.Repeat("0", dmDataBits)
	if active {
		data = strings.Repeat("0", dmDataBits-1) + "1"
	}
	return t.SetDMI(OpWrite, RegDMControl, data, "", "", "set DMACTIVE flag")
}

// WriteDebugReg writes a debug module register and polls the DMI status for
// completion: the condition block re-reads DMIACCESS expecting a success
// status, the idle block resets the busy error flag, and the tester retries
// up to retries times.
func (t *Tap) WriteDebugReg(addr DMReg, data string, retries int, comment string) ([]vector.Vector, error) {
	if comment == "" {
		comment = fmt.Sprintf("write 0b%s to debug reg 0b%s", data, addr)
	}
	vecs, err := t.SetDMI(OpWrite, addr, data, "", "", comment)
	if err != nil {
		return nil, err
	}
	wait, err := t.clockedWait(5)
	if err != nil {
		return nil, err
	}
	vecs = append(vecs, wait)

	loop, err := t.statusPoll("", retries)
	if err != nil {
		return nil, err
	}
	vecs = append(vecs, loop)
	return append(vecs, t.tap.Idle(8, "")...), nil
}

// ReadDebugReg reads a debug module register and compares it against the
// expected value, polling the DMI status with the same matched loop as
// WriteDebugReg.
func (t *Tap) ReadDebugReg(addr DMReg, expected string, retries int, comment string) ([]vector.Vector, error) {
	if comment == "" {
		comment = fmt.Sprintf("read debug reg 0b%s expecting 0b%s", addr, expected)
	}
	vecs, err := t.SetDMI(OpRead, addr, strings.Repeat("0", dmDataBits), "", "", comment)
	if err != nil {
		return nil, err
	}
	loop, err := t.statusPoll(expected, retries)
	if err != nil {
		return nil, err
	}
	vecs = append(vecs, loop)
	return append(vecs, t.tap.Idle(8, "")...), nil
}

// WaitCommand polls ABSTRACTCS until the busy flag clears and no command
// error is flagged. Bit 12 is busy, bits 8 to 10 are cmderr; everything
// else is unchecked.
func (t *Tap) WaitCommand(retries int, comment string) ([]vector.Vector, error) {
	if comment == "" {
		comment = "wait for abstract command completion"
	}
	expected := strings.Repeat("X", 19) + "0" + "X" + "000" + strings.Repeat("X", 8)
	return t.ReadDebugReg(RegAbstractCS, expected, retries, comment)
}

// statusPoll builds the DMI completion matched loop: a NOP transfer
// expecting a success status (and optionally the read data), retried with a
// DMI reset between attempts. Sequencer blocks hold a multiple of eight
// vectors.
func (t *Tap) statusPoll(expectedData string, retries int) (vector.Vector, error) {
	cond, err := t.SetDMI(OpNop, RegNoReg, strings.Repeat("0", dmDataBits),
		expectedData, StatusSuccess, "poll DMI status")
	if err != nil {
		return nil, err
	}
	pad, err := t.tap.IdleVector(1, "")
	if err != nil {
		return nil, err
	}
	idle, err := t.DMIReset()
	if err != nil {
		return nil, err
	}
	return vector.NewMatchedLoop(
		vector.PadToEight(cond, pad),
		vector.PadToEight(idle, pad),
		retries,
	)
}

// RegAddr converts a numeric debug module register address into its
// seven-bit field value.
func RegAddr(addr uint8) (DMReg, error) {
	if addr > 0x7f {
		return "", fmt.Errorf("riscvtap: register address 0x%02x out of range", addr)
	}
	return DMReg(msbFirst(uint64(addr), dmRegBits)), nil
}

// Word renders a 32-bit value as the data field of a DMI access, most
// significant bit first.
func Word(value uint32) string {
	return msbFirst(uint64(value), dmDataBits)
}

func msbFirst(value uint64, width int) string {
	buf := make([]byte, width)
	for i := 0; i < width; i++ {
		buf[width-1-i] = '0' + byte(value>>uint(i)&1)
	}
	return string(buf)
}

// clockedWait emits one repeated vector that toggles TCK in Run-Test/Idle,
// giving the DMI time to complete the transfer.
func (t *Tap) clockedWait(cycles int) (*vector.Normal, error) {
	t.driver.SetJTAGDefaults()
	builder := t.driver.Builder()
	if err := builder.Set(jtag.PinTCK, '1'); err != nil {
		return nil, err
	}
	return builder.VectorN(cycles, "clock tck to let the DMI complete")
}
