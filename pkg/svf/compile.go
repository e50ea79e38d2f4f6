package svf

import (
	"fmt"
	"strings"

	"github.com/chiplabs/vecgen/pkg/jtag"
	"github.com/chiplabs/vecgen/pkg/vector"
)

// Compile translates a parsed SVF file into stimulus vectors using the
// given driver. Scan data follows the SVF convention: hex values are read
// most-significant nibble first and the least significant bit is shifted
// first.
func Compile(file *File, driver *jtag.Driver) ([]vector.Vector, error) {
	var vecs []vector.Vector
	for i, stmt := range file.Statements {
		out, err := compileStatement(stmt, driver)
		if err != nil {
			return nil, fmt.Errorf("svf: statement %d: %w", i+1, err)
		}
		vecs = append(vecs, out...)
	}
	return vecs, nil
}

func compileStatement(stmt *Statement, driver *jtag.Driver) ([]vector.Vector, error) {
	switch {
	case stmt.SIR != nil:
		return compileScan(stmt.SIR, driver, true)
	case stmt.SDR != nil:
		return compileScan(stmt.SDR, driver, false)
	case stmt.RunTest != nil:
		vecs := driver.GotoIdle("run test")
		idle, err := driver.IdleVector(stmt.RunTest.Count, fmt.Sprintf("run test for %d cycles", stmt.RunTest.Count))
		if err != nil {
			return nil, err
		}
		return append(vecs, idle), nil
	case stmt.State != nil:
		if stmt.State.Reset {
			return driver.Reset("state reset"), nil
		}
		return driver.GotoIdle("state idle"), nil
	case stmt.Trst != nil:
		level := byte('1')
		if stmt.Trst.On { // TRST is active low; ON asserts the reset
			level = '0'
		}
		driver.SetJTAGDefaults()
		if err := driver.Builder().Set(jtag.PinTRST, level); err != nil {
			return nil, err
		}
		return []vector.Vector{driver.Builder().Vector(fmt.Sprintf("trst %s", trstName(stmt.Trst.On)))}, nil
	default:
		return nil, fmt.Errorf("empty statement")
	}
}

func compileScan(scan *ScanStmt, driver *jtag.Driver, ir bool) ([]vector.Vector, error) {
	if scan.Length < 1 {
		return nil, fmt.Errorf("scan length %d is below one", scan.Length)
	}
	tdiHex := scan.tdi()
	if tdiHex == nil {
		return nil, fmt.Errorf("scan statement carries no TDI value")
	}
	bits, err := hexToShiftOrder(*tdiHex, scan.Length)
	if err != nil {
		return nil, fmt.Errorf("TDI: %w", err)
	}

	expected := ""
	if tdoHex := scan.tdo(); tdoHex != nil {
		tdoBits, err := hexToShiftOrder(*tdoHex, scan.Length)
		if err != nil {
			return nil, fmt.Errorf("TDO: %w", err)
		}
		maskBits := strings.Repeat("1", scan.Length)
		if maskHex := scan.mask(); maskHex != nil {
			maskBits, err = hexToShiftOrder(*maskHex, scan.Length)
			if err != nil {
				return nil, fmt.Errorf("MASK: %w", err)
			}
		}
		buf := []byte(tdoBits)
		for i := range buf {
			if maskBits[i] == '0' {
				buf[i] = 'X'
			}
		}
		expected = string(buf)
	}

	var vecs []vector.Vector
	if ir {
		vecs = driver.GotoShiftIR(fmt.Sprintf("SIR %d bits", scan.Length))
	} else {
		vecs = driver.GotoShiftDR(fmt.Sprintf("SDR %d bits", scan.Length))
	}
	shift, err := driver.Shift(bits, expected, "", false)
	if err != nil {
		return nil, err
	}
	return append(vecs, shift...), nil
}

// hexToShiftOrder expands a parenthesized SVF hex value into a bit string in
// shift order (LSB first), validating that dropped leading bits are zero.
func hexToShiftOrder(hex string, length int) (string, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '(', ')', ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, hex)

	msb := make([]byte, 0, 4*len(clean))
	for i := 0; i < len(clean); i++ {
		nibble, err := hexDigit(clean[i])
		if err != nil {
			return "", err
		}
		for b := 3; b >= 0; b-- {
			msb = append(msb, '0'+(nibble>>uint(b)&1))
		}
	}
	if len(msb) < length {
		msb = append(bytesRepeat('0', length-len(msb)), msb...)
	}
	for _, b := range msb[:len(msb)-length] {
		if b != '0' {
			return "", fmt.Errorf("value %s does not fit in %d bits", clean, length)
		}
	}
	msb = msb[len(msb)-length:]

	shift := make([]byte, length)
	for i := 0; i < length; i++ {
		shift[i] = msb[length-1-i]
	}
	return string(shift), nil
}

func hexDigit(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	}
	return 0, fmt.Errorf("invalid hex digit %q", c)
}

func bytesRepeat(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

func trstName(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
