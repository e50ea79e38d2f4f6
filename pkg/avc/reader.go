package avc

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/chiplabs/vecgen/pkg/vector"
)

// Line-anchored statement matchers, one per AVC statement kind.
var (
	reFormat  = regexp.MustCompile(`^FORMAT\s+(.+?)\s*;`)
	rePort    = regexp.MustCompile(`^PORT\s+\w*\s*;`)
	reNormal  = regexp.MustCompile(`^R(\d+)\s+(\w+)\s+(\S+)\s*(?:\[%\]\s*(.*?)\s*)?;`)
	reMact    = regexp.MustCompile(`^SQPG\s+MACT\s+(\d+)\s*;`)
	reMrpt    = regexp.MustCompile(`^SQPG\s+MRPT\s+(\d+)\s*;`)
	rePadding = regexp.MustCompile(`^SQPG\s+PADDING\s*;`)
	reLbgn    = regexp.MustCompile(`^SQPG\s+LBGN\s+(\d+)\s*;`)
	reLend    = regexp.MustCompile(`^SQPG\s+LEND\s*;`)
)

// ReadFile parses a whole AVC pattern file back into vectors, using the pin
// space for the inverse physical-to-logical name mapping.
func ReadFile(path string, space *vector.PinSpace) ([]vector.Vector, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("avc: open %s: %w", path, err)
	}
	defer file.Close()
	return Parse(file, space)
}

// Parse parses AVC statements from a reader.
func Parse(r io.Reader, space *vector.PinSpace) ([]vector.Vector, error) {
	p := &parser{space: space}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		p.lines = append(p.lines, sourceLine{text: line, no: lineNo})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("avc: read: %w", err)
	}
	vecs, err := p.parseSequence(nil)
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.lines) {
		return nil, p.errorf(p.lines[p.pos], "unexpected statement outside any block")
	}
	return vecs, nil
}

type sourceLine struct {
	text string
	no   int
}

type parser struct {
	space    *vector.PinSpace
	lines    []sourceLine
	pos      int
	pinOrder []string // logical names in FORMAT column order
}

// parseSequence consumes statements until one of the stop matchers (or end
// of input) and returns the vectors it built. The stopping statement is left
// for the caller to consume.
func (p *parser) parseSequence(stops []*regexp.Regexp) ([]vector.Vector, error) {
	var vecs []vector.Vector
	for p.pos < len(p.lines) {
		line := p.lines[p.pos]
		for _, stop := range stops {
			if stop.MatchString(line.text) {
				return vecs, nil
			}
		}
		p.pos++

		switch {
		case rePort.MatchString(line.text):
			// Port binding is header metadata only.
		case reFormat.MatchString(line.text):
			if err := p.readFormat(line); err != nil {
				return nil, err
			}
		case reNormal.MatchString(line.text):
			vec, err := p.readNormal(line)
			if err != nil {
				return nil, err
			}
			vecs = append(vecs, vec)
		case reLbgn.MatchString(line.text):
			repeat, _ := strconv.Atoi(reLbgn.FindStringSubmatch(line.text)[1])
			body, err := p.parseSequence([]*regexp.Regexp{reLend})
			if err != nil {
				return nil, err
			}
			if err := p.expect(reLend, "SQPG LEND"); err != nil {
				return nil, err
			}
			loop, err := vector.NewLoop(body, repeat)
			if err != nil {
				return nil, p.errorf(line, "%v", err)
			}
			vecs = append(vecs, loop)
		case reMact.MatchString(line.text):
			retries, _ := strconv.Atoi(reMact.FindStringSubmatch(line.text)[1])
			cond, err := p.parseSequence([]*regexp.Regexp{reMrpt})
			if err != nil {
				return nil, err
			}
			if err := p.expect(reMrpt, "SQPG MRPT"); err != nil {
				return nil, err
			}
			idle, err := p.parseSequence([]*regexp.Regexp{rePadding})
			if err != nil {
				return nil, err
			}
			if err := p.expect(rePadding, "SQPG PADDING"); err != nil {
				return nil, err
			}
			loop, err := vector.NewMatchedLoop(cond, idle, retries)
			if err != nil {
				return nil, p.errorf(line, "%v", err)
			}
			vecs = append(vecs, loop)
		default:
			return nil, p.errorf(line, "cannot parse statement")
		}
	}
	return vecs, nil
}

func (p *parser) expect(re *regexp.Regexp, what string) error {
	if p.pos >= len(p.lines) {
		return fmt.Errorf("avc: unexpected end of file, missing %s", what)
	}
	line := p.lines[p.pos]
	if !re.MatchString(line.text) {
		return p.errorf(line, "expected %s", what)
	}
	p.pos++
	return nil
}

// readFormat binds AVC columns to pins. Vector statements carry one state
// character per pin, so the FORMAT line must name every declared pin exactly
// once.
func (p *parser) readFormat(line sourceLine) error {
	columns := strings.Fields(reFormat.FindStringSubmatch(line.text)[1])
	p.pinOrder = make([]string, 0, len(columns))
	seen := make(map[string]bool, len(columns))
	for _, physical := range columns {
		logical, ok := p.space.Resolve(physical)
		if !ok {
			return p.errorf(line, "FORMAT names undeclared pin %q", physical)
		}
		if seen[logical] {
			return p.errorf(line, "FORMAT names pin %q twice", physical)
		}
		seen[logical] = true
		p.pinOrder = append(p.pinOrder, logical)
	}
	if len(p.pinOrder) != p.space.Len() {
		var missing []string
		for _, logical := range p.space.Names() {
			if !seen[logical] {
				missing = append(missing, logical)
			}
		}
		return p.errorf(line, "FORMAT misses declared pins %s", strings.Join(missing, ", "))
	}
	return nil
}

func (p *parser) readNormal(line sourceLine) (*vector.Normal, error) {
	if p.pinOrder == nil {
		return nil, p.errorf(line, "vector statement before FORMAT statement")
	}
	m := reNormal.FindStringSubmatch(line.text)
	repeat, _ := strconv.Atoi(m[1])
	states := m[3]
	if len(states) != len(p.pinOrder) {
		return nil, p.errorf(line, "vector carries %d states for %d pins", len(states), len(p.pinOrder))
	}
	pinStates := make(map[string]byte, len(p.pinOrder))
	for i, logical := range p.pinOrder {
		pinStates[logical] = states[i]
	}
	if repeat < 1 {
		return nil, p.errorf(line, "repeat count %d is below one", repeat)
	}
	return &vector.Normal{PinStates: pinStates, Repeat: repeat, Comment: m[4]}, nil
}

func (p *parser) errorf(line sourceLine, format string, args ...any) error {
	return fmt.Errorf("avc: line %d: %s", line.no, fmt.Sprintf(format, args...))
}
