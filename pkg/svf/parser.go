// Package svf parses a subset of the Serial Vector Format (SIR, SDR,
// RUNTEST, STATE, TRST) and compiles it into stimulus vectors through the
// chain driver. SVF addresses the scan chain as a whole, so compiled scans
// use the driver's raw shift primitives rather than per-tap padding.
package svf

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/participle/v2"
)

// Parser parses SVF pattern files.
type Parser struct {
	parser *participle.Parser[File]
}

// NewParser builds the SVF grammar.
func NewParser() (*Parser, error) {
	parser, err := participle.Build[File](
		participle.Lexer(SVFLexer),
		participle.Elide("Comment", "Whitespace"),
		participle.UseLookahead(2),
	)
	if err != nil {
		return nil, fmt.Errorf("svf: build parser: %w", err)
	}
	return &Parser{parser: parser}, nil
}

// Parse parses SVF statements from a reader.
func (p *Parser) Parse(r io.Reader) (*File, error) {
	file, err := p.parser.Parse("", r)
	if err != nil {
		return nil, fmt.Errorf("svf: parse error: %w", err)
	}
	return file, nil
}

// ParseString parses SVF statements from a string.
func (p *Parser) ParseString(input string) (*File, error) {
	file, err := p.parser.ParseString("", input)
	if err != nil {
		return nil, fmt.Errorf("svf: parse error: %w", err)
	}
	return file, nil
}

// ParseFile parses an SVF pattern file from disk.
func (p *Parser) ParseFile(path string) (*File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("svf: open %s: %w", path, err)
	}
	defer file.Close()
	return p.Parse(file)
}
