package svf

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// SVFLexer defines the lexical structure of the supported Serial Vector
// Format subset. SVF keywords are case-insensitive; comments start with
// "//" or "!".
var SVFLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `(?://|!)[^\n]*`},
	{Name: "Whitespace", Pattern: `[\s\t\n\r]+`},

	// Statement keywords
	{Name: "KwSIR", Pattern: `(?i)\bSIR\b`},
	{Name: "KwSDR", Pattern: `(?i)\bSDR\b`},
	{Name: "KwRunTest", Pattern: `(?i)\bRUNTEST\b`},
	{Name: "KwState", Pattern: `(?i)\bSTATE\b`},
	{Name: "KwTrst", Pattern: `(?i)\bTRST\b`},

	// Scan parameters
	{Name: "KwTDI", Pattern: `(?i)\bTDI\b`},
	{Name: "KwTDO", Pattern: `(?i)\bTDO\b`},
	{Name: "KwMask", Pattern: `(?i)\bMASK\b`},
	{Name: "KwSmask", Pattern: `(?i)\bSMASK\b`},

	// Argument keywords
	{Name: "KwTCK", Pattern: `(?i)\bTCK\b`},
	{Name: "KwOn", Pattern: `(?i)\bON\b`},
	{Name: "KwOff", Pattern: `(?i)\bOFF\b`},
	{Name: "KwReset", Pattern: `(?i)\bRESET\b`},
	{Name: "KwIdle", Pattern: `(?i)\bIDLE\b`},

	// Hex values are always parenthesized in SVF
	{Name: "HexValue", Pattern: `\(\s*[0-9A-Fa-f][0-9A-Fa-f\s]*\)`},
	{Name: "Number", Pattern: `\d+`},

	{Name: "Semicolon", Pattern: `;`},
})
