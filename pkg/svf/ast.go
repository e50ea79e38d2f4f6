package svf

// File is a parsed SVF pattern: a flat list of statements.
type File struct {
	Statements []*Statement `parser:"@@*"`
}

// Statement is one semicolon-terminated SVF statement.
type Statement struct {
	SIR     *ScanStmt    `parser:"( KwSIR @@"`
	SDR     *ScanStmt    `parser:"| KwSDR @@"`
	RunTest *RunTestStmt `parser:"| KwRunTest @@"`
	State   *StateStmt   `parser:"| KwState @@"`
	Trst    *TrstStmt    `parser:"| KwTrst @@ ) Semicolon"`
}

// ScanStmt is the body of an SIR or SDR statement: the shift length in bits
// followed by parenthesized hex parameters.
type ScanStmt struct {
	Length int          `parser:"@Number"`
	Params []*ScanParam `parser:"@@*"`
}

// ScanParam is a single TDI/TDO/MASK/SMASK argument.
type ScanParam struct {
	TDI   *string `parser:"  KwTDI @HexValue"`
	TDO   *string `parser:"| KwTDO @HexValue"`
	Mask  *string `parser:"| KwMask @HexValue"`
	SMask *string `parser:"| KwSmask @HexValue"`
}

// RunTestStmt holds the controller in Run-Test/Idle for a number of cycles.
type RunTestStmt struct {
	Count int  `parser:"@Number"`
	TCK   bool `parser:"@KwTCK?"`
}

// StateStmt forces the controller into a stable state.
type StateStmt struct {
	Reset bool `parser:"( @KwReset"`
	Idle  bool `parser:"| @KwIdle )"`
}

// TrstStmt drives the optional test reset pin.
type TrstStmt struct {
	On  bool `parser:"( @KwOn"`
	Off bool `parser:"| @KwOff )"`
}

// tdi returns the TDI parameter of a scan statement, if present.
func (s *ScanStmt) tdi() *string {
	for _, p := range s.Params {
		if p.TDI != nil {
			return p.TDI
		}
	}
	return nil
}

func (s *ScanStmt) tdo() *string {
	for _, p := range s.Params {
		if p.TDO != nil {
			return p.TDO
		}
	}
	return nil
}

func (s *ScanStmt) mask() *string {
	for _, p := range s.Params {
		if p.Mask != nil {
			return p.Mask
		}
	}
	return nil
}
