package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chiplabs/vecgen/pkg/vector"
)

const testYAML = `
device: vega
pins:
  - name: tck
    physical: pad_jtag_tck
    default: "0"
    dir: input
  - name: tms
    physical: pad_jtag_tms
    default: "0"
    dir: input
  - name: tdi
    physical: pad_jtag_tdi
    default: "0"
    dir: input
  - name: tdo
    physical: pad_jtag_tdo
    default: "X"
    dir: output
  - name: trst
    physical: pad_jtag_trst
    default: "1"
    dir: input
taps:
  - name: pulp
    ir_size: 5
  - name: riscv-dbg
    ir_size: 5
tester:
  port: dvc_1
  device_cycle: dvc_1
  wtb: Standard ATI
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(testYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Device != "vega" {
		t.Errorf("device = %q", cfg.Device)
	}
	if len(cfg.Pins) != 5 || len(cfg.Taps) != 2 {
		t.Fatalf("parsed %d pins, %d taps", len(cfg.Pins), len(cfg.Taps))
	}

	decls := cfg.PinDecls()
	tdo, ok := decls["tdo"]
	if !ok {
		t.Fatalf("tdo not declared")
	}
	if tdo.Name != "pad_jtag_tdo" || tdo.Default != 'X' || tdo.Dir != vector.DirOutput {
		t.Errorf("tdo decl = %#v", tdo)
	}

	avcCfg := cfg.AVCConfig()
	if avcCfg.Port != "dvc_1" || avcCfg.WTBName != "Standard ATI" {
		t.Errorf("avc config = %#v", avcCfg)
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
pins:
  - name: clk
    default: "0"
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	decls := cfg.PinDecls()
	clk := decls["clk"]
	if clk.Name != "clk" {
		t.Errorf("physical name defaults to %q, want logical name", clk.Name)
	}
	if clk.Dir != vector.DirInput {
		t.Errorf("direction defaults to %q, want input", clk.Dir)
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"no pins", "device: x"},
		{"unnamed pin", "pins:\n  - default: \"0\""},
		{"long default", "pins:\n  - name: a\n    default: \"01\""},
		{"missing default", "pins:\n  - name: a"},
		{"bad direction", "pins:\n  - name: a\n    default: \"0\"\n    dir: sideways"},
		{"unnamed tap", "pins:\n  - name: a\n    default: \"0\"\ntaps:\n  - ir_size: 5"},
		{"zero ir size", "pins:\n  - name: a\n    default: \"0\"\ntaps:\n  - name: t\n    ir_size: 0"},
		{"not yaml", "{{{{"},
	}
	for _, c := range cases {
		if _, err := Parse([]byte(c.yaml)); err == nil {
			t.Errorf("%s: accepted", c.name)
		}
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chip.yaml")
	if err := os.WriteFile(path, []byte(testYAML), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Device != "vega" {
		t.Errorf("device = %q", cfg.Device)
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Errorf("missing file accepted")
	}
}

func TestDriver(t *testing.T) {
	cfg, err := Parse([]byte(testYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	driver, err := cfg.Driver()
	if err != nil {
		t.Fatalf("Driver failed: %v", err)
	}
	if driver.IRLength() != 10 {
		t.Errorf("IRLength = %d, want 10", driver.IRLength())
	}
	names := driver.Taps()
	if strings.Join(names, ",") != "pulp,riscv-dbg" {
		t.Errorf("taps = %v", names)
	}

	// Pin defaults flow into the builder.
	state, err := driver.Builder().Get("trst")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if state != '1' {
		t.Errorf("trst default = %c", state)
	}
}
