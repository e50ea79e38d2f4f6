// Package config loads the device description: pin declarations, scan chain
// topology and tester-side naming. The file format is YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/chiplabs/vecgen/pkg/avc"
	"github.com/chiplabs/vecgen/pkg/jtag"
	"github.com/chiplabs/vecgen/pkg/vector"
)

// Pin declares one pin of the device under test.
type Pin struct {
	Name     string `yaml:"name"`               // logical name used in chip code
	Physical string `yaml:"physical,omitempty"` // pad name; defaults to the logical name
	Default  string `yaml:"default"`            // single state character
	Dir      string `yaml:"dir,omitempty"`      // input, output or inout
}

// TapEntry declares one tap of the scan chain, in the order TDI traverses
// the chain.
type TapEntry struct {
	Name   string `yaml:"name"`
	IRSize int    `yaml:"ir_size"`
}

// Tester carries the AVC export naming.
type Tester struct {
	Port        string `yaml:"port,omitempty"`
	DeviceCycle string `yaml:"device_cycle,omitempty"`
	WTB         string `yaml:"wtb,omitempty"`
}

// Config is a parsed device description file.
type Config struct {
	Device string     `yaml:"device,omitempty"`
	Pins   []Pin      `yaml:"pins"`
	Taps   []TapEntry `yaml:"taps"`
	Tester Tester     `yaml:"tester,omitempty"`
}

// Load reads and validates a device description file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a device description.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.Pins) == 0 {
		return fmt.Errorf("config: no pins declared")
	}
	for i, pin := range c.Pins {
		if pin.Name == "" {
			return fmt.Errorf("config: pin %d has no name", i)
		}
		if len(pin.Default) != 1 {
			return fmt.Errorf("config: pin %q default must be a single state character, got %q", pin.Name, pin.Default)
		}
		switch vector.Direction(pin.Dir) {
		case "", vector.DirInput, vector.DirOutput, vector.DirInOut:
		default:
			return fmt.Errorf("config: pin %q has unknown direction %q", pin.Name, pin.Dir)
		}
	}
	for i, entry := range c.Taps {
		if entry.Name == "" {
			return fmt.Errorf("config: tap %d has no name", i)
		}
		if entry.IRSize < 1 {
			return fmt.Errorf("config: tap %q needs an IR size of at least one bit, got %d", entry.Name, entry.IRSize)
		}
	}
	return nil
}

// PinDecls converts the pin list to the declaration table a pin space is
// built from.
func (c *Config) PinDecls() map[string]vector.PinDecl {
	decls := make(map[string]vector.PinDecl, len(c.Pins))
	for _, pin := range c.Pins {
		physical := pin.Physical
		if physical == "" {
			physical = pin.Name
		}
		dir := vector.Direction(pin.Dir)
		if dir == "" {
			dir = vector.DirInput
		}
		decls[pin.Name] = vector.PinDecl{
			Name:    physical,
			Default: pin.Default[0],
			Dir:     dir,
		}
	}
	return decls
}

// AVCConfig maps the tester section onto the AVC writer configuration.
func (c *Config) AVCConfig() avc.Config {
	return avc.Config{
		Port:        c.Tester.Port,
		DeviceCycle: c.Tester.DeviceCycle,
		WTBName:     c.Tester.WTB,
	}
}

// Driver builds a chain driver over a fresh builder from the description:
// pin space, topology, pin defaults.
func (c *Config) Driver() (*jtag.Driver, error) {
	builder, err := vector.NewBuilder(c.PinDecls())
	if err != nil {
		return nil, err
	}
	driver, err := jtag.NewDriver(builder)
	if err != nil {
		return nil, err
	}
	for _, entry := range c.Taps {
		if _, err := driver.AddTap(entry.Name, entry.IRSize); err != nil {
			return nil, fmt.Errorf("config: tap %q: %w", entry.Name, err)
		}
	}
	return driver, nil
}
