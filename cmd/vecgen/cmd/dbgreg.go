package cmd

import (
	"fmt"
	"strconv"

	"github.com/chiplabs/vecgen/pkg/avc"
	"github.com/chiplabs/vecgen/pkg/config"
	"github.com/chiplabs/vecgen/pkg/jtag"
	"github.com/chiplabs/vecgen/pkg/riscvtap"
	"github.com/chiplabs/vecgen/pkg/vector"
	"github.com/spf13/cobra"
)

var (
	dbgRegOutput   string
	dbgRegExpect   string
	dbgRegRetries  int
	dbgRegActivate bool
	dbgRegCompress bool
)

var dbgRegCmd = &cobra.Command{
	Use:   "dbg-reg <register> [value]",
	Short: "Access a debug module register through the RISC-V debug tap",
	Long: `Generate an AVC pattern that resets the chain, verifies the debug module
IDCODE and accesses one debug module register over DMI. With a value argument
the register is written; with --expect it is read and compared. Completion is
polled as a matched loop the tester retries. With --activate, DMACTIVE is
raised first.

The chain description must contain a tap named "riscv-dbg".

Examples:
  vecgen dbg-reg -c vega.yaml --activate 0x10 0x1 -o dmctl.avc
  vecgen dbg-reg -c vega.yaml --expect 0x400382 0x11 -o dmstatus.avc`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDbgReg,
}

func init() {
	rootCmd.AddCommand(dbgRegCmd)

	dbgRegCmd.Flags().StringVarP(&dbgRegOutput, "output", "o", "dbg.avc",
		"AVC pattern file to write")
	dbgRegCmd.Flags().StringVar(&dbgRegExpect, "expect", "",
		"32-bit value a register read must return")
	dbgRegCmd.Flags().IntVar(&dbgRegRetries, "retries", 10,
		"matched loop retries for the DMI completion poll")
	dbgRegCmd.Flags().BoolVar(&dbgRegActivate, "activate", false,
		"raise DMACTIVE before the access")
	dbgRegCmd.Flags().BoolVar(&dbgRegCompress, "compress", false,
		"merge identical adjacent vectors")
}

func runDbgReg(cmd *cobra.Command, args []string) error {
	regNum, err := strconv.ParseUint(args[0], 0, 8)
	if err != nil {
		return fmt.Errorf("invalid register address %q: %w", args[0], err)
	}
	addr, err := riscvtap.RegAddr(uint8(regNum))
	if err != nil {
		return err
	}
	if len(args) == 2 && dbgRegExpect != "" {
		return fmt.Errorf("a register access is either a write or a read, not both")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	driver, dbg, err := buildDebugChain(cfg)
	if err != nil {
		return err
	}

	vecs := driver.Reset("")
	verify, err := dbg.VerifyIDCode("")
	if err != nil {
		return err
	}
	vecs = append(vecs, verify...)
	initVecs, err := dbg.InitDMI()
	if err != nil {
		return err
	}
	vecs = append(vecs, initVecs...)

	if dbgRegActivate {
		active, err := dbg.SetDMActive(true)
		if err != nil {
			return err
		}
		vecs = append(vecs, active...)
	}

	switch {
	case len(args) == 2:
		value, err := strconv.ParseUint(args[1], 0, 32)
		if err != nil {
			return fmt.Errorf("invalid value %q: %w", args[1], err)
		}
		write, err := dbg.WriteDebugReg(addr, riscvtap.Word(uint32(value)), dbgRegRetries, "")
		if err != nil {
			return err
		}
		vecs = append(vecs, write...)
	case dbgRegExpect != "":
		expect, err := strconv.ParseUint(dbgRegExpect, 0, 32)
		if err != nil {
			return fmt.Errorf("invalid expected value %q: %w", dbgRegExpect, err)
		}
		read, err := dbg.ReadDebugReg(addr, riscvtap.Word(uint32(expect)), dbgRegRetries, "")
		if err != nil {
			return err
		}
		vecs = append(vecs, read...)
	default:
		return fmt.Errorf("pass a value to write or --expect for a read")
	}

	writer, err := avc.NewWriter(dbgRegOutput, driver.Builder().Space(), cfg.AVCConfig())
	if err != nil {
		return err
	}
	if err := writer.WriteVectors(vecs, dbgRegCompress); err != nil {
		writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", dbgRegOutput)
	return nil
}

// buildDebugChain builds the chain in configured order, instantiating the
// RISC-V debug tap extension at its declared position.
func buildDebugChain(cfg *config.Config) (*jtag.Driver, *riscvtap.Tap, error) {
	builder, err := vector.NewBuilder(cfg.PinDecls())
	if err != nil {
		return nil, nil, err
	}
	driver, err := jtag.NewDriver(builder)
	if err != nil {
		return nil, nil, err
	}
	var dbg *riscvtap.Tap
	for _, entry := range cfg.Taps {
		if entry.Name == "riscv-dbg" {
			if dbg != nil {
				return nil, nil, fmt.Errorf("chain declares more than one riscv-dbg tap")
			}
			if entry.IRSize != riscvtap.IRSize {
				return nil, nil, fmt.Errorf("riscv-dbg tap IR size is %d bits, config declares %d", riscvtap.IRSize, entry.IRSize)
			}
			dbg, err = riscvtap.New(driver, "")
			if err != nil {
				return nil, nil, err
			}
			continue
		}
		if _, err := driver.AddTap(entry.Name, entry.IRSize); err != nil {
			return nil, nil, err
		}
	}
	if dbg == nil {
		return nil, nil, fmt.Errorf("chain description has no tap named %q", "riscv-dbg")
	}
	return driver, dbg, nil
}
