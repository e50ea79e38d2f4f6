package cmd

import (
	"fmt"
	"strconv"

	"github.com/chiplabs/vecgen/pkg/avc"
	"github.com/chiplabs/vecgen/pkg/config"
	"github.com/chiplabs/vecgen/pkg/jtag"
	"github.com/chiplabs/vecgen/pkg/pulptap"
	"github.com/chiplabs/vecgen/pkg/vector"
	"github.com/spf13/cobra"
)

var (
	writeMemOutput   string
	writeMemAddr     string
	writeMemVerify   bool
	writeMemRetries  int
	writeMemCompress bool
)

var writeMemCmd = &cobra.Command{
	Use:   "write-mem <word>...",
	Short: "Write memory words through the PULP debug tap",
	Long: `Generate an AVC pattern that resets the chain, selects the adv-dbg unit
on the PULP tap and writes the given 32-bit words as a burst starting at the
given address. With --verify, a read burst compares the words back; the ready
poll is emitted as a matched loop the tester retries.

The chain description must contain a tap named "pulp".

Examples:
  vecgen write-mem -c vega.yaml --addr 0x1c008080 0xdeadbeef -o mem.avc
  vecgen write-mem -c vega.yaml --addr 0x1c000000 --verify 0x1 0x2 0x3 0x4 -o mem.avc`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWriteMem,
}

func init() {
	rootCmd.AddCommand(writeMemCmd)

	writeMemCmd.Flags().StringVarP(&writeMemOutput, "output", "o", "mem.avc",
		"AVC pattern file to write")
	writeMemCmd.Flags().StringVar(&writeMemAddr, "addr", "",
		"32-bit start address")
	writeMemCmd.Flags().BoolVar(&writeMemVerify, "verify", false,
		"read the words back after writing")
	writeMemCmd.Flags().IntVar(&writeMemRetries, "retries", 10,
		"matched loop retries for the read ready poll")
	writeMemCmd.Flags().BoolVar(&writeMemCompress, "compress", false,
		"merge identical adjacent vectors")
	writeMemCmd.MarkFlagRequired("addr")
}

func runWriteMem(cmd *cobra.Command, args []string) error {
	addr64, err := strconv.ParseUint(writeMemAddr, 0, 32)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", writeMemAddr, err)
	}
	addr := uint32(addr64)

	words := make([]uint32, len(args))
	for i, arg := range args {
		word, err := strconv.ParseUint(arg, 0, 32)
		if err != nil {
			return fmt.Errorf("invalid word %q: %w", arg, err)
		}
		words[i] = uint32(word)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	driver, pulp, err := buildPulpChain(cfg)
	if err != nil {
		return err
	}

	vecs := driver.Reset("")
	initVecs, err := pulp.Init()
	if err != nil {
		return err
	}
	vecs = append(vecs, initVecs...)

	write, err := pulp.Write32(addr, words, "")
	if err != nil {
		return err
	}
	vecs = append(vecs, write...)

	if writeMemVerify {
		read, err := pulp.Read32(addr, words, writeMemRetries, "")
		if err != nil {
			return err
		}
		vecs = append(vecs, read...)
	}

	writer, err := avc.NewWriter(writeMemOutput, driver.Builder().Space(), cfg.AVCConfig())
	if err != nil {
		return err
	}
	if err := writer.WriteVectors(vecs, writeMemCompress); err != nil {
		writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", writeMemOutput)
	return nil
}

// buildPulpChain builds the chain in configured order, instantiating the
// PULP tap extension at its declared position.
func buildPulpChain(cfg *config.Config) (*jtag.Driver, *pulptap.Tap, error) {
	builder, err := vector.NewBuilder(cfg.PinDecls())
	if err != nil {
		return nil, nil, err
	}
	driver, err := jtag.NewDriver(builder)
	if err != nil {
		return nil, nil, err
	}
	var pulp *pulptap.Tap
	for _, entry := range cfg.Taps {
		if entry.Name == "pulp" {
			if pulp != nil {
				return nil, nil, fmt.Errorf("chain declares more than one pulp tap")
			}
			if entry.IRSize != pulptap.IRSize {
				return nil, nil, fmt.Errorf("pulp tap IR size is %d bits, config declares %d", pulptap.IRSize, entry.IRSize)
			}
			pulp, err = pulptap.New(driver)
			if err != nil {
				return nil, nil, err
			}
			continue
		}
		if _, err := driver.AddTap(entry.Name, entry.IRSize); err != nil {
			return nil, nil, err
		}
	}
	if pulp == nil {
		return nil, nil, fmt.Errorf("chain description has no tap named %q", "pulp")
	}
	return driver, pulp, nil
}
