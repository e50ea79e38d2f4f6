package cmd

import (
	"fmt"

	"github.com/chiplabs/vecgen/pkg/avc"
	"github.com/chiplabs/vecgen/pkg/config"
	"github.com/chiplabs/vecgen/pkg/replay"
	"github.com/chiplabs/vecgen/pkg/svf"
	"github.com/spf13/cobra"
)

var (
	generateOutput   string
	generateCompress bool
	generateCheck    bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <svf-file>",
	Short: "Compile an SVF pattern into an AVC vector file",
	Long: `Parse an SVF pattern (SIR, SDR, RUNTEST, STATE, TRST), compile it into
stimulus vectors against the configured scan chain and write the AVC pattern
file together with its wavetable and timing format companions.

Examples:
  vecgen generate -c vega.yaml boot.svf -o boot.avc
  vecgen generate -c vega.yaml --check --compress flash.svf -o flash.avc`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "out.avc",
		"AVC pattern file to write")
	generateCmd.Flags().BoolVar(&generateCompress, "compress", false,
		"merge identical adjacent vectors")
	generateCmd.Flags().BoolVar(&generateCheck, "check", false,
		"replay the vectors against the chain model before writing")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	driver, err := cfg.Driver()
	if err != nil {
		return err
	}

	parser, err := svf.NewParser()
	if err != nil {
		return err
	}
	file, err := parser.ParseFile(args[0])
	if err != nil {
		return err
	}
	if verbose {
		fmt.Printf("Parsed %d SVF statements from %s\n", len(file.Statements), args[0])
	}

	vecs, err := svf.Compile(file, driver)
	if err != nil {
		return err
	}

	if generateCheck {
		taps := make([]replay.TapDef, len(cfg.Taps))
		for i, entry := range cfg.Taps {
			taps[i] = replay.TapDef{Name: entry.Name, IRSize: entry.IRSize}
		}
		engine, err := replay.New(driver.Builder().Space(), taps)
		if err != nil {
			return err
		}
		result, err := engine.Run(vecs)
		if err != nil {
			return err
		}
		if verbose {
			for _, line := range result.Trace {
				fmt.Println(line)
			}
		}
		if !result.OK() {
			for _, m := range result.Mismatches {
				fmt.Println(m)
			}
			return fmt.Errorf("replay check failed with %d mismatches over %d cycles",
				len(result.Mismatches), result.Cycles)
		}
		fmt.Printf("Replay check passed: %d cycles\n", result.Cycles)
	}

	writer, err := avc.NewWriter(generateOutput, driver.Builder().Space(), cfg.AVCConfig())
	if err != nil {
		return err
	}
	if err := writer.WriteVectors(vecs, generateCompress); err != nil {
		writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", generateOutput)
	return nil
}
