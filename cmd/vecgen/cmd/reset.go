package cmd

import (
	"fmt"

	"github.com/chiplabs/vecgen/pkg/avc"
	"github.com/chiplabs/vecgen/pkg/config"
	"github.com/chiplabs/vecgen/pkg/vector"
	"github.com/spf13/cobra"
)

var (
	resetOutput string
	resetIdle   int
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Emit a TAP controller reset pattern",
	Long: `Write an AVC pattern that brings every TAP controller on the chain into
Test-Logic-Reset and parks it in Run-Test/Idle for a number of idle cycles.

Examples:
  vecgen reset -c vega.yaml -o reset.avc
  vecgen reset -c vega.yaml --idle 100 -o reset.avc`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().StringVarP(&resetOutput, "output", "o", "reset.avc",
		"AVC pattern file to write")
	resetCmd.Flags().IntVar(&resetIdle, "idle", 10,
		"idle cycles after the reset")
}

func runReset(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	driver, err := cfg.Driver()
	if err != nil {
		return err
	}

	vecs := driver.Reset("")
	if resetIdle > 0 {
		idle, err := driver.IdleVector(resetIdle, fmt.Sprintf("idle for %d cycles", resetIdle))
		if err != nil {
			return err
		}
		vecs = append(vecs, vector.Vector(idle))
	}

	writer, err := avc.NewWriter(resetOutput, driver.Builder().Space(), cfg.AVCConfig())
	if err != nil {
		return err
	}
	if err := writer.WriteVectors(vecs, false); err != nil {
		writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", resetOutput)
	return nil
}
