package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "vecgen",
	Short: "JTAG stimulus vector generator",
	Long: `Generates deterministic ASIC stimulus vectors for JTAG scan chains and
writes them as HP93000 AVC pattern files.

Examples:
  vecgen info -c vega.yaml                           # Show the configured chain
  vecgen generate -c vega.yaml boot.svf -o boot.avc  # Compile an SVF pattern
  vecgen reset -c vega.yaml -o reset.avc             # Emit a TAP reset pattern
  vecgen write-mem -c vega.yaml --addr 0x1c008080 0xdeadbeef -o mem.avc`,
	Version: "0.3.0",
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "device description file (YAML)")
	rootCmd.MarkPersistentFlagRequired("config")
}
