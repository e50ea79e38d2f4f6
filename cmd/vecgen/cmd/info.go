package cmd

import (
	"fmt"

	"github.com/chiplabs/vecgen/pkg/config"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the configured pin space and scan chain",
	Args:  cobra.NoArgs,
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	driver, err := cfg.Driver()
	if err != nil {
		return err
	}
	space := driver.Builder().Space()

	if cfg.Device != "" {
		fmt.Printf("Device: %s\n\n", cfg.Device)
	}

	fmt.Printf("Pins: %d total\n", space.Len())
	for _, logical := range space.Names() {
		decl, _ := space.Decl(logical)
		fmt.Printf("  %-16s -> %-24s default=%c %s\n", logical, decl.Name, decl.Default, decl.Dir)
	}
	fmt.Println()

	fmt.Printf("Scan chain: %d taps, %d IR bits total\n", len(cfg.Taps), driver.IRLength())
	for i, entry := range cfg.Taps {
		fmt.Printf("  %d: %-16s IR %d bits\n", i, entry.Name, entry.IRSize)
	}
	return nil
}
