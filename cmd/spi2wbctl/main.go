package main

import (
	"fmt"
	"os"

	"github.com/danmuck/spi2wb/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "spi2wbctl",
	Short:         "Drive and verify an SPI-to-Wishbone bridge.",
	Long:          "Runs scenario suites against the bridge model or real hardware and checks the bus transactions they cause.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := resolveSettings(cmd)
		if err != nil {
			return err
		}
		cfg := logging.RuntimeConfig()
		if lvl, ok := logging.ParseLevel(s.LogLevel); ok {
			cfg.Level = lvl
		}
		logging.Apply(cfg)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "settings file (toml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: trace|debug|info|warn|error")
	rootCmd.PersistentFlags().String("suite", "", "scenario suite file; built-in scenarios when empty")
	rootCmd.PersistentFlags().String("transport", "", "byte transport: sim|spidev")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "spi2wbctl: %v\n", err)
		os.Exit(1)
	}
}
