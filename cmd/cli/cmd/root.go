// Package cmd provides the CLI commands for ocpi-cost.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ocpi-cost/internal/config"
	"ocpi-cost/internal/logging"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "ocpi-cost",
	Short: "Calculate EV charging session costs from CDRs and tariffs",
	Long: `ocpi-cost prices electric-vehicle charging sessions.

It takes a charge detail record (CDR) and a tariff definition as OCPI
JSON documents, resolves which tariff elements apply to each charging
period, and produces the session price. Both OCPI 2.1.1 and 2.2.1
calculation rules are supported.

Examples:
  ocpi-cost price cdr.json tariff.json
  ocpi-cost price --ocpi-version 2.1.1 cdr.json tariff.json
  ocpi-cost price --format json cdr.json`,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.ocpi-cost.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	// Add subcommands
	rootCmd.AddCommand(priceCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		config.Set(cfg)
	}

	// Initialize logging
	cfg := config.Get()
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("ocpi-cost version 0.1.0")
	},
}
