package commands

import (
	"github.com/spf13/cobra"
)

var verbose bool

// rootCmd is the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "credmon",
	Short: "Continuous credit risk scoring for ticker-tracked companies",
	Long: `credmon ingests financial statements, market quotes and news
headlines, maintains a 0-100 composite credit score per company, and
explains every score movement down to the feature that caused it.

Examples:
  credmon api
  credmon scheduler
  credmon score AAPL
  credmon status AAPL`,
}

// Execute runs the CLI. It is called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
