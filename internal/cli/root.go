// Package cli wires the covidload commands.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "covidload",
	Short: "COVID-19 dataset loader for MongoDB",
	Long: `covidload moves the raw COVID-19 CSV exports into MongoDB collections
and builds the merged country-level dataset used for analysis.

Connection settings come from the environment (or a .env file):
  MONGO_URI       MongoDB connection string (required)
  DATABASE_NAME   Destination database name (required)

Exit Codes:
  0  - Success (per-record insert failures do not change this)
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration or manifest
  11 - Document store connection failed
  12 - Selection menu cancelled
  13 - Processing pipeline failed`,
	SilenceUsage: true,
}

var envFile string

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "",
		"Path to a .env file with MONGO_URI and DATABASE_NAME\n"+
			"(default: .env in the working directory, if present)")
}
