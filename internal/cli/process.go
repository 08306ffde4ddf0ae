package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/covidlab/covidload/internal/etl"
	"github.com/covidlab/covidload/internal/store"
	"github.com/covidlab/covidload/pkg/covidload"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Build the merged country-level dataset",
	Long: `Process cleans the four raw COVID datasets, maps entities to ISO
alpha-3 country codes, and joins them into one country-level table:
manufacturer doses by Entity, Code and Day, OECD health expenditure by
country and year, and yearly mean US death rates by vaccination status.

The merged table is written to <out-dir>/merged_data.csv and inserted
into the merged_data collection unless --csv-only is given.

Examples:
  # Merge and store
  covidload process --data-dir data/raw

  # CSV output only, no store connection
  covidload process --data-dir data/raw --csv-only`,
	Args: cobra.NoArgs,
	RunE: runProcess,
}

type processFlagValues struct {
	dataDir    string
	outDir     string
	collection string
	csvOnly    bool
	batchSize  int
}

var processFlags processFlagValues

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringVar(&processFlags.dataDir, "data-dir", "data/raw",
		"Directory holding the four raw CSV files")
	processCmd.Flags().StringVar(&processFlags.outDir, "out-dir", "data/processed",
		"Directory for the merged CSV output")
	processCmd.Flags().StringVar(&processFlags.collection, "collection", etl.MergedCollection,
		"Destination collection for the merged rows")
	processCmd.Flags().BoolVar(&processFlags.csvOnly, "csv-only", false,
		"Write the merged CSV without touching the store")
	processCmd.Flags().IntVar(&processFlags.batchSize, "batch-size", 0,
		fmt.Sprintf("Records per bulk insert (default %d)", covidload.DefaultBatchSize))
}

func runProcess(cmd *cobra.Command, args []string) error {
	logger, closeLogger, err := newLogger()
	if err != nil {
		return err
	}
	defer closeLogger() //nolint:errcheck

	ctx, cancel := signalContext()
	defer cancel()

	opts := etl.Options{
		RawDir:       processFlags.dataDir,
		ProcessedDir: processFlags.outDir,
		BatchSize:    processFlags.batchSize,
	}

	var st covidload.Store
	if !processFlags.csvOnly {
		env, err := loadEnv()
		if err != nil {
			return err
		}
		client, err := store.Connect(ctx, env.MongoURI, env.Database, logger)
		if err != nil {
			return err
		}
		defer client.Close(context.Background()) //nolint:errcheck
		st = client
		opts.Collection = processFlags.collection
	}

	result, err := etl.New(st, logger).Run(ctx, opts)
	if err != nil {
		return err
	}

	fmt.Printf("merged %d rows into %s\n", result.Rows, result.OutputPath)
	if !processFlags.csvOnly {
		fmt.Printf("stored %d rows in %q (%d failed)\n", result.Inserted, processFlags.collection, result.Failed)
	}
	return nil
}
