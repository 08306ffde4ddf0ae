// Package etl builds the merged country-level dataset out of the four raw
// COVID exports: cleaning, country-code mapping, joining, and persisting
// the result as both a CSV file and a store collection.
package etl

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/covidlab/covidload/internal/sniff"
	"github.com/covidlab/covidload/internal/store"
	"github.com/covidlab/covidload/internal/tabular"
	"github.com/covidlab/covidload/pkg/covidload"
)

// Raw export file names, as published.
const (
	FileDeathVacc    = "covid-vaccinations-vs-covid-death-rate.csv"
	FileManufacturer = "covid-vaccine-doses-by-manufacturer.csv"
	FileOECDHealth   = "OECD_health_expenditure.csv"
	FileUSDeathRates = "united-states-rates-of-covid-19-deaths-by-vaccination-status.csv"

	// MergedFileName is the processed output written next to the raw data.
	MergedFileName = "merged_data.csv"

	// MergedCollection is the default destination collection for the
	// merged dataset.
	MergedCollection = "merged_data"
)

// Options configure one processing run.
type Options struct {
	// RawDir is the directory holding the four raw exports.
	RawDir string

	// ProcessedDir is where the merged CSV is written.
	ProcessedDir string

	// Collection is the destination collection for the merged rows.
	// Empty skips the store entirely (CSV output only).
	Collection string

	// BatchSize is the bulk insert batch size. Zero means the default.
	BatchSize int
}

// Result is the tally of one processing run.
type Result struct {
	// Rows is the size of the merged dataset.
	Rows int

	// OutputPath is the merged CSV location.
	OutputPath string

	// Inserted and Failed count store writes. Zero when Options.Collection
	// was empty.
	Inserted int
	Failed   int
}

// Processor runs the merge pipeline. The store may be nil when only CSV
// output is wanted.
type Processor struct {
	store  covidload.Store
	logger *slog.Logger
}

// New creates a Processor. Panics if logger is nil; a nil store is
// allowed and limits runs to CSV output.
func New(st covidload.Store, logger *slog.Logger) *Processor {
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Processor{
		store:  st,
		logger: logger,
	}
}

// Run executes the pipeline: read and clean the four raw datasets, merge
// them, write the merged CSV, and insert the merged rows into the store.
func (p *Processor) Run(ctx context.Context, opts Options) (*Result, error) {
	p.logger.Info("processing started", "raw_dir", opts.RawDir)

	deathVacc, err := p.readTable(filepath.Join(opts.RawDir, FileDeathVacc))
	if err != nil {
		return nil, err
	}
	doses, err := p.readTable(filepath.Join(opts.RawDir, FileManufacturer))
	if err != nil {
		return nil, err
	}
	oecd, err := p.readTable(filepath.Join(opts.RawDir, FileOECDHealth))
	if err != nil {
		return nil, err
	}
	usRates, err := p.readTable(filepath.Join(opts.RawDir, FileUSDeathRates))
	if err != nil {
		return nil, err
	}

	cleanedOECD, err := CleanOECDHealth(oecd, p.logger)
	if err != nil {
		return nil, err
	}

	merged, err := Merge(
		CleanDeathVacc(deathVacc),
		CleanDosesManufacturer(doses),
		cleanedOECD,
		CleanUSDeathRates(usRates),
		p.logger,
	)
	if err != nil {
		return nil, err
	}

	result := &Result{Rows: merged.Len()}

	if opts.ProcessedDir != "" {
		path, err := p.writeMerged(merged, opts.ProcessedDir)
		if err != nil {
			return nil, err
		}
		result.OutputPath = path
	}

	if opts.Collection != "" && p.store != nil {
		inserter := store.NewInserter(p.store.Collection(opts.Collection), p.logger)
		outcome := inserter.InsertAll(ctx, merged.Documents(), opts.BatchSize)
		result.Inserted = outcome.Inserted
		result.Failed = outcome.Failed
		if outcome.Fatal != nil {
			return result, fmt.Errorf("storing merged data: %w", outcome.Fatal)
		}
	}

	p.logger.Info("processing finished",
		"rows", result.Rows,
		"output", result.OutputPath,
		"inserted", result.Inserted,
		"failed", result.Failed)

	return result, nil
}

func (p *Processor) readTable(path string) (*tabular.Table, error) {
	delim := sniff.Detect(path, p.logger)
	table, _, err := tabular.ReadFile(path, delim, p.logger)
	if err != nil {
		return nil, err
	}
	return table, nil
}

func (p *Processor) writeMerged(t *tabular.Table, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}

	path := filepath.Join(dir, MergedFileName)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := t.WriteCSV(f); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}

	p.logger.Info("merged data written", "path", path, "rows", t.Len())
	return path, nil
}
