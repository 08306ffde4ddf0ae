// Package loader orchestrates load jobs end to end: delimiter detection,
// file parsing, and batched insertion into the document store. Failures
// are contained per job so one bad file or a dropped connection never
// stops the files after it.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/covidlab/covidload/internal/checksum"
	"github.com/covidlab/covidload/internal/sniff"
	"github.com/covidlab/covidload/internal/store"
	"github.com/covidlab/covidload/internal/tabular"
	"github.com/covidlab/covidload/pkg/covidload"
)

// Orchestrator executes load jobs against a document store.
type Orchestrator struct {
	store  covidload.Store
	logger *slog.Logger
}

// New creates an Orchestrator. Panics if store or logger is nil.
func New(st covidload.Store, logger *slog.Logger) *Orchestrator {
	if st == nil {
		panic("store cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Orchestrator{
		store:  st,
		logger: logger,
	}
}

// FindJob returns the named job from jobs, or an error wrapping
// covidload.ErrJobNotFound.
func FindJob(jobs []covidload.LoadJob, name string) (covidload.LoadJob, error) {
	for _, job := range jobs {
		if job.Name == name {
			return job, nil
		}
	}
	return covidload.LoadJob{}, fmt.Errorf("%w: %q", covidload.ErrJobNotFound, name)
}

// RunJob executes one job and returns its outcome. It never returns an
// error: a missing file yields a skipped outcome, a severed connection a
// fatal one, and everything else a tally of inserted and failed records.
func (o *Orchestrator) RunJob(ctx context.Context, job covidload.LoadJob) covidload.LoadOutcome {
	start := time.Now()
	log := o.logger.With("job", job.Name, "source", job.SourcePath, "collection", job.Collection)

	log.Info("job started")

	delim := sniff.Detect(job.SourcePath, log)

	table, coerced, err := tabular.ReadFile(job.SourcePath, delim, log)
	if err != nil {
		if errors.Is(err, covidload.ErrFileAccess) {
			log.Warn("source file not accessible, skipping job", "error", err.Error())
		} else {
			log.Error("source file unreadable, skipping job", "error", err.Error())
		}
		return covidload.LoadOutcome{
			Job:      job,
			Skipped:  true,
			Duration: time.Since(start),
		}
	}

	if sum, err := checksum.File(job.SourcePath); err == nil {
		log.Info("source fingerprint", "sha256", sum)
	} else {
		log.Warn("source fingerprint unavailable", "error", err.Error())
	}

	docs := table.Documents()
	inserter := store.NewInserter(o.store.Collection(job.Collection), log)
	result := inserter.InsertAll(ctx, docs, job.EffectiveBatchSize())

	outcome := covidload.LoadOutcome{
		Job:          job,
		RecordsRead:  len(docs),
		Inserted:     result.Inserted,
		Failed:       result.Failed,
		CoercedCells: coerced,
		Failures:     result.Failures,
		Fatal:        result.Fatal,
		Duration:     time.Since(start),
	}

	if outcome.Fatal != nil {
		log.Error("job aborted",
			"records", outcome.RecordsRead,
			"inserted", outcome.Inserted,
			"failed", outcome.Failed,
			"error", outcome.Fatal.Error())
	} else {
		log.Info("job finished",
			"records", outcome.RecordsRead,
			"inserted", outcome.Inserted,
			"failed", outcome.Failed,
			"coerced_cells", outcome.CoercedCells,
			"duration", outcome.Duration.String())
	}

	return outcome
}

// RunAll executes jobs sequentially in the given order and returns the
// aggregated summary. A connection failure in one job does not stop the
// next: each job gets a fresh attempt against the store. A cancelled
// context does stop the run: no further job is started once ctx is done.
func (o *Orchestrator) RunAll(ctx context.Context, jobs []covidload.LoadJob) covidload.RunSummary {
	start := time.Now()
	summary := covidload.RunSummary{RunID: uuid.New()}
	log := o.logger.With("run_id", summary.RunID.String())

	log.Info("run started", "jobs", len(jobs))

	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			log.Warn("run cancelled, remaining jobs not started",
				"jobs_skipped", len(jobs)-len(summary.Outcomes),
				"error", err.Error())
			break
		}
		summary.Outcomes = append(summary.Outcomes, o.RunJob(ctx, job))
	}

	summary.Duration = time.Since(start)

	log.Info("run finished",
		"jobs", len(jobs),
		"files_loaded", summary.FilesAttempted(),
		"inserted", summary.TotalInserted(),
		"failed", summary.TotalFailed(),
		"duration", summary.Duration.String())

	return summary
}
