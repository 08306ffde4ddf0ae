package covidload

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LoadJob is the unit of work mapping one source file to one destination
// collection. Jobs are immutable once built from the manifest.
type LoadJob struct {
	// Name identifies the job in the menu, logs, and outcomes.
	Name string

	// SourcePath is the delimited text file to load. Existence is checked
	// at load time, not at configuration time: a missing file is an
	// expected runtime condition, not a configuration error.
	SourcePath string

	// Collection is the destination collection name.
	Collection string

	// BatchSize is the number of records per bulk insert.
	// Zero means DefaultBatchSize.
	BatchSize int
}

// EffectiveBatchSize returns the batch size to use for this job.
func (j LoadJob) EffectiveBatchSize() int {
	if j.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return j.BatchSize
}

// Validate checks the job for configuration errors. Source path existence
// is deliberately not checked here.
func (j LoadJob) Validate() error {
	var errs []error

	if j.Name == "" {
		errs = append(errs, fmt.Errorf("job name is required: %w", ErrInvalidConfig))
	}
	if j.SourcePath == "" {
		errs = append(errs, fmt.Errorf("job %q: source path is required: %w", j.Name, ErrInvalidConfig))
	}
	if j.Collection == "" {
		errs = append(errs, fmt.Errorf("job %q: collection is required: %w", j.Name, ErrInvalidConfig))
	}
	if j.BatchSize < 0 {
		errs = append(errs, fmt.Errorf("job %q: batch size cannot be negative: %w", j.Name, ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// RecordFailure describes one record the store rejected, or one record
// abandoned because its batch never completed.
type RecordFailure struct {
	// BatchIndex is the 1-based index of the batch the record belonged to.
	BatchIndex int

	// RecordIndex is the record's index in the original record sequence.
	RecordIndex int

	// Code is the store-provided error code, if any.
	Code int

	// Reason is the store-provided failure detail.
	Reason string
}

// BatchResult is the outcome of one unordered bulk insert attempt.
type BatchResult struct {
	// Index is the 1-based batch sequence index.
	Index int

	// Size is the number of records submitted in this batch.
	Size int

	// Inserted is the number of records the store acknowledged.
	Inserted int

	// Failures lists the rejected records with store detail.
	Failures []RecordFailure

	// Err is set for whole-batch failures (the store attempted nothing,
	// or the attempt itself failed). Nil for full or partial success.
	Err error
}

// LoadOutcome is the summary result of executing one LoadJob.
// Invariant: Inserted + Failed <= RecordsRead, and Inserted + Failed ==
// RecordsRead once every batch has been attempted or abandoned.
type LoadOutcome struct {
	Job LoadJob

	// RecordsRead counts the records parsed from the source file.
	RecordsRead int

	// Inserted counts records durably acknowledged by the store.
	Inserted int

	// Failed counts rejected and abandoned records.
	Failed int

	// CoercedCells counts date/time cells downgraded to missing during
	// parsing. Coercion is not an insert failure.
	CoercedCells int

	// Failures lists per-record failure details across all batches.
	Failures []RecordFailure

	// Skipped is true when the source file was missing or unreadable and
	// the job yielded no records.
	Skipped bool

	// Fatal is the connection error that aborted the job, if any.
	// Remaining unattempted records are counted in Failed.
	Fatal error

	// Duration is the wall time the job took.
	Duration time.Duration
}

// RunSummary aggregates outcomes across a full orchestration run.
type RunSummary struct {
	// RunID correlates log records and outcomes of one invocation.
	RunID uuid.UUID

	// Outcomes holds one entry per attempted job, in manifest order.
	Outcomes []LoadOutcome

	// Duration is the wall time of the whole run.
	Duration time.Duration
}

// FilesAttempted counts jobs that produced records (skipped jobs excluded).
func (s RunSummary) FilesAttempted() int {
	n := 0
	for _, o := range s.Outcomes {
		if !o.Skipped {
			n++
		}
	}
	return n
}

// TotalInserted sums inserted records across all jobs.
func (s RunSummary) TotalInserted() int {
	n := 0
	for _, o := range s.Outcomes {
		n += o.Inserted
	}
	return n
}

// TotalFailed sums failed records across all jobs.
func (s RunSummary) TotalFailed() int {
	n := 0
	for _, o := range s.Outcomes {
		n += o.Failed
	}
	return n
}
