package store

import (
	"context"
	"errors"
	"log/slog"

	"github.com/covidlab/covidload/pkg/covidload"
)

// Inserter submits documents to one collection in fixed-size unordered
// batches. Per-record rejections are tolerated and tallied; a connection
// failure abandons the remaining batches and counts their records failed.
type Inserter struct {
	collection covidload.Collection
	logger     *slog.Logger
}

// NewInserter creates an Inserter for the given collection.
// Panics if collection or logger is nil.
func NewInserter(collection covidload.Collection, logger *slog.Logger) *Inserter {
	if collection == nil {
		panic("collection cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Inserter{
		collection: collection,
		logger:     logger,
	}
}

// InsertOutcome is the tally of one InsertAll call.
// Inserted + Failed always equals the number of submitted documents.
type InsertOutcome struct {
	// Inserted counts documents durably acknowledged by the store.
	Inserted int

	// Failed counts rejected and abandoned documents.
	Failed int

	// Failures lists per-record detail across all batches, in batch order.
	Failures []covidload.RecordFailure

	// Fatal is the connection error that abandoned the run, if any.
	Fatal error
}

// Partition splits docs into consecutive batches of at most size documents.
// The final batch may be shorter; no batch is ever empty. A size of zero or
// less falls back to covidload.DefaultBatchSize.
func Partition(docs []covidload.Document, size int) [][]covidload.Document {
	if size <= 0 {
		size = covidload.DefaultBatchSize
	}
	if len(docs) == 0 {
		return nil
	}

	batches := make([][]covidload.Document, 0, (len(docs)+size-1)/size)
	for start := 0; start < len(docs); start += size {
		end := start + size
		if end > len(docs) {
			end = len(docs)
		}
		batches = append(batches, docs[start:end])
	}
	return batches
}

// InsertAll submits every document in batches of batchSize and returns the
// tally. It never returns an error: per-record rejections are recorded in
// the outcome, and a connection failure or a cancelled context sets Fatal
// with the unattempted remainder counted as failed. Cancellation is checked
// between batches, so an in-flight batch always completes.
func (in *Inserter) InsertAll(ctx context.Context, docs []covidload.Document, batchSize int) InsertOutcome {
	var outcome InsertOutcome

	if len(docs) == 0 {
		in.logger.Info("nothing to insert", "collection", in.collection.Name())
		return outcome
	}

	before, countErr := in.collection.CountDocuments(ctx)
	if countErr != nil {
		in.logger.Warn("pre-insert count unavailable",
			"collection", in.collection.Name(),
			"error", countErr.Error())
	}

	size := batchSize
	if size <= 0 {
		size = covidload.DefaultBatchSize
	}
	batches := Partition(docs, size)
	offset := 0

	for i, batch := range batches {
		batchIndex := i + 1

		if err := ctx.Err(); err != nil {
			// Cancelled between batches. Same treatment as a lost
			// connection: the remainder is abandoned, not attempted.
			in.abandon(&outcome, docs, offset, size, err)
			in.logger.Error("insert cancelled",
				"collection", in.collection.Name(),
				"batch", batchIndex,
				"abandoned_records", len(docs)-offset,
				"error", err.Error())
			break
		}

		result, err := in.collection.InsertMany(ctx, batch)

		switch {
		case err == nil:
			outcome.Inserted += result.Inserted
			for _, f := range result.Failures {
				f.BatchIndex = batchIndex
				f.RecordIndex += offset
				outcome.Failures = append(outcome.Failures, f)
			}
			outcome.Failed += len(result.Failures)
			if len(result.Failures) > 0 {
				in.logger.Warn("batch inserted with rejections",
					"collection", in.collection.Name(),
					"batch", batchIndex,
					"size", len(batch),
					"inserted", result.Inserted,
					"rejected", len(result.Failures))
			} else {
				in.logger.Debug("batch inserted",
					"collection", in.collection.Name(),
					"batch", batchIndex,
					"size", len(batch))
			}

		case errors.Is(err, covidload.ErrConnectionFailed):
			// The connection is gone. Count this batch and everything
			// after it as failed and stop.
			in.abandon(&outcome, docs, offset, size, err)
			in.logger.Error("connection lost mid-insert",
				"collection", in.collection.Name(),
				"batch", batchIndex,
				"abandoned_records", len(docs)-offset,
				"error", err.Error())

		default:
			// Whole-batch failure without per-record detail. The rest of
			// the file may still load, so keep going.
			for r := range batch {
				outcome.Failures = append(outcome.Failures, covidload.RecordFailure{
					BatchIndex:  batchIndex,
					RecordIndex: offset + r,
					Reason:      err.Error(),
				})
			}
			outcome.Failed += len(batch)
			in.logger.Warn("batch failed",
				"collection", in.collection.Name(),
				"batch", batchIndex,
				"size", len(batch),
				"error", err.Error())
		}

		if outcome.Fatal != nil {
			break
		}
		offset += len(batch)
	}

	in.recount(ctx, before, countErr, outcome.Inserted)

	in.logger.Info("insert complete",
		"collection", in.collection.Name(),
		"records", len(docs),
		"inserted", outcome.Inserted,
		"failed", outcome.Failed)

	return outcome
}

// abandon records every document from offset onward as failed, each under
// the 1-based index of the batch it would have been submitted in, and marks
// the outcome fatal.
func (in *Inserter) abandon(outcome *InsertOutcome, docs []covidload.Document, offset, size int, cause error) {
	for r := offset; r < len(docs); r++ {
		outcome.Failures = append(outcome.Failures, covidload.RecordFailure{
			BatchIndex:  r/size + 1,
			RecordIndex: r,
			Reason:      "abandoned: " + cause.Error(),
		})
	}
	outcome.Failed += len(docs) - offset
	outcome.Fatal = cause
}

// recount compares the collection's document growth with the acknowledged
// insert tally. A mismatch is reported, never acted on: the counts can
// legitimately drift when other writers touch the collection.
func (in *Inserter) recount(ctx context.Context, before int64, beforeErr error, inserted int) {
	if beforeErr != nil {
		return
	}

	after, err := in.collection.CountDocuments(ctx)
	if err != nil {
		in.logger.Warn("post-insert count unavailable",
			"collection", in.collection.Name(),
			"error", err.Error())
		return
	}

	if delta := after - before; delta != int64(inserted) {
		in.logger.Warn("post-insert count mismatch",
			"collection", in.collection.Name(),
			"expected_growth", inserted,
			"observed_growth", delta)
	}
}
