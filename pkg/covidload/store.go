package covidload

import "context"

// Document is one row of a source file as the store will persist it:
// cleaned column names mapped to cell values, with missing represented
// as a nil value (the store's native null).
type Document map[string]any

// InsertResult is the structured outcome of one unordered bulk insert.
// Partial failure is an expected case, not an exception: the store
// attempts every document and reports the rejected subset.
type InsertResult struct {
	// Inserted is the number of documents the store acknowledged.
	Inserted int

	// Failures lists rejected documents by their index within the
	// submitted slice, with store-provided code and reason.
	Failures []RecordFailure
}

// Collection is the destination handle the batch inserter writes to.
// Implementations must request the store's strongest available write
// acknowledgment, and must attempt every document in a call even when
// earlier documents fail.
type Collection interface {
	// Name returns the collection name for logging and diagnostics.
	Name() string

	// InsertMany performs one unordered bulk insert. A non-nil error
	// means a whole-batch failure: no per-document accounting is
	// available and the result must be ignored. Errors wrapping
	// ErrConnectionFailed abort the remaining batches of the job.
	InsertMany(ctx context.Context, docs []Document) (InsertResult, error)

	// CountDocuments returns the number of documents currently in the
	// collection. Used only for the post-load sanity recount.
	CountDocuments(ctx context.Context) (int64, error)
}

// Store provides destination collections for load jobs.
type Store interface {
	// Collection returns a handle for the named collection.
	Collection(name string) Collection
}
