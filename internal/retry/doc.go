// Package retry provides automatic retry logic with exponential backoff
// for transient document store connection failures.
//
// The package supports pluggable error classification and backoff strategies.
//
// # Example Usage
//
//	classifier := retry.NewMongoErrorClassifier()
//	strategy := retry.NewExponentialBackoff(3)
//	executor := retry.NewExecutor(classifier, strategy)
//
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return client.Ping(ctx, nil)
//	})
//
// # Error Classification
//
// The ErrorClassifier interface determines which errors are transient
// (retryable) versus fatal. The MongoErrorClassifier recognizes network
// failures, server selection timeouts, and shutdown/stepdown server codes;
// duplicate key and validation errors are never retried.
//
// Retry applies only before a load job's batch loop begins. Once batches
// are being attempted, a severed connection is fatal to that job, so
// totals stay monotonic and no record is double counted.
//
// # Thread Safety
//
// Executor instances are safe for concurrent use. Use WithOnRetry() to
// create independent configurations per goroutine.
package retry
