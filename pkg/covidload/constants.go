package covidload

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess         = 0  // Run completed (per-job failures do not change this)
	ExitGeneralError    = 1  // Unknown or unclassified error
	ExitUsageError      = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic           = 3  // Internal panic (unexpected crash)
	ExitConfigError     = 10 // Invalid configuration or manifest
	ExitConnectionError = 11 // Failed to connect to the document store
	ExitCancelled       = 12 // Operator cancelled the selection menu
	ExitExecutionFailed = 13 // Processing pipeline failed
)

const (
	// DefaultBatchSize is the number of records submitted per bulk insert
	// when a job does not specify its own batch size.
	DefaultBatchSize = 1000

	// DelimiterSampleSize is the number of leading bytes inspected when
	// inferring a file's field delimiter.
	DelimiterSampleSize = 1024

	// DefaultRetryInitialDelay is the default initial delay before the
	// first connect retry attempt.
	DefaultRetryInitialDelay = 100 * time.Millisecond

	// DefaultRetryMaxDelay is the default maximum delay between connect
	// retry attempts.
	DefaultRetryMaxDelay = 30 * time.Second

	// DefaultRetryMaxAttempts is the default maximum number of connect
	// retry attempts.
	DefaultRetryMaxAttempts = 3

	// DefaultManifestName is the job manifest file covidload looks for
	// when --manifest is not given.
	DefaultManifestName = "covidload.yaml"
)
