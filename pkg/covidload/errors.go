package covidload

import (
	"errors"
	"strings"
)

// Sentinel errors for common failure scenarios.
// These enable callers to distinguish error types using errors.Is().
//
// Example usage:
//
//	outcome := loader.Run(ctx, job)
//	if errors.Is(outcome.Fatal, covidload.ErrConnectionFailed) {
//	    // Remaining batches of this job were abandoned
//	}
var (
	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrFileAccess indicates a source file is missing or unreadable.
	// This is a per-job condition: the job is skipped, the run continues.
	ErrFileAccess = errors.New("source file not accessible")

	// ErrConnectionFailed indicates the document store connection failed
	// or was severed. Fatal to the current job only.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrNoJobs indicates the manifest defines no load jobs.
	ErrNoJobs = errors.New("no load jobs defined")

	// ErrJobNotFound indicates the requested job name is not in the manifest.
	ErrJobNotFound = errors.New("load job not found")

	// ErrExecutionFailed indicates the processing pipeline failed.
	ErrExecutionFailed = errors.New("execution failed")

	// ErrMenuCancelled indicates the operator quit the selection menu.
	ErrMenuCancelled = errors.New("selection cancelled")
)

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Check for sentinel errors
	switch {
	case errors.Is(err, ErrInvalidConfig):
		return ExitConfigError
	case errors.Is(err, ErrNoJobs):
		return ExitConfigError
	case errors.Is(err, ErrJobNotFound):
		return ExitConfigError
	case errors.Is(err, ErrConnectionFailed):
		return ExitConnectionError
	case errors.Is(err, ErrExecutionFailed):
		return ExitExecutionFailed
	case errors.Is(err, ErrMenuCancelled):
		return ExitCancelled
	}

	errStr := err.Error()

	// Cobra reports flag/argument misuse as plain errors; map them to the
	// conventional usage exit code.
	if isUsageError(errStr) {
		return ExitUsageError
	}

	// Check for common connection error patterns
	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "server selection error") ||
		strings.Contains(errStr, "no such host") {
		return ExitConnectionError
	}

	return ExitGeneralError
}

func isUsageError(msg string) bool {
	patterns := []string{
		"unknown flag",
		"unknown shorthand flag",
		"unknown command",
		"invalid argument",
		"required flag",
		"accepts ",
	}
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
