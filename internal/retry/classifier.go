package retry

import (
	"errors"
	"net"
	"strings"
	"syscall"

	"go.mongodb.org/mongo-driver/mongo"
)

// MongoDB server error codes for transient conditions.
// See: https://github.com/mongodb/mongo/blob/master/src/mongo/base/error_codes.yml
const (
	codeHostUnreachable                 = 6
	codeHostNotFound                    = 7
	codeNetworkTimeout                  = 89
	codeShutdownInProgress              = 91
	codePrimarySteppedDown              = 189
	codeSocketException                 = 9001
	codeNotWritablePrimary              = 10107
	codeInterruptedAtShutdown           = 11600
	codeInterruptedDueToReplStateChange = 11602
	codeNotPrimaryNoSecondaryOk         = 13435
	codeNotPrimaryOrSecondary           = 13436
)

var transientServerCodes = []int{
	codeHostUnreachable,
	codeHostNotFound,
	codeNetworkTimeout,
	codeShutdownInProgress,
	codePrimarySteppedDown,
	codeSocketException,
	codeNotWritablePrimary,
	codeInterruptedAtShutdown,
	codeInterruptedDueToReplStateChange,
	codeNotPrimaryNoSecondaryOk,
	codeNotPrimaryOrSecondary,
}

// MongoErrorClassifier implements ErrorClassifier for MongoDB-specific errors.
type MongoErrorClassifier struct{}

// NewMongoErrorClassifier creates a new MongoDB error classifier.
func NewMongoErrorClassifier() *MongoErrorClassifier {
	return &MongoErrorClassifier{}
}

// IsTransient determines if an error is temporary and retryable.
func (c *MongoErrorClassifier) IsTransient(err error) bool {
	if err == nil {
		return false
	}

	// Duplicate key and other write rejections are data problems, never
	// retryable.
	if mongo.IsDuplicateKeyError(err) {
		return false
	}

	// Driver-level network and timeout detection.
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return true
	}

	// Server-reported transient conditions (stepdown, shutdown, etc.).
	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) {
		if serverErr.HasErrorLabel("RetryableWriteError") {
			return true
		}
		for _, code := range transientServerCodes {
			if serverErr.HasErrorCode(code) {
				return true
			}
		}
		return false
	}

	if c.isNetworkError(err) {
		return true
	}

	return c.isConnectionError(err)
}

// isNetworkError checks for network-level errors below the driver.
func (c *MongoErrorClassifier) isNetworkError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() || dnsErr.Timeout()
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Temporary() || opErr.Timeout() {
			return true
		}
		if opErr.Err != nil {
			if errors.Is(opErr.Err, syscall.ECONNREFUSED) ||
				errors.Is(opErr.Err, syscall.ECONNRESET) ||
				errors.Is(opErr.Err, syscall.ENETUNREACH) ||
				errors.Is(opErr.Err, syscall.EHOSTUNREACH) {
				return true
			}
		}
	}

	return false
}

// isConnectionError checks for connection-related error messages.
func (c *MongoErrorClassifier) isConnectionError(err error) bool {
	errMsg := strings.ToLower(err.Error())

	transientPatterns := []string{
		"connection refused",
		"connection reset",
		"connection closed",
		"server selection error",
		"server selection timeout",
		"no reachable servers",
		"no such host",
		"network is unreachable",
		"i/o timeout",
		"broken pipe",
		"socket was unexpectedly closed",
		"context deadline exceeded", // May be transient if external timeout
	}

	for _, pattern := range transientPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}

	return false
}
