package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestMongoErrorClassifier_NilError(t *testing.T) {
	c := NewMongoErrorClassifier()
	if c.IsTransient(nil) {
		t.Error("nil error must not be transient")
	}
}

func TestMongoErrorClassifier_DuplicateKeyNotTransient(t *testing.T) {
	c := NewMongoErrorClassifier()

	err := mongo.WriteException{
		WriteErrors: mongo.WriteErrors{
			{Index: 0, Code: 11000, Message: "E11000 duplicate key error"},
		},
	}
	if c.IsTransient(err) {
		t.Error("duplicate key error must not be transient")
	}
}

func TestMongoErrorClassifier_ServerCodes(t *testing.T) {
	c := NewMongoErrorClassifier()

	tests := []struct {
		name string
		code int32
		want bool
	}{
		{"host unreachable", 6, true},
		{"network timeout", 89, true},
		{"shutdown in progress", 91, true},
		{"primary stepped down", 189, true},
		{"not writable primary", 10107, true},
		{"interrupted at shutdown", 11600, true},
		{"document validation failure", 121, false},
		{"unauthorized", 13, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mongo.CommandError{Code: tt.code, Message: tt.name}
			if got := c.IsTransient(err); got != tt.want {
				t.Errorf("IsTransient(code %d) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestMongoErrorClassifier_RetryableWriteLabel(t *testing.T) {
	c := NewMongoErrorClassifier()

	err := mongo.CommandError{Code: 112, Message: "write conflict", Labels: []string{"RetryableWriteError"}}
	if !c.IsTransient(err) {
		t.Error("RetryableWriteError label must be transient")
	}
}

func TestMongoErrorClassifier_NetworkErrors(t *testing.T) {
	c := NewMongoErrorClassifier()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"connection refused", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, true},
		{"connection reset", &net.OpError{Op: "read", Err: syscall.ECONNRESET}, true},
		{"network unreachable", &net.OpError{Op: "dial", Err: syscall.ENETUNREACH}, true},
		{"host unreachable", &net.OpError{Op: "dial", Err: syscall.EHOSTUNREACH}, true},
		{"dns timeout", &net.DNSError{Err: "timeout", IsTimeout: true}, true},
		{"permission denied", &net.OpError{Op: "dial", Err: syscall.EACCES}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestMongoErrorClassifier_MessagePatterns(t *testing.T) {
	c := NewMongoErrorClassifier()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"server selection", errors.New("server selection error: context deadline exceeded"), true},
		{"no reachable servers", errors.New("no reachable servers"), true},
		{"broken pipe", fmt.Errorf("write: %w", errors.New("broken pipe")), true},
		{"plain data error", errors.New("document failed validation"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestMongoErrorClassifier_ContextCancelledNotTransient(t *testing.T) {
	c := NewMongoErrorClassifier()
	if c.IsTransient(context.Canceled) {
		t.Error("context.Canceled must not be transient")
	}
}
