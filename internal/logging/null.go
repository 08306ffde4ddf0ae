package logging

import "log/slog"

// NewNull returns a logger that discards everything.
// Useful in tests and for components that run without logging.
func NewNull() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
