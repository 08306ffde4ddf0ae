// Package logging builds the structured logger used across covidload.
//
// One JSON record per line, carrying timestamp, level, message, and source
// location. Output goes both to stdout and to a size-rotated local file.
// The logger is constructed once at process start and injected into each
// component; Close flushes and releases the file writer.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LevelCritical is an extra severity above slog.LevelError, used for
// failures that abort a whole job.
const LevelCritical = slog.Level(12)

// Config holds the logger configuration.
type Config struct {
	Level slog.Level

	// Dir is the directory rotated log files are written to.
	// Empty disables file output (stdout only).
	Dir string

	// Filename is the log file name inside Dir.
	Filename string

	// MaxSizeMB and MaxBackups bound the rotated file set.
	MaxSizeMB  int
	MaxBackups int

	// AddSource attaches the emitting source location to each record.
	AddSource bool

	// Console overrides the console writer. Nil means os.Stdout.
	Console io.Writer
}

// DefaultConfig matches the sizes the pipeline has always used:
// 5 MiB per file, 3 rotated backups.
func DefaultConfig() Config {
	return Config{
		Level:      slog.LevelInfo,
		Dir:        "reports/logs",
		Filename:   "covidload.log",
		MaxSizeMB:  5,
		MaxBackups: 3,
		AddSource:  true,
	}
}

// LoadConfig loads the logger configuration from environment variables,
// starting from DefaultConfig.
func LoadConfig() Config {
	config := DefaultConfig()

	if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
		switch levelStr {
		case "DEBUG":
			config.Level = slog.LevelDebug
		case "INFO":
			config.Level = slog.LevelInfo
		case "WARN":
			config.Level = slog.LevelWarn
		case "ERROR":
			config.Level = slog.LevelError
		case "CRITICAL":
			config.Level = LevelCritical
		default:
			if levelInt, err := strconv.Atoi(levelStr); err == nil {
				config.Level = slog.Level(levelInt)
			}
		}
	}

	if dir := os.Getenv("LOG_DIR"); dir != "" {
		config.Dir = dir
	}

	if addSourceStr := os.Getenv("LOG_ADD_SOURCE"); addSourceStr != "" {
		if addSource, err := strconv.ParseBool(addSourceStr); err == nil {
			config.AddSource = addSource
		}
	}

	return config
}

// New creates the process logger. The returned close function flushes and
// closes the rotated file writer; call it once at process end.
func New(config Config) (*slog.Logger, func() error, error) {
	console := config.Console
	if console == nil {
		console = os.Stdout
	}

	writer := console
	closeFn := func() error { return nil }

	if config.Dir != "" {
		if err := os.MkdirAll(config.Dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
		rotated := &lumberjack.Logger{
			Filename:   filepath.Join(config.Dir, config.Filename),
			MaxSize:    config.MaxSizeMB,
			MaxBackups: config.MaxBackups,
		}
		writer = io.MultiWriter(console, rotated)
		closeFn = rotated.Close
	}

	opts := &slog.HandlerOptions{
		Level:       config.Level,
		AddSource:   config.AddSource,
		ReplaceAttr: renameCustomLevels,
	}

	return slog.New(slog.NewJSONHandler(writer, opts)), closeFn, nil
}

// renameCustomLevels renders LevelCritical as "CRITICAL" instead of the
// default "ERROR+8".
func renameCustomLevels(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	level, ok := a.Value.Any().(slog.Level)
	if !ok {
		return a
	}
	if level >= LevelCritical {
		a.Value = slog.StringValue("CRITICAL")
	}
	return a
}
