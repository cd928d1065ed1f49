// File: internal/logger/logger.go
package logger

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger builds the process-wide text logger on stderr so command output on stdout stays clean
func NewLogger(level slog.Level) *slog.Logger {
	return newLogger(os.Stderr, level)
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewTextHandler(w, opts)

	logger := slog.New(handler)

	slog.SetDefault(logger)
	return logger
}

// LevelFor maps the --debug flag to a log level
func LevelFor(debug bool) slog.Level {
	if debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
