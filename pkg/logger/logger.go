// Package logger is a thin wrapper over charmbracelet/log providing a
// process-wide default logger and level parsing.
package logger

import (
	"fmt"
	"io"

	charm "github.com/charmbracelet/log"
)

// Logger wraps a charm logger so call sites depend on this package rather
// than the logging library directly.
type Logger struct {
	*charm.Logger
}

// NewLogger wraps an existing charm logger.
func NewLogger(l *charm.Logger) *Logger {
	return &Logger{Logger: l}
}

// NewLoggerFromWriter creates a Logger writing to w.
func NewLoggerFromWriter(w io.Writer) *Logger {
	return NewLogger(charm.New(w))
}

// ParseLevel converts a level name to a charm log level. An empty string
// defaults to Info.
func ParseLevel(level string) (charm.Level, error) {
	if level == "" {
		return charm.InfoLevel, nil
	}
	parsed, err := charm.ParseLevel(level)
	if err != nil {
		return charm.InfoLevel, fmt.Errorf("invalid log level '%s'. Supported log levels are debug, info, warn, error", level)
	}
	return parsed, nil
}
