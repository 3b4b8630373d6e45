package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

var (
	// Logger is the global logger instance
	Logger *log.Logger
)

// Init configures the global logger. Level is one of debug, info, warn,
// error; format is text, json or logfmt. A nil writer means stderr.
func Init(level, format string, w io.Writer) error {
	if w == nil {
		w = os.Stderr
	}
	lvl := log.InfoLevel
	if strings.TrimSpace(level) != "" {
		parsed, err := log.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("parse log level: %w", err)
		}
		lvl = parsed
	}
	var formatter log.Formatter
	switch strings.ToLower(format) {
	case "", "text":
		formatter = log.TextFormatter
	case "json":
		formatter = log.JSONFormatter
	case "logfmt":
		formatter = log.LogfmtFormatter
	default:
		return fmt.Errorf("unknown log format %q", format)
	}

	Logger = log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           lvl,
		Formatter:       formatter,
	})
	return nil
}

// Info logs an info message
func Info(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Info(msg, keyvals...)
	}
}

// Debug logs a debug message
func Debug(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Debug(msg, keyvals...)
	}
}

// Warn logs a warning message
func Warn(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Warn(msg, keyvals...)
	}
}

// Error logs an error message
func Error(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Error(msg, keyvals...)
	}
}

// Fatal logs an error message and exits
func Fatal(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Fatal(msg, keyvals...)
	}
	os.Exit(1)
}

// WithPrefix returns a logger with a prefix. Before Init it returns a
// logger that discards everything.
func WithPrefix(prefix string) *log.Logger {
	if Logger != nil {
		return Logger.WithPrefix(prefix)
	}
	return log.New(io.Discard)
}
