// Package logger provides leveled printf-style logging.
//
// Info and Debug go to the standard stream, Warn and Error to the error
// stream.
package logger

import (
	"io"
	"log"
	"os"
	"strings"
)

var (
	// InfoLogger handles informational messages.
	InfoLogger *log.Logger
	// WarnLogger handles recoverable problems that are logged but never escalated.
	WarnLogger *log.Logger
	// ErrorLogger handles error messages.
	ErrorLogger *log.Logger
	// DebugLogger handles debug messages.
	DebugLogger *log.Logger
)

// Level is the logging verbosity.
type Level string

const (
	LevelInfo  Level = "info"
	LevelDebug Level = "debug"
)

// ParseLevel maps a config value to a Level, defaulting to info.
func ParseLevel(s string) Level {
	if strings.EqualFold(strings.TrimSpace(s), string(LevelDebug)) {
		return LevelDebug
	}
	return LevelInfo
}

// Initialize sets up simple loggers.
func Initialize(level string, development bool) error {
	return InitializeWithWriters(level, development, os.Stdout, os.Stderr)
}

// InitializeWithWriters sets up loggers writing to the given streams.
// Tests use it to capture output.
func InitializeWithWriters(level string, development bool, out, errOut io.Writer) error {
	flags := log.Ldate | log.Ltime
	if development {
		flags |= log.Lshortfile
	}

	InfoLogger = log.New(out, "INFO: ", flags)
	WarnLogger = log.New(errOut, "WARN: ", flags)
	ErrorLogger = log.New(errOut, "ERROR: ", flags)

	// Only enable debug logger if level is "debug"
	if ParseLevel(level) == LevelDebug {
		DebugLogger = log.New(out, "DEBUG: ", flags)
	} else {
		DebugLogger = log.New(io.Discard, "", 0)
	}

	return nil
}

// Info logs informational messages.
func Info(message string, args ...any) {
	if InfoLogger != nil {
		_ = InfoLogger.Output(2, sprintf(message, args...))
	}
}

// Warn logs recoverable problems.
func Warn(message string, args ...any) {
	if WarnLogger != nil {
		_ = WarnLogger.Output(2, sprintf(message, args...))
	}
}

// Error logs error messages.
func Error(message string, args ...any) {
	if ErrorLogger != nil {
		_ = ErrorLogger.Output(2, sprintf(message, args...))
	}
}

// Debug logs debug messages. Discarded unless the level is debug.
func Debug(message string, args ...any) {
	if DebugLogger != nil {
		_ = DebugLogger.Output(2, sprintf(message, args...))
	}
}

// Fatal logs fatal messages and terminates the program.
func Fatal(message string, args ...any) {
	if ErrorLogger != nil {
		_ = ErrorLogger.Output(2, sprintf(message, args...))
	}
	os.Exit(1)
}

// Sync flushes any buffered log entries (no-op for standard logger).
func Sync() {
	// No-op for standard log package
}
