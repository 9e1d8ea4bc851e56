// Package logging provides structured logging with configurable levels
package logging

import (
	"os"

	mainlogging "github.com/confsync/confsync/pkg/logging"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	// DebugLevel is for detailed debugging information
	DebugLevel LogLevel = iota
	// InfoLevel is for general informational messages
	InfoLevel
	// WarnLevel is for warning messages that indicate potential problems
	WarnLevel
	// ErrorLevel is for error messages that indicate serious problems
	ErrorLevel
)

// Logger provides structured logging
type Logger struct {
	level      LogLevel
	prefix     string
	slogLogger *mainlogging.SlogLogger
}

// NewLogger creates a logger with the given prefix
func NewLogger(prefix string) *Logger {
	level := InfoLevel
	if os.Getenv("CONFSYNC_DEBUG") == "true" {
		level = DebugLevel
	}
	// Reduce verbosity during tests
	if os.Getenv("CONFSYNC_TEST_MODE") == "true" {
		level = ErrorLevel
	}
	return &Logger{
		level:      level,
		prefix:     prefix,
		slogLogger: mainlogging.NewSlogLogger(prefix),
	}
}

// Debugf logs a debug message
func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.level <= DebugLevel {
		l.slogLogger.Debugf(format, args...)
	}
}

// Infof logs an info message
func (l *Logger) Infof(format string, args ...interface{}) {
	if l.level <= InfoLevel {
		l.slogLogger.Infof(format, args...)
	}
}

// Warnf logs a warning message
func (l *Logger) Warnf(format string, args ...interface{}) {
	if l.level <= WarnLevel {
		l.slogLogger.Warnf(format, args...)
	}
}

// Errorf logs an error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	if l.level <= ErrorLevel {
		l.slogLogger.Errorf(format, args...)
	}
}

// ChangeItemStart logs the start of one change item application
func (l *Logger) ChangeItemStart(action, resourceType, externalID string, current, total int) {
	if l.level <= InfoLevel {
		l.slogLogger.ChangeItemStart(action, resourceType, externalID, current, total)
	}
}

// ChangeItemSuccess logs a successfully applied change item
func (l *Logger) ChangeItemSuccess(action, resourceType, externalID string) {
	if l.level <= InfoLevel {
		l.slogLogger.ChangeItemSuccess(action, resourceType, externalID)
	}
}

// ChangeItemFailed logs a failed change item
func (l *Logger) ChangeItemFailed(action, resourceType, externalID string, err error) {
	if l.level <= ErrorLevel {
		l.slogLogger.ChangeItemFailed(action, resourceType, externalID, err)
	}
}

// ApplySummary logs the apply-phase summary
func (l *Logger) ApplySummary(successful, total int) {
	if l.level <= InfoLevel {
		l.slogLogger.ApplySummary(successful, total)
	}
}
