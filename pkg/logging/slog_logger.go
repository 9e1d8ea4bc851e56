// Package logging provides the slog-backed logger shared by all confsync
// components.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// SlogLogger provides structured logging using slog
type SlogLogger struct {
	logger    *slog.Logger
	component string
}

// NewSlogLogger creates a new logger using slog backend
func NewSlogLogger(component string) *SlogLogger {
	handler := createHandler()
	logger := slog.New(handler)

	return &SlogLogger{
		logger:    logger,
		component: component,
	}
}

// createHandler creates an appropriate slog handler based on environment variables
func createHandler() slog.Handler {
	var output io.Writer = os.Stdout
	level := getLogLevelSlog()

	format := strings.ToUpper(os.Getenv("CONFSYNC_LOG_FORMAT"))
	switch format {
	case "JSON":
		return slog.NewJSONHandler(output, &slog.HandlerOptions{
			Level:       level,
			AddSource:   false,
			ReplaceAttr: replaceAttr,
		})
	default:
		return slog.NewTextHandler(output, &slog.HandlerOptions{
			Level:       level,
			AddSource:   false,
			ReplaceAttr: replaceAttr,
		})
	}
}

// getLogLevelSlog determines the slog level from environment
func getLogLevelSlog() slog.Level {
	levelStr := strings.ToUpper(os.Getenv("CONFSYNC_LOG_LEVEL"))
	switch levelStr {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// replaceAttr customizes attribute names and values
func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		level := a.Value.Any().(slog.Level)
		switch level {
		case slog.LevelDebug:
			return slog.Attr{Key: a.Key, Value: slog.StringValue("DEBUG")}
		case slog.LevelInfo:
			return slog.Attr{Key: a.Key, Value: slog.StringValue("INFO")}
		case slog.LevelWarn:
			return slog.Attr{Key: a.Key, Value: slog.StringValue("WARN")}
		case slog.LevelError:
			return slog.Attr{Key: a.Key, Value: slog.StringValue("ERROR")}
		}
	}
	return a
}

// Debugf logs a formatted debug message
func (l *SlogLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", l.component)
}

// Infof logs a formatted info message
func (l *SlogLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...), "component", l.component)
}

// Warnf logs a formatted warning message
func (l *SlogLogger) Warnf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...), "component", l.component)
}

// Errorf logs a formatted error message
func (l *SlogLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...), "component", l.component)
}

// WithFields returns a logger with additional fields
func (l *SlogLogger) WithFields(fields map[string]interface{}) *SlogLogger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &SlogLogger{
		logger:    l.logger.With(args...),
		component: l.component,
	}
}

// ChangeItemStart logs the start of one change item application
func (l *SlogLogger) ChangeItemStart(action, resourceType, externalID string, current, total int) {
	l.logger.Info("Applying change item",
		"component", l.component,
		"action", action,
		"resource_type", resourceType,
		"external_id", externalID,
		"current", current,
		"total", total)
}

// ChangeItemSuccess logs a successfully applied change item
func (l *SlogLogger) ChangeItemSuccess(action, resourceType, externalID string) {
	l.logger.Info("Change item applied",
		"component", l.component,
		"action", action,
		"resource_type", resourceType,
		"external_id", externalID,
		"status", "success")
}

// ChangeItemFailed logs a failed change item
func (l *SlogLogger) ChangeItemFailed(action, resourceType, externalID string, err error) {
	l.logger.Error("Change item failed",
		"component", l.component,
		"action", action,
		"resource_type", resourceType,
		"external_id", externalID,
		"status", "failed",
		"error", err)
}

// ApplySummary logs the apply-phase summary
func (l *SlogLogger) ApplySummary(successful, total int) {
	if successful == total {
		l.logger.Info("Apply completed successfully",
			"component", l.component,
			"successful", successful,
			"total", total,
			"status", "completed")
	} else {
		l.logger.Warn("Apply completed with errors",
			"component", l.component,
			"successful", successful,
			"total", total,
			"status", "completed_with_errors")
	}
}
