// Package logger provides leveled logging with support for debug, info, warn, and error levels.
// It keeps a printf-style API over a log/slog handler, so output is either
// JSON or logfmt-style text depending on the configured format.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"
)

var (
	// Global logger instance; nil until Init is called.
	defaultLogger *slog.Logger
)

// ParseLevel converts "debug", "info", "warn" or "error" to a slog.Level.
// Unknown strings default to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init initializes the default logger with the specified level and format
func Init(level string, format string) {
	InitWriter(os.Stderr, level, format)
}

// InitWriter is Init with an explicit destination.
func InitWriter(w io.Writer, level string, format string) {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.ToLower(format) == "text" {
		opts.AddSource = true
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	defaultLogger = slog.New(handler)
}

func output(level slog.Level, format string, args ...interface{}) {
	if defaultLogger == nil {
		return
	}
	ctx := context.Background()
	if !defaultLogger.Enabled(ctx, level) {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:]) // skip Callers, output, and the exported wrapper
	r := slog.NewRecord(time.Now(), level, fmt.Sprintf(format, args...), pcs[0])
	_ = defaultLogger.Handler().Handle(ctx, r)
}

// Debug logs a message at debug level
func Debug(format string, args ...interface{}) {
	output(slog.LevelDebug, format, args...)
}

// Info logs a message at info level
func Info(format string, args ...interface{}) {
	output(slog.LevelInfo, format, args...)
}

// Warn logs a message at warn level
func Warn(format string, args ...interface{}) {
	output(slog.LevelWarn, format, args...)
}

// Error logs a message at error level
func Error(format string, args ...interface{}) {
	output(slog.LevelError, format, args...)
}

// Fatal logs a message at error level and exits
func Fatal(format string, args ...interface{}) {
	if defaultLogger == nil {
		fmt.Fprintf(os.Stderr, "[FATAL] "+format+"\n", args...)
	} else {
		output(slog.LevelError, format, args...)
	}
	os.Exit(1)
}
