// Package logger holds the package-global slog logger used by memkit.
// It discards all output until Init is called.
package logger

import (
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

// EnvLogAlloc enables allocation logging to stderr when set to a non-empty value.
const EnvLogAlloc = "MEMKIT_LOG_ALLOC"

var current atomic.Pointer[slog.Logger]

func init() {
	if os.Getenv(EnvLogAlloc) != "" {
		current.Store(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
		return
	}
	current.Store(discard())
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Options configures the logger initialization.
type Options struct {
	Enabled bool       // If false, all logging is discarded
	Writer  io.Writer  // Destination. Default: os.Stderr
	Level   slog.Level // Minimum log level
	JSON    bool       // JSON handler instead of text
}

// Init configures logging. If opts.Enabled is false, all log output is discarded.
func Init(opts Options) {
	if !opts.Enabled {
		current.Store(discard())
		return
	}
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	hopts := &slog.HandlerOptions{Level: opts.Level}
	if opts.JSON {
		current.Store(slog.New(slog.NewJSONHandler(w, hopts)))
		return
	}
	current.Store(slog.New(slog.NewTextHandler(w, hopts)))
}

// Set replaces the logger. A nil logger restores the discarding default.
func Set(l *slog.Logger) {
	if l == nil {
		l = discard()
	}
	current.Store(l)
}

// L returns the current logger.
func L() *slog.Logger { return current.Load() }

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, args ...any) { L().Debug(msg, args...) }

// Info logs an info message with optional key-value pairs.
func Info(msg string, args ...any) { L().Info(msg, args...) }

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, args ...any) { L().Warn(msg, args...) }

// Error logs an error message with optional key-value pairs.
func Error(msg string, args ...any) { L().Error(msg, args...) }
