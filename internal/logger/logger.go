package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog with printf-style helpers
type Logger struct {
	*slog.Logger
}

// Config holds logger configuration
type Config struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // text or json
	// Output defaults to stdout when nil
	Output io.Writer `json:"-" yaml:"-"`
}

// New creates a logger from cfg
func New(cfg Config) *Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: true,
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return &Logger{Logger: slog.New(handler)}
}

// Discard returns a logger that drops everything, for tests and the CLI
func Discard() *Logger {
	return New(Config{Level: "error", Output: io.Discard})
}

func parseLevel(level string) slog.Level {
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

// With returns a logger that adds the given attributes to every record
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Debug logs debug messages
func (l *Logger) Debug(msg string, args ...any) {
	l.Logger.Debug(formatMessage(msg, args...))
}

// Info logs info messages
func (l *Logger) Info(msg string, args ...any) {
	l.Logger.Info(formatMessage(msg, args...))
}

// Warn logs warning messages
func (l *Logger) Warn(msg string, args ...any) {
	l.Logger.Warn(formatMessage(msg, args...))
}

// Error logs error messages
func (l *Logger) Error(msg string, args ...any) {
	l.Logger.Error(formatMessage(msg, args...))
}

func formatMessage(msg string, args ...any) string {
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}

var defaultLogger *Logger

// Initialize sets up the process-wide logger
func Initialize(cfg Config) {
	defaultLogger = New(cfg)
	slog.SetDefault(defaultLogger.Logger)
}

// Default returns the process-wide logger, creating an info-level text
// logger if Initialize was never called
func Default() *Logger {
	if defaultLogger == nil {
		defaultLogger = New(Config{Level: "info", Format: "text"})
	}
	return defaultLogger
}
