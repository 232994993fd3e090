package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

var (
	// process-wide logger, replaced by Configure once config is loaded
	defaultLogger *slog.Logger
)

// picks a handler from ENVIRONMENT so logging works before config is parsed
func init() {
	defaultLogger = slog.New(newHandler(os.Getenv("ENVIRONMENT"), os.Getenv("LOG_LEVEL")))
}

// rebuilds the default logger for the given environment and level
func Configure(environment, level string) {
	defaultLogger = slog.New(newHandler(environment, level))
	slog.SetDefault(defaultLogger)
}

func newHandler(environment, level string) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(environment, level)}

	if environment == "production" {
		// production: JSON lines on stdout for the log collector
		return slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.NewTextHandler(os.Stderr, opts)
}

// falls back to INFO in production and DEBUG elsewhere
func parseLevel(environment, level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	if environment == "production" {
		return slog.LevelInfo
	}

	return slog.LevelDebug
}

// returns the default logger instance
func Default() *slog.Logger {
	return defaultLogger
}

// creates a logger with additional context fields
func With(args ...any) *slog.Logger {
	return defaultLogger.With(args...)
}

// returns the request-scoped logger if one was attached, else the default
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return defaultLogger
	}

	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}

	return defaultLogger
}

// attaches a logger to ctx
func WithContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

type loggerKey struct{}

func Debug(msg string, args ...any) {
	defaultLogger.Debug(msg, args...)
}

func Info(msg string, args ...any) {
	defaultLogger.Info(msg, args...)
}

func Warn(msg string, args ...any) {
	defaultLogger.Warn(msg, args...)
}

func Error(msg string, args ...any) {
	defaultLogger.Error(msg, args...)
}

// logs msg at error level with err attached
func ErrorErr(err error, msg string, args ...any) {
	args = append(args, "error", err)
	defaultLogger.Error(msg, args...)
}

// logs and exits (startup and CLI only)
func Fatal(msg string, args ...any) {
	defaultLogger.Error(msg, args...)
	os.Exit(1)
}

// logs with err attached and exits (startup and CLI only)
func FatalErr(err error, msg string, args ...any) {
	args = append(args, "error", err)
	defaultLogger.Error(msg, args...)
	os.Exit(1)
}
