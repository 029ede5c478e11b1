// Package logger provides structured logging for pushrouter.
// It uses Go's slog package with configurable levels and formats.
package logger

import (
	"io"
	"log/slog"
	"os"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
)

// NewLogger creates a new slog Logger with the specified level and format
// writing to stdout, and installs it as the default logger.
func NewLogger(levelStr string, jsonOutput bool) *slog.Logger {
	logger := New(os.Stdout, levelStr, jsonOutput)
	slog.SetDefault(logger)
	return logger
}

// New creates a slog Logger writing to w without touching the default logger.
func New(w io.Writer, levelStr string, jsonOutput bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(levelStr),
	}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel maps a configured level name to a slog level, defaulting to info.
func ParseLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Middleware creates a request logging middleware for the echo server.
// It logs every request once it has been handled, with its status and duration.
func Middleware(log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			startTime := time.Now()
			req := c.Request()
			ctx := req.Context()

			logEntry := log.With(
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
				"method", req.Method,
				"path", c.Path(),
				"remote_ip", c.RealIP(),
			)

			logEntry.DebugContext(ctx, "Processing request")

			err := next(c)
			if err != nil {
				// Let the echo error handler write the response so the status is final.
				c.Error(err)
			}

			status := c.Response().Status
			duration := time.Since(startTime)
			switch {
			case status >= 500:
				logEntry.ErrorContext(ctx, "Finished processing request", "status", status, "duration", duration, "error", err)
			case status >= 400:
				logEntry.WarnContext(ctx, "Finished processing request", "status", status, "duration", duration, "error", err)
			default:
				logEntry.InfoContext(ctx, "Finished processing request", "status", status, "duration", duration)
			}
			return nil
		}
	}
}

// TruncateString shortens s to at most maxLen runes, marking the cut with "...".
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	runes := []rune(s)
	return string(runes[:maxLen-3]) + "..."
}
