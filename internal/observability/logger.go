package observability

import (
	"io"
	"log/slog"
	"os"
	"time"
)

// NewLogger creates a slog.Logger with JSON output and UTC timestamps
func NewLogger(level string) *slog.Logger {
	return NewLoggerWithWriter(level, os.Stdout)
}

// NewTUILogger creates the logger for TUI mode. Log lines go to the named
// file, or nowhere when no path is configured, so they never land on the
// screen bubbletea is drawing. The returned closer is nil when no file is
// open.
func NewTUILogger(level, path string) (*slog.Logger, io.Closer, error) {
	if path == "" {
		return NewLoggerWithWriter(level, io.Discard), nil, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return NewLoggerWithWriter(level, f), f, nil
}

// NewLoggerWithWriter creates a logger writing to w; used by tests and by
// the TUI mode, which must keep log lines off the interactive screen.
func NewLoggerWithWriter(level string, w io.Writer) *slog.Logger {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn", "warning":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slogLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{
					Key:   a.Key,
					Value: slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339Nano)),
				}
			}
			return a
		},
	})

	return slog.New(handler)
}
