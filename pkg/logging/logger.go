package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger with voice-service helpers.
type Logger struct {
	*slog.Logger
}

// New creates a JSON logger writing to stdout at the given level. Unknown or
// empty level strings fall back to info.
func New(level string) *Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return &Logger{Logger: slog.New(handler)}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// Default returns an info-level logger.
func Default() *Logger {
	return New("info")
}

// WithCall returns a child logger annotated with the caller phone and call SID,
// so every line emitted during a voice turn carries call context.
func (l *Logger) WithCall(phone, callSID string) *Logger {
	return &Logger{Logger: l.Logger.With("caller", phone, "call_sid", callSID)}
}
