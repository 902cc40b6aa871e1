// Package logging provides the structured logger shared by the learners,
// the ensemble and the command line tools.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger with ensemble-specific helpers so that field
// names stay consistent across packages.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that writes JSON records to w.
func NewJSONLogger(w io.Writer, level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that writes human-readable records to w.
func NewTextLogger(w io.Writer, level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NoopLogger discards everything.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000),
	}))
}

// FromConfig builds a stderr logger from the LOG_LEVEL / LOG_FORMAT values.
func FromConfig(level, format string) *Logger {
	lvl := ParseLevel(level)
	if strings.EqualFold(format, "json") {
		return NewJSONLogger(os.Stderr, lvl)
	}
	return NewTextLogger(os.Stderr, lvl)
}

// ParseLevel maps a level name to slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
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

// WithMember tags records with an ensemble member name.
func (l *Logger) WithMember(name string) *Logger {
	return &Logger{Logger: l.Logger.With("member", name)}
}

// WithFold tags records with a cross-validation fold index.
func (l *Logger) WithFold(fold int) *Logger {
	return &Logger{Logger: l.Logger.With("fold", fold)}
}

// WithRun tags records with a run identifier.
func (l *Logger) WithRun(runID string) *Logger {
	return &Logger{Logger: l.Logger.With("run_id", runID)}
}

// LogTrain logs the outcome of fitting one member.
func (l *Logger) LogTrain(ctx context.Context, member string, examples int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "member training failed",
			"member", member,
			"examples", examples,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "member trained",
		"member", member,
		"examples", examples,
	)
}

// LogFold logs the completion of one cross-validation fold.
func (l *Logger) LogFold(ctx context.Context, fold, train, test int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "fold failed",
			"fold", fold,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "fold completed",
		"fold", fold,
		"train_examples", train,
		"test_examples", test,
	)
}
