package observability

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Instrument installs the process-wide logger. Logs go to stderr so command
// output on stdout stays machine-readable.
func Instrument(level slog.Level, logFormat string) error {
	handler, err := newStderrHandler(level, logFormat)
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(newSpanContextHandler(handler)))

	return nil
}

// newStderrHandler creates a handler for human-readable logs.
func newStderrHandler(level slog.Level, logFormat string) (slog.Handler, error) {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	switch strings.ToLower(logFormat) {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		return nil, fmt.Errorf("unsupported log format %q (expected: json, text)", logFormat)
	}

	return handler, nil
}
