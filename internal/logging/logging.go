// Package logging configures slog output for the CLI and provides a
// capturing handler for tests that assert on emitted records.
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// Options controls Setup.
type Options struct {
	// Level is the minimum level to emit. Defaults to Info.
	Level slog.Level

	// Format is "pretty" or "json". Pretty is meant for terminals.
	Format string

	// Out is the destination writer. Defaults to stderr.
	Out io.Writer
}

// Setup builds a logger from options and installs it as the slog default.
func Setup(opts Options) *slog.Logger {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	var h slog.Handler
	switch opts.Format {
	case "json":
		h = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: opts.Level})
	default:
		h = tint.NewHandler(out, &tint.Options{
			Level:      opts.Level,
			TimeFormat: time.TimeOnly,
		})
	}

	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}
