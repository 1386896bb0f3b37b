// Package logging configures structured logging for the process.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// New creates a structured logger. JSON output is meant for daemons and CI;
// text output for interactive use.
func New(level slog.Level, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// NewNop returns a logger that discards everything. Used by tests and as a
// default when callers pass nil.
func NewNop() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
