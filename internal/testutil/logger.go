package testutil

import (
	"io"
	"log/slog"
)

// NewQuietLogger returns a logger that only emits warnings and above,
// discarding everything else. Keeps test output readable.
func NewQuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}
