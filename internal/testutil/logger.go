package testutil

import (
	"io"
	"log/slog"
)

// NopLogger discards everything. Components take a logger unconditionally, so
// tests hand them this instead of polluting test output.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
