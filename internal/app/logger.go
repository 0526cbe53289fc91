package app

import (
	"io"
	"log/slog"
)

// newLogger builds the application's logger without touching the global
// default, so App instances stay isolated. Level and format arrive
// pre-validated from the CLI layer; anything unrecognized falls back to
// info-level text.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if formatStr == "json" {
		return slog.New(slog.NewJSONHandler(outW, opts))
	}
	return slog.New(slog.NewTextHandler(outW, opts))
}
