// Package logging sets up the process-wide slog logger, grounded on the
// teacher's cmd/reglet/root.go setupLogging: a text handler on stderr,
// level selected from a flag, with --quiet silencing everything.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup installs a slog.TextHandler on os.Stderr at the level named by
// levelName ("debug", "info", "warn", "error"; unrecognized names fall
// back to info), overridden to an effectively silent level when quiet is
// set.
func Setup(levelName string, quiet bool) {
	level := ParseLevel(levelName)
	if quiet {
		level = slog.LevelError + 1
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// ParseLevel converts a CLI-facing level name to a slog.Level.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
