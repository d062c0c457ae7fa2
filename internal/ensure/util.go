package ensure

import "log/slog"

// logAndContinue logs err as a warning and returns nil, implementing the
// "warn and continue" offline-tolerance branches spec.md 4.D calls for.
func logAndContinue(msg string, err error) error {
	slog.Warn(msg, "error", err)
	return nil
}
