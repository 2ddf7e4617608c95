package logging

import "log/slog"

// EnableTrace switches on per-item pipeline logging. It is set by the TRACE
// level.
var EnableTrace = false

// Trace logs at DEBUG on the default logger while EnableTrace is set.
func Trace(msg string, args ...any) {
	if !EnableTrace {
		return
	}
	slog.Debug(msg, args...)
}
