// Package logging assembles structured slog loggers and formatting helpers used
// across pcsync.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing (stdout plus one log file per sync run), and exposes context-aware
// helpers so pipeline code can automatically tag log lines with the run ID,
// stage name, and episode UUID. Old run logs are pruned by CleanupOldLogs.
// The package also provides a no-op logger for tests and wiring code that
// cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so new components emit
// data with the same shape as the rest of the system.
package logging
