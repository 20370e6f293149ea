// Package logging assembles the structured slog loggers used across the
// reelsmith daemon and CLI.
//
// It owns the console/JSON handler selection, centralizes level and output
// plumbing, and exposes context-aware helpers so stage code automatically tags
// log lines with job IDs, stage names, and correlation IDs. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
