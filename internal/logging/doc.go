// Package logging wires log/slog with the console and JSON handlers used by
// the fstack CLI, plus typed attribute helpers and a no-op logger for tests.
package logging
