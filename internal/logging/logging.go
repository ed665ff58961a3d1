// Package logging provides the structured, leveled logger used across
// FlashDB's subsystems, replacing the bare log.Printf calls the teacher
// repo's cmd/flashdb used (internal/server still logs through the standard
// log package). Every logger is scoped to one
// component and carries it as a structured field, per SPEC_FULL.md §10.1.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}

// ParseLevel maps the CLI/config "debug|info|warn|error" level names to a
// zerolog.Level, defaulting to InfoLevel for anything unrecognised.
func ParseLevel(name string) zerolog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New returns a logger scoped to component, writing human-readable output
// to stderr at the given level.
func New(component string, level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}
