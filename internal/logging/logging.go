// Package logging provides shared logger constructors for commands and
// examples. Library packages stay silent; only binaries log.
package logging

import (
	"github.com/phuslu/log"
)

// NewConsoleLogger returns a human-readable logger for interactive use
// (benchmarks, examples). Level strings follow phuslu/log conventions
// ("debug", "info", "warn", "error"); unknown values fall back to info.
func NewConsoleLogger(level string) *log.Logger {
	return &log.Logger{
		Level:  log.ParseLevel(level),
		Caller: 0,
		Writer: &log.ConsoleWriter{
			ColorOutput:    true,
			EndWithMessage: true,
		},
	}
}

// NewJSONLogger returns a structured logger writing JSON lines to stderr,
// suitable for services scraped by a log collector.
func NewJSONLogger(level string) *log.Logger {
	return &log.Logger{
		Level:      log.ParseLevel(level),
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
}
