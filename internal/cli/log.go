// Package cli implements the refmap command-line interface: collect runs
// the pipeline once and writes a report, serve keeps the result available
// over HTTP.
package cli

import (
	"io"
	"log/slog"

	charmlog "github.com/charmbracelet/log"
)

// newLogger creates the CLI logger. It keeps the slog.Logger surface the
// pipeline packages expect while rendering through charmbracelet/log, so
// terminal output stays readable instead of raw JSON.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := charmlog.InfoLevel
	if verbose {
		level = charmlog.DebugLevel
	}
	handler := charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
	return slog.New(handler)
}
