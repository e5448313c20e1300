// Package logging wraps zerolog with the console-vs-JSON writer
// selection the teacher's cmd/* mains make by hand via go-isatty/
// go-colorable when deciding whether to colourise output. Unloading and
// drop-scan runs are high-cardinality (one event per page or per
// rejected row), so structured fields beat the teacher's plain
// log.Printf calls here — per SPEC_FULL.md's ambient-stack section.
package logging

import (
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// New returns a logger writing to w. When w is the process's real
// stdout/stderr and that stream is a terminal, output is a colourised
// console format; otherwise (redirected to a file, piped, or any other
// writer) it is newline-delimited JSON suitable for ingestion.
func New(w *os.File) zerolog.Logger {
	var out io.Writer = w
	if isatty.IsTerminal(w.Fd()) || isatty.IsCygwinTerminal(w.Fd()) {
		out = zerolog.ConsoleWriter{Out: colorable.NewColorable(w), TimeFormat: "15:04:05"}
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

// Default is the package-level logger used where threading a logger
// through every call would be noise; components that need testable
// output take a zerolog.Logger parameter instead.
var Default = New(os.Stderr)
