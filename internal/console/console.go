// Package console prints the launcher's status lines for the person
// watching the terminal. Diagnostics go through slog instead.
package console

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// ANSI colors for console output
const (
	reset  = "\x1b[0m"
	bright = "\x1b[1m"
	red    = "\x1b[31m"
	green  = "\x1b[32m"
	yellow = "\x1b[33m"
	cyan   = "\x1b[36m"
)

// Printer writes status lines, colored when the output is a terminal.
type Printer struct {
	w     io.Writer
	color bool
}

// New returns a Printer for w. Color is used only when w is a terminal,
// noColor is false and $NO_COLOR is unset.
func New(w io.Writer, noColor bool) *Printer {
	color := false
	if f, ok := w.(*os.File); ok && !noColor && os.Getenv("NO_COLOR") == "" {
		color = term.IsTerminal(int(f.Fd()))
	}
	return &Printer{w: w, color: color}
}

// Plain returns a Printer that never colors, for tests and non-terminals.
func Plain(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) paint(color, s string) string {
	if !p.color {
		return s
	}
	return bright + color + s + reset
}

// Banner prints a title line surrounded by blank lines.
func (p *Printer) Banner(title string) {
	fmt.Fprintf(p.w, "\n%s\n\n", p.paint(cyan, "===== "+title+" ====="))
}

// OK prints a success line.
func (p *Printer) OK(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", p.paint(green, "✓"), fmt.Sprintf(format, args...))
}

// Info prints a neutral line.
func (p *Printer) Info(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Warn prints a warning line.
func (p *Printer) Warn(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", p.paint(yellow, "Warning:"), fmt.Sprintf(format, args...))
}

// Error prints an error line.
func (p *Printer) Error(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", p.paint(red, "Error:"), fmt.Sprintf(format, args...))
}
