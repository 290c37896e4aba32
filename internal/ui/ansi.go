package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/x/term"
)

var (
	reset = "\033[0m"
	bold  = "\033[1m"
	dim   = "\033[2m"
	faint = "\033[2;9m" // dim + strikethrough

	fgGray   = "\033[90m"
	fgGreen  = "\033[32m"
	fgYellow = "\033[33m"
	fgBlue   = "\033[34m"
	fgRed    = "\033[31m"

	symCheck = "✔"
	symCross = "✖"
)

var (
	forceColor   bool
	disableColor bool
)

// SetColorForcing overrides terminal detection. disable wins over force.
func SetColorForcing(force, disable bool) {
	forceColor = force
	disableColor = disable
}

func isTTY(f *os.File) bool {
	return f != nil && term.IsTerminal(f.Fd())
}

func colorOn() bool {
	if disableColor || current.NoColor {
		return false
	}
	return forceColor || isTTY(os.Stdout)
}

// C wraps s in color when stdout is a terminal.
func C(color, s string) string {
	if color == "" || !colorOn() {
		return s
	}
	return color + s + reset
}

// Dim renders s faint.
func Dim(s string) string { return C(dim, s) }

// Struck renders s faint and crossed out.
func Struck(s string) string { return C(faint, s) }

func OK(w io.Writer, msg string)   { fmt.Fprintln(w, C(current.Success, current.SymDone+" "+msg)) }
func Fail(w io.Writer, msg string) { fmt.Fprintln(w, C(current.Error, symCross+" "+msg)) }
