package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// ProgressBar renders a Unicode progress bar with percentage.
func ProgressBar(done, total, width int) string {
	if total <= 0 {
		total = 1
	}
	if width < 5 {
		width = 5
	}
	filled := int(float64(done) / float64(total) * float64(width))
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	pct := int(float64(done) / float64(total) * 100)
	return fmt.Sprintf("%s %3d%%", bar, pct)
}

// Truncate cuts s to at most width visible cells, keeping escape codes intact.
func Truncate(s string, width int) string {
	return ansi.Truncate(s, width, "...")
}

// Panel draws a framed box using the current theme.
func Panel(w io.Writer, lines []string) {
	t := Current()
	maxw := 0
	for _, ln := range lines {
		if vis := ansi.StringWidth(ln); vis > maxw {
			maxw = vis
		}
	}
	pad := func(s string) string {
		if vis := ansi.StringWidth(s); vis < maxw {
			s += strings.Repeat(" ", maxw-vis)
		}
		return s
	}
	border := func(s string) string { return C(t.Muted, s) }
	fmt.Fprintln(w, border(t.CornerTL+strings.Repeat(t.H, maxw+2)+t.CornerTR))
	for _, ln := range lines {
		fmt.Fprintln(w, border(t.V)+" "+pad(ln)+" "+border(t.V))
	}
	fmt.Fprintln(w, border(t.CornerBL+strings.Repeat(t.H, maxw+2)+t.CornerBR))
}
