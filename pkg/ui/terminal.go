package ui

import (
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	colorMu sync.Mutex
	noColor bool
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// SetupColor picks the color profile for out. Color is disabled when
// disable is set, NO_COLOR is present or out is not a terminal.
func SetupColor(out *os.File, disable bool) {
	colorMu.Lock()
	defer colorMu.Unlock()

	_, envNoColor := os.LookupEnv("NO_COLOR")
	noColor = disable || envNoColor || !IsTerminal(out)
	if noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	lipgloss.SetColorProfile(termenv.NewOutput(out).EnvColorProfile())
}

// ColorEnabled reports the last SetupColor decision.
func ColorEnabled() bool {
	colorMu.Lock()
	defer colorMu.Unlock()
	return !noColor
}
