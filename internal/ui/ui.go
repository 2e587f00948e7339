// Package ui provides styled terminal output for the pantry CLI.
//
// Styles degrade gracefully: when stdout is not a terminal, when NO_COLOR is
// set, or when the user passes --no-color, every Render helper returns its
// input unchanged so output stays pipe- and script-friendly.
package ui

import (
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // yellow
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")) // blue
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Faint(true)

	colorMu       sync.Mutex
	colorDisabled bool
)

// DisableColor forces plain output regardless of terminal detection.
// Used by the --no-color flag.
func DisableColor() {
	colorMu.Lock()
	defer colorMu.Unlock()
	colorDisabled = true
}

// colorEnabled reports whether styled output should be produced.
func colorEnabled() bool {
	colorMu.Lock()
	defer colorMu.Unlock()
	if colorDisabled {
		return false
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return false
	}
	return termenv.EnvColorProfile() != termenv.Ascii
}

// RenderPass styles text for successful outcomes.
func RenderPass(s string) string {
	if !colorEnabled() {
		return s
	}
	return passStyle.Render(s)
}

// RenderWarn styles text for warnings.
func RenderWarn(s string) string {
	if !colorEnabled() {
		return s
	}
	return warnStyle.Render(s)
}

// RenderFail styles text for errors.
func RenderFail(s string) string {
	if !colorEnabled() {
		return s
	}
	return failStyle.Render(s)
}

// RenderAccent styles text for emphasis (headings, progress markers).
func RenderAccent(s string) string {
	if !colorEnabled() {
		return s
	}
	return accentStyle.Render(s)
}

// RenderMuted styles secondary detail text.
func RenderMuted(s string) string {
	if !colorEnabled() {
		return s
	}
	return mutedStyle.Render(s)
}
