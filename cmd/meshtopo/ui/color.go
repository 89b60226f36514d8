package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

const (
	envNoColor = "NO_COLOR"
	envCI      = "CI"
	envTerm    = "TERM"
)

// ConfigureColor picks the lipgloss color profile. Color is dropped when
// disabled, under CI, on dumb terminals, or when stdout is not a terminal.
func ConfigureColor(disabled bool) {
	if colorEnabled(disabled) {
		lipgloss.SetColorProfile(termenv.ColorProfile())
		return
	}
	lipgloss.SetColorProfile(termenv.Ascii)
}

func colorEnabled(disabled bool) bool {
	if disabled {
		return false
	}
	if os.Getenv(envNoColor) != "" || envTruthy(envCI) {
		return false
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(envTerm)), "dumb") {
		return false
	}
	info, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func envTruthy(key string) bool {
	switch strings.TrimSpace(strings.ToLower(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
