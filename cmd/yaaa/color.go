package main

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// envColor overrides color detection: truecolor, 256, 16 or none.
const envColor = "YAAA_COLOR"

// initColorProfile configures the lipgloss color profile. Terminals that
// advertise nothing still get ANSI256, which works over SSH and in tmux.
func initColorProfile() {
	lipgloss.SetColorProfile(colorProfile(os.Getenv, termenv.NewOutput(os.Stdout).EnvColorProfile()))
}

func colorProfile(getenv func(string) string, detected termenv.Profile) termenv.Profile {
	switch strings.ToLower(getenv(envColor)) {
	case "truecolor", "true", "24bit":
		return termenv.TrueColor
	case "256", "ansi256":
		return termenv.ANSI256
	case "16", "ansi", "basic":
		return termenv.ANSI
	case "none", "off", "ascii":
		return termenv.Ascii
	}

	if ct := getenv("COLORTERM"); ct == "truecolor" || ct == "24bit" {
		return termenv.TrueColor
	}
	// Ascii here usually means "unknown", not "no colors".
	if detected == termenv.Ascii && getenv("NO_COLOR") == "" {
		return termenv.ANSI256
	}
	return detected
}
