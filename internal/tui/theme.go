package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Palette helpers. Colors adapt to light and dark terminal backgrounds;
// faint styling is only used on dark ones, where it stays legible.

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

func faintIfDark(st lipgloss.Style) lipgloss.Style {
	if lipgloss.HasDarkBackground() {
		return st.Faint(true)
	}
	return st
}

var (
	colorMuted      lipgloss.TerminalColor = ac("240", "243")
	colorChromeFg   lipgloss.TerminalColor = ac("240", "245")
	colorSelectedBg lipgloss.TerminalColor = ac("#e9e9e9", "#262626")
	colorSelectedFg lipgloss.TerminalColor = ac("235", "255")
	colorAccent     lipgloss.TerminalColor = ac("27", "62")
	colorAccentFg   lipgloss.TerminalColor = ac("255", "235")
	colorGrabbedBg  lipgloss.TerminalColor = ac("#fff3c4", "#3a3320")
	colorFlashErr   lipgloss.TerminalColor = ac("160", "203")
)

var (
	styleTitle      = lipgloss.NewStyle().Bold(true).Foreground(colorAccentFg).Background(colorAccent).Padding(0, 1)
	styleColHeader  = lipgloss.NewStyle().Bold(true).Foreground(colorChromeFg)
	styleListTitle  = lipgloss.NewStyle().Bold(true)
	styleItem       = lipgloss.NewStyle()
	styleEmpty      = lipgloss.NewStyle().Foreground(colorMuted).Italic(true)
	styleShadow     = lipgloss.NewStyle().Foreground(colorMuted)
	styleSelected   = lipgloss.NewStyle().Foreground(colorSelectedFg).Background(colorSelectedBg)
	styleGrabbed    = lipgloss.NewStyle().Bold(true).Foreground(colorSelectedFg).Background(colorGrabbedBg)
	styleFooter     = lipgloss.NewStyle().Foreground(colorChromeFg)
	styleFlashError = lipgloss.NewStyle().Bold(true).Foreground(colorFlashErr)
)

// plainColors disables color output, for NO_COLOR terminals and tests.
func plainColors() {
	lipgloss.SetColorProfile(termenv.Ascii)
}
