package iostreams

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorSuccess = lipgloss.Color("#04B575")
	colorWarning = lipgloss.Color("#FFCC00")
	colorError   = lipgloss.Color("#FF5F87")
	colorInfo    = lipgloss.Color("#87CEEB")
	colorMuted   = lipgloss.Color("#626262")

	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError)
	infoStyle    = lipgloss.NewStyle().Foreground(colorInfo)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	boldStyle    = lipgloss.NewStyle().Bold(true)
)

// ColorScheme formats terminal text. When colors are disabled, methods
// return the input string unmodified.
type ColorScheme struct {
	enabled bool
}

// NewColorScheme creates a new ColorScheme.
func NewColorScheme(enabled bool) *ColorScheme {
	return &ColorScheme{enabled: enabled}
}

// Enabled returns whether colors are enabled.
func (cs *ColorScheme) Enabled() bool {
	return cs.enabled
}

func (cs *ColorScheme) render(style lipgloss.Style, s string) string {
	if !cs.enabled {
		return s
	}
	return style.Render(s)
}

func (cs *ColorScheme) Red(s string) string    { return cs.render(errorStyle, s) }
func (cs *ColorScheme) Yellow(s string) string { return cs.render(warningStyle, s) }
func (cs *ColorScheme) Green(s string) string  { return cs.render(successStyle, s) }
func (cs *ColorScheme) Cyan(s string) string   { return cs.render(infoStyle, s) }
func (cs *ColorScheme) Muted(s string) string  { return cs.render(mutedStyle, s) }
func (cs *ColorScheme) Bold(s string) string   { return cs.render(boldStyle, s) }

// Boldf returns a formatted string in bold.
func (cs *ColorScheme) Boldf(format string, a ...any) string {
	return cs.Bold(fmt.Sprintf(format, a...))
}

// SuccessIconWithColor returns a success indicator with text.
// With colors: green ✓ text. Without colors: [ok] text.
func (cs *ColorScheme) SuccessIconWithColor(text string) string {
	if cs.enabled {
		return cs.Green("✓ " + text)
	}
	return "[ok] " + text
}

// WarningIconWithColor returns a warning indicator with text.
func (cs *ColorScheme) WarningIconWithColor(text string) string {
	if cs.enabled {
		return cs.Yellow("! " + text)
	}
	return "[warn] " + text
}

// FailureIconWithColor returns a failure indicator with text.
func (cs *ColorScheme) FailureIconWithColor(text string) string {
	if cs.enabled {
		return cs.Red("✗ " + text)
	}
	return "[error] " + text
}

// InfoIconWithColor returns an info indicator with text.
func (cs *ColorScheme) InfoIconWithColor(text string) string {
	if cs.enabled {
		return cs.Cyan("ℹ " + text)
	}
	return "[info] " + text
}
