package output

import (
	"github.com/fatih/color"
)

// ColorScheme defines the colors used for different elements in the output
type ColorScheme struct {
	Title     *color.Color
	Rule      *color.Color
	Label     *color.Color
	Value     *color.Color
	Dim       *color.Color
	Good      *color.Color
	Warn      *color.Color
	Bad       *color.Color
	Highlight *color.Color
}

// DefaultColorScheme returns the default color scheme
func DefaultColorScheme() *ColorScheme {
	return &ColorScheme{
		Title:     color.New(color.Bold),
		Rule:      color.New(color.FgCyan),
		Label:     color.New(color.FgYellow),
		Value:     color.New(color.FgCyan),
		Dim:       color.New(color.Faint),
		Good:      color.New(color.FgGreen),
		Warn:      color.New(color.FgYellow),
		Bad:       color.New(color.FgRed),
		Highlight: color.New(color.FgMagenta, color.Bold),
	}
}

// NoColorScheme returns a color scheme with all colors disabled
func NoColorScheme() *ColorScheme {
	scheme := DefaultColorScheme()
	for _, c := range scheme.all() {
		c.DisableColor()
	}
	return scheme
}

// forceColors enables every color regardless of fatih/color's own
// terminal detection, which only looks at stdout.
func (s *ColorScheme) forceColors() *ColorScheme {
	for _, c := range s.all() {
		c.EnableColor()
	}
	return s
}

func (s *ColorScheme) all() []*color.Color {
	return []*color.Color{s.Title, s.Rule, s.Label, s.Value, s.Dim, s.Good, s.Warn, s.Bad, s.Highlight}
}

// rateColor picks good/warn/bad for a success rate in percent.
func (s *ColorScheme) rateColor(successRate float64) *color.Color {
	switch {
	case successRate >= 99:
		return s.Good
	case successRate >= 95:
		return s.Warn
	default:
		return s.Bad
	}
}

// SuccessIcon returns a checkmark symbol with appropriate color
func SuccessIcon(noColor bool) string {
	if noColor {
		return "✓"
	}
	return color.New(color.FgGreen).Sprint("✓")
}

// ErrorIcon returns an X symbol with appropriate color
func ErrorIcon(noColor bool) string {
	if noColor {
		return "✗"
	}
	return color.New(color.FgRed).Sprint("✗")
}

// WarningIcon returns a warning symbol with appropriate color
func WarningIcon(noColor bool) string {
	if noColor {
		return "⚠"
	}
	return color.New(color.FgYellow).Sprint("⚠")
}
