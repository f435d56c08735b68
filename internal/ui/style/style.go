// Package style provides the shared colors and icons of the console output.
package style

import "github.com/charmbracelet/lipgloss"

// Palette.
var (
	Ember  = lipgloss.Color("#E8590C")
	Ash    = lipgloss.Color("#6B7280")
	Smoke  = lipgloss.Color("#9CA3AF")
	Green  = lipgloss.Color("#22A06B")
	Red    = lipgloss.Color("#D93025")
	Yellow = lipgloss.Color("#F59E0B")
	Blue   = lipgloss.Color("#3B82F6")
)

// Icons.
const (
	Check   = "✓"
	Cross   = "✗"
	Warning = "!"
	Arrow   = "→"
	Reload  = "↻"
	Dot     = "●"
)

// Task renders a task name as "[name]".
var Task = lipgloss.NewStyle().Foreground(Ember).Bold(true)

// Faint renders secondary text such as durations.
var Faint = lipgloss.NewStyle().Foreground(Ash)
