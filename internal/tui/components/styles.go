package components

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/vanpelt/aura/internal/models"
)

// Color scheme
const (
	ColorPrimary = "6"  // Cyan
	ColorSuccess = "2"  // Green
	ColorWarning = "3"  // Yellow
	ColorError   = "1"  // Red
	ColorInfo    = "4"  // Blue
	ColorText    = "15" // White
	ColorMuted   = "8"  // Dark gray
	ColorAccent  = "11" // Bright yellow
	ColorBorder  = "8"
)

// Header styles
var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorPrimary)).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true)

	LaneTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorText))
)

// Text styles
var (
	KeyHighlightStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color(ColorAccent)).
				Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorError))

	MutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorMuted))

	UserMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color(ColorInfo)).
				Bold(true)
)

// Container styles
var (
	LaneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorBorder)).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorMuted)).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			Padding(0, 1)
)

// StateStyle colors a lane badge by its dispatch state
func StateStyle(s models.LaneState) lipgloss.Style {
	switch s {
	case models.LaneAwaiting, models.LaneStreaming:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWarning))
	case models.LaneCompleted:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSuccess))
	case models.LaneErrored:
		return ErrorStyle
	default:
		return MutedStyle
	}
}
