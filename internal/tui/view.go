package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/vanpelt/aura/internal/models"
	"github.com/vanpelt/aura/internal/tui/components"
)

// View renders header, lanes, prompt line and footer
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	header := components.HeaderStyle.Width(max(m.width, 1)).Render("🤖 aura workstation" + m.sendingBadge())

	var footer string
	switch {
	case m.err != nil:
		footer = components.ErrorStyle.Render("Error: " + m.err.Error())
	case m.status != "":
		footer = m.status
	default:
		footer = fmt.Sprintf("%s send  %s cancel  %s reset  %s quit",
			components.KeyHighlightStyle.Render("enter"),
			components.KeyHighlightStyle.Render(components.KeyCancel),
			components.KeyHighlightStyle.Render(components.KeyReset),
			components.KeyHighlightStyle.Render(components.KeyQuit))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		m.input.View(),
		components.FooterStyle.Width(max(m.width, 1)).Render(footer),
	)
}

func (m Model) sendingBadge() string {
	busy := m.busy()
	if len(busy) == 0 {
		return ""
	}
	names := make([]string, len(busy))
	for i, p := range busy {
		names[i] = string(p)
	}
	return "  " + m.spinner.View() + " " + strings.Join(names, ", ")
}

// renderLanes lays the lanes out side by side within width
func renderLanes(lanes []models.LaneSnapshot, width int) string {
	if len(lanes) == 0 {
		return components.MutedStyle.Render("No messages yet. Type a prompt and press enter.")
	}

	// border and padding take four columns per lane
	colWidth := max(width/len(lanes)-4, 12)
	cols := make([]string, len(lanes))
	for i, l := range lanes {
		cols[i] = components.LaneStyle.Width(colWidth).Render(renderLane(l, colWidth))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func renderLane(l models.LaneSnapshot, width int) string {
	var b strings.Builder
	b.WriteString(components.LaneTitleStyle.Render(string(l.Provider)))
	b.WriteString(" ")
	b.WriteString(components.StateStyle(l.State).Render(string(l.State)))
	b.WriteString("\n")
	b.WriteString(components.MutedStyle.Render(l.ModelID))
	b.WriteString("\n")

	body := lipgloss.NewStyle().Width(width)
	for _, msg := range l.Messages {
		b.WriteString("\n")
		switch msg.Role {
		case models.RoleUser:
			b.WriteString(components.UserMessageStyle.Width(width).Render("› " + msg.Content))
		default:
			content := msg.Content
			if content == "" && l.State.Busy() {
				content = "…"
			}
			b.WriteString(body.Render(content))
		}
		b.WriteString("\n")
	}
	return b.String()
}
