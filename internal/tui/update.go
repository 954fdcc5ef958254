package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/vanpelt/aura/internal/chat"
	"github.com/vanpelt/aura/internal/models"
	"github.com/vanpelt/aura/internal/tui/components"
)

// Update routes messages to their handlers
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)
	case tea.KeyMsg:
		return m.handleKey(msg)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case laneEventMsg:
		return m.handleLaneEvent(chat.Event(msg))
	case sendResultMsg:
		return m.handleSendResult(msg)
	case statusMsg:
		m.status = string(msg)
		return m, nil
	}
	return m, nil
}

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	m.viewport.Width = max(msg.Width, 20)
	m.viewport.Height = max(msg.Height-headerHeight-inputHeight-footerHeight, 3)
	m.input.Width = max(msg.Width-4, 10)
	m.refresh()
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case components.KeyQuit, components.KeyQuitAlt:
		m.quitting = true
		return m, tea.Quit

	case components.KeyReset:
		m.reset()
		return m, nil

	case components.KeyCancel:
		n := m.cancelAll()
		if n > 0 {
			m.status = fmt.Sprintf("Cancelled %d lane(s)", n)
		}
		return m, nil

	case components.KeyPageUp, components.KeyPageDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case components.KeyEnter:
		prompt := strings.TrimSpace(m.input.Value())
		m.input.Reset()
		switch prompt {
		case "":
			return m, nil
		case "/quit", "/exit":
			m.quitting = true
			return m, tea.Quit
		case "/reset":
			m.reset()
			return m, nil
		}
		m.err = nil
		m.status = ""
		return m, sendCmd(m.ctx, m.ws, prompt)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleLaneEvent(e chat.Event) (tea.Model, tea.Cmd) {
	debugLog("lane event %s %s", e.Type, e.Provider)
	if e.Type == chat.EventLaneErrored {
		m.status = fmt.Sprintf("%s failed", e.Provider)
	}
	m.refresh()
	return m, nil
}

func (m Model) handleSendResult(msg sendResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.err = msg.err
		return m, nil
	}
	if msg.result != nil && len(msg.result.Rejected) > 0 {
		skipped := make([]string, 0, len(msg.result.Rejected))
		for _, p := range models.Providers {
			if reason, ok := msg.result.Rejected[p]; ok {
				skipped = append(skipped, fmt.Sprintf("%s (%s)", p, reason))
			}
		}
		m.status = "Skipped " + strings.Join(skipped, ", ")
	}
	m.refresh()
	return m, nil
}

func (m *Model) reset() {
	m.ws.Reset()
	m.err = nil
	m.status = "Conversation cleared"
	m.refresh()
}

func (m *Model) cancelAll() int {
	n := 0
	for _, l := range m.ws.Lanes() {
		if l.State.Busy() && m.ws.Cancel(l.Provider) {
			n++
		}
	}
	return n
}

// busy lists the providers still waiting on an answer
func (m Model) busy() []models.Provider {
	var out []models.Provider
	for _, l := range m.lanes {
		if l.State.Busy() {
			out = append(out, l.Provider)
		}
	}
	return out
}
