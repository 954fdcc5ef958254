// Package tui is the full-screen terminal front end of the workstation: one
// column per provider lane, a prompt line underneath.
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/vanpelt/aura/internal/chat"
	"github.com/vanpelt/aura/internal/models"
	"github.com/vanpelt/aura/internal/tui/components"
)

// Workspace is the dispatcher the TUI drives
type Workspace interface {
	Send(ctx context.Context, prompt string) (*chat.SendResult, error)
	Cancel(p models.Provider) bool
	Reset(ps ...models.Provider)
	Lanes() []models.LaneSnapshot
	Sending() bool
}

// Messages delivered to the program from outside the update loop
type (
	laneEventMsg  chat.Event
	statusMsg     string
	sendResultMsg struct {
		result *chat.SendResult
		err    error
	}
)

const (
	headerHeight = 2
	inputHeight  = 1
	footerHeight = 2
)

// Model is the bubbletea state of the lane view
type Model struct {
	ctx context.Context
	ws  Workspace

	width  int
	height int

	lanes    []models.LaneSnapshot
	status   string
	err      error
	quitting bool

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
}

// NewModel creates the lane view over ws. ctx bounds every send.
func NewModel(ctx context.Context, ws Workspace) Model {
	input := textinput.New()
	input.Placeholder = "Ask every selected provider..."
	input.Prompt = "› "
	input.CharLimit = 4000
	input.Width = 76
	input.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(components.ColorPrimary)).Bold(true)
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(components.ColorWarning))

	m := Model{
		ctx:      ctx,
		ws:       ws,
		width:    80,
		height:   24,
		input:    input,
		viewport: viewport.New(80, 24-headerHeight-inputHeight-footerHeight),
		spinner:  sp,
	}
	m.refresh()
	return m
}

// Init starts the cursor blink and the spinner
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// refresh re-reads the lanes and redraws the scroll area
func (m *Model) refresh() {
	m.lanes = m.ws.Lanes()
	m.viewport.SetContent(renderLanes(m.lanes, m.viewport.Width))
	m.viewport.GotoBottom()
}

func sendCmd(ctx context.Context, ws Workspace, prompt string) tea.Cmd {
	return func() tea.Msg {
		res, err := ws.Send(ctx, prompt)
		return sendResultMsg{result: res, err: err}
	}
}
