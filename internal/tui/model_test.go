package tui

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vanpelt/aura/internal/chat"
	"github.com/vanpelt/aura/internal/models"
)

type fakeWorkspace struct {
	mu        sync.Mutex
	lanes     []models.LaneSnapshot
	sent      []string
	cancelled []models.Provider
	resets    int
	sendErr   error
	rejected  map[models.Provider]string
}

func (f *fakeWorkspace) Send(ctx context.Context, prompt string) (*chat.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, prompt)
	return &chat.SendResult{Dispatched: []models.Provider{models.ProviderGemini}, Rejected: f.rejected}, nil
}

func (f *fakeWorkspace) Cancel(p models.Provider) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, p)
	return true
}

func (f *fakeWorkspace) Reset(ps ...models.Provider) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	f.lanes = nil
}

func (f *fakeWorkspace) Lanes() []models.LaneSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.LaneSnapshot(nil), f.lanes...)
}

func (f *fakeWorkspace) Sending() bool { return false }

func (f *fakeWorkspace) setLanes(lanes ...models.LaneSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lanes = lanes
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return next.(Model)
}

func press(t *testing.T, m Model, key tea.KeyType) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(tea.KeyMsg{Type: key})
	return next.(Model), cmd
}

func TestEnterSendsPrompt(t *testing.T) {
	ws := &fakeWorkspace{}
	m := NewModel(context.Background(), ws)

	m = typeText(t, m, "hello lanes")
	m, cmd := press(t, m, tea.KeyEnter)
	require.NotNil(t, cmd)
	assert.Empty(t, m.input.Value())

	msg := cmd()
	res, ok := msg.(sendResultMsg)
	require.True(t, ok)
	require.NoError(t, res.err)
	assert.Equal(t, []string{"hello lanes"}, ws.sent)
}

func TestEnterIgnoresBlankPrompt(t *testing.T) {
	ws := &fakeWorkspace{}
	m := NewModel(context.Background(), ws)

	m = typeText(t, m, "   ")
	_, cmd := press(t, m, tea.KeyEnter)
	assert.Nil(t, cmd)
	assert.Empty(t, ws.sent)
}

func TestSlashCommands(t *testing.T) {
	ws := &fakeWorkspace{}
	m := NewModel(context.Background(), ws)

	m = typeText(t, m, "/reset")
	m, _ = press(t, m, tea.KeyEnter)
	assert.Equal(t, 1, ws.resets)
	assert.Equal(t, "Conversation cleared", m.status)

	m = typeText(t, m, "/quit")
	m, cmd := press(t, m, tea.KeyEnter)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())
}

func TestLaneEventsRedraw(t *testing.T) {
	ws := &fakeWorkspace{}
	m := NewModel(context.Background(), ws)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(Model)
	assert.Contains(t, m.View(), "No messages yet")

	ws.setLanes(
		models.LaneSnapshot{
			Provider: models.ProviderGemini,
			ModelID:  "gemini-2.5-flash",
			State:    models.LaneStreaming,
			Messages: []models.ChatMessage{
				{Role: models.RoleUser, Content: "hi"},
				{Role: models.RoleAssistant, Content: "Hello"},
			},
		},
		models.LaneSnapshot{
			Provider: models.ProviderOpenAI,
			ModelID:  "gpt-4o",
			State:    models.LaneErrored,
		},
	)
	next, _ = m.Update(laneEventMsg(chat.Event{Type: chat.EventLaneErrored, Provider: models.ProviderOpenAI}))
	m = next.(Model)

	view := m.View()
	assert.Contains(t, view, "gemini-2.5-flash")
	assert.Contains(t, view, "Hello")
	assert.Contains(t, view, "openai failed")
	assert.Equal(t, []models.Provider{models.ProviderGemini}, m.busy())
}

func TestCancelBusyLanes(t *testing.T) {
	ws := &fakeWorkspace{}
	ws.setLanes(
		models.LaneSnapshot{Provider: models.ProviderGemini, State: models.LaneAwaiting},
		models.LaneSnapshot{Provider: models.ProviderClaude, State: models.LaneCompleted},
	)
	m := NewModel(context.Background(), ws)

	m, _ = press(t, m, tea.KeyEsc)
	assert.Equal(t, []models.Provider{models.ProviderGemini}, ws.cancelled)
	assert.Equal(t, "Cancelled 1 lane(s)", m.status)
}

func TestSendResultReporting(t *testing.T) {
	ws := &fakeWorkspace{}
	m := NewModel(context.Background(), ws)

	next, _ := m.Update(sendResultMsg{result: &chat.SendResult{
		Rejected: map[models.Provider]string{models.ProviderClaude: "busy"},
	}})
	m = next.(Model)
	assert.Equal(t, "Skipped claude (busy)", m.status)

	next, _ = m.Update(sendResultMsg{err: errors.New("no providers selected")})
	m = next.(Model)
	assert.Contains(t, m.View(), "no providers selected")
}

func TestAppDropsEventsWhenIdle(t *testing.T) {
	a := NewApp()
	assert.NotPanics(t, func() {
		a.Sink(chat.Event{Type: chat.EventLaneStarted})
		a.Notify("ignored")
	})
}
