package chat

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vanpelt/aura/internal/models"
	"github.com/vanpelt/aura/internal/providers"
)

// ErrorMarkerPrefix starts every error message written into a lane
const ErrorMarkerPrefix = "[error] "

// Lane is one provider's conversation. Each lane has its own lock; lanes
// never share state.
type Lane struct {
	mu       sync.Mutex
	provider models.Provider
	modelID  string
	messages []models.ChatMessage
	state    models.LaneState
	cancel   context.CancelFunc
}

func newLane(p models.Provider, modelID string) *Lane {
	return &Lane{provider: p, modelID: modelID, state: models.LaneIdle}
}

// Snapshot copies the lane
func (l *Lane) Snapshot() models.LaneSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return models.LaneSnapshot{
		Provider: l.provider,
		ModelID:  l.modelID,
		State:    l.state,
		Messages: slices.Clone(l.messages),
	}
}

// State returns the current lane state
func (l *Lane) State() models.LaneState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// begin appends the user turn and an empty assistant placeholder, moving the
// lane to awaiting. It fails if the lane is still busy.
func (l *Lane) begin(prompt, modelID string, now time.Time) (history []providers.Message, placeholderID string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state.Busy() {
		return nil, "", ErrLaneBusy
	}
	if modelID != "" {
		l.modelID = modelID
	}

	l.messages = append(l.messages, models.ChatMessage{
		ID:        uuid.NewString(),
		Role:      models.RoleUser,
		Content:   prompt,
		Timestamp: now,
	})
	history = historyOf(l.messages)

	placeholderID = uuid.NewString()
	l.messages = append(l.messages, models.ChatMessage{
		ID:        placeholderID,
		Role:      models.RoleAssistant,
		Timestamp: now,
	})
	l.state = models.LaneAwaiting
	return history, placeholderID, nil
}

// historyOf converts messages for the provider, leaving out error markers
func historyOf(msgs []models.ChatMessage) []providers.Message {
	out := make([]providers.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == models.RoleAssistant && (m.Content == "" || strings.HasPrefix(m.Content, ErrorMarkerPrefix)) {
			continue
		}
		out = append(out, providers.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

// appendDelta grows the placeholder in place
func (l *Lane) appendDelta(id, delta string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = models.LaneStreaming
	if i := l.indexOf(id); i >= 0 {
		l.messages[i].Content += delta
	}
}

// finish settles the lane. It returns the final placeholder content and how
// much of it came from the provider.
func (l *Lane) finish(id string, marker string) (string, int, models.LaneState) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cancel = nil
	i := l.indexOf(id)
	received := 0
	if i >= 0 {
		received = len(l.messages[i].Content)
	}
	if marker == "" {
		l.state = models.LaneCompleted
	} else {
		l.state = models.LaneErrored
		if i >= 0 {
			if l.messages[i].Content == "" {
				l.messages[i].Content = marker
			} else {
				l.messages[i].Content += "\n\n" + marker
			}
		}
	}
	if i < 0 {
		return "", 0, l.state
	}
	l.messages[i].Timestamp = time.Now()
	return l.messages[i].Content, received, l.state
}

func (l *Lane) setCancel(cancel context.CancelFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancel = cancel
}

// abort cancels an in-flight request
func (l *Lane) abort() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel == nil {
		return false
	}
	l.cancel()
	return true
}

// indexOf requires l.mu
func (l *Lane) indexOf(id string) int {
	for i := len(l.messages) - 1; i >= 0; i-- {
		if l.messages[i].ID == id {
			return i
		}
	}
	return -1
}

func errorMarker(p models.Provider, msg string) string {
	return ErrorMarkerPrefix + string(p) + ": " + msg
}
