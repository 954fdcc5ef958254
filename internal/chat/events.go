package chat

import (
	"github.com/vanpelt/aura/internal/models"
)

// EventType names a dispatcher event
type EventType string

const (
	EventLaneStarted   EventType = "lane.started"
	EventLaneDelta     EventType = "lane.delta"
	EventLaneCompleted EventType = "lane.completed"
	EventLaneErrored   EventType = "lane.errored"
	EventSendSettled   EventType = "send.settled"
)

// Event is pushed to the sink as lanes progress
type Event struct {
	Type      EventType        `json:"type"`
	Provider  models.Provider  `json:"provider,omitempty"`
	ModelID   string           `json:"modelId,omitempty"`
	MessageID string           `json:"messageId,omitempty"`
	Delta     string           `json:"delta,omitempty"`
	Content   string           `json:"content,omitempty"`
	Error     string           `json:"error,omitempty"`
	State     models.LaneState `json:"state,omitempty"`
}

// EventSink receives events. It is called from lane goroutines and must be
// safe for concurrent use.
type EventSink func(Event)

func discard(Event) {}
