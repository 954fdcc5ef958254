package models

import (
	"fmt"
	"time"
)

// Provider identifies an LLM vendor backend
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
	ProviderClaude Provider = "claude"
	ProviderMeta   Provider = "meta"
)

// Providers lists every known provider in display order
var Providers = []Provider{ProviderGemini, ProviderOpenAI, ProviderClaude, ProviderMeta}

// ParseProvider validates a provider identifier. "anthropic" is accepted as
// an alias for claude since FinePrint clients send it.
func ParseProvider(s string) (Provider, error) {
	switch s {
	case "gemini", "google":
		return ProviderGemini, nil
	case "openai", "gpt":
		return ProviderOpenAI, nil
	case "claude", "anthropic":
		return ProviderClaude, nil
	case "meta", "llama":
		return ProviderMeta, nil
	}
	return "", fmt.Errorf("unknown provider: %q", s)
}

// Role of a chat message author
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ChatMessage is one entry of a conversation lane
type ChatMessage struct {
	ID        string    `json:"id,omitempty"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// LaneState is the per-lane dispatch state
type LaneState string

const (
	LaneIdle      LaneState = "idle"
	LaneAwaiting  LaneState = "awaiting-response"
	LaneStreaming LaneState = "streaming"
	LaneCompleted LaneState = "completed"
	LaneErrored   LaneState = "errored"
)

// Busy reports whether a lane is still waiting on its provider
func (s LaneState) Busy() bool {
	return s == LaneAwaiting || s == LaneStreaming
}

// LaneSnapshot is a read-only copy of a lane
type LaneSnapshot struct {
	Provider Provider      `json:"provider"`
	ModelID  string        `json:"modelId"`
	State    LaneState     `json:"state"`
	Messages []ChatMessage `json:"messages"`
}

// InteractionLog is one row of the interaction log
type InteractionLog struct {
	ID             int64     `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	UserID         int64     `json:"userId,omitempty"`
	Provider       Provider  `json:"provider"`
	Model          string    `json:"model"`
	PromptLength   int       `json:"promptLength"`
	ResponseLength int       `json:"responseLength"`
	Status         string    `json:"status"` // "success" or "error"
}

// User is a workstation account
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
