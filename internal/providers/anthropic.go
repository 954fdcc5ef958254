package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vanpelt/aura/internal/logger"
	"github.com/vanpelt/aura/internal/models"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion        = "2023-06-01"
)

// AnthropicClient streams Claude messages
type AnthropicClient struct {
	baseURL    string
	httpClient *http.Client
}

// AnthropicMessage represents a message in the Anthropic API format
type AnthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AnthropicRequest represents a request to the Anthropic API
type AnthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []AnthropicMessage `json:"messages"`
	Stream    bool               `json:"stream"`
}

// NewAnthropicClient creates a client; an empty baseURL means api.anthropic.com
func NewAnthropicClient(baseURL string, httpClient *http.Client) *AnthropicClient {
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &AnthropicClient{baseURL: baseURL, httpClient: httpClient}
}

func (c *AnthropicClient) Provider() models.Provider { return models.ProviderClaude }

func (c *AnthropicClient) Stream(ctx context.Context, req Request) (<-chan string, <-chan error) {
	content := make(chan string, 100)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(content)

		if req.APIKey == "" {
			errs <- ErrUnconfigured
			return
		}

		body := AnthropicRequest{
			Model:     req.Model,
			MaxTokens: req.maxTokens(),
			System:    req.System,
			Stream:    true,
		}
		for _, m := range req.Messages {
			// the messages API takes the system prompt separately
			if m.Role == models.RoleSystem {
				continue
			}
			body.Messages = append(body.Messages, AnthropicMessage{Role: string(m.Role), Content: m.Content})
		}

		payload, err := json.Marshal(body)
		if err != nil {
			errs <- fmt.Errorf("failed to marshal request: %w", err)
			return
		}
		httpReq, err := http.NewRequest(http.MethodPost, c.baseURL+"/messages", bytes.NewReader(payload))
		if err != nil {
			errs <- fmt.Errorf("failed to create request: %w", err)
			return
		}
		httpReq.Header.Set("x-api-key", req.APIKey)
		httpReq.Header.Set("anthropic-version", anthropicVersion)

		start := time.Now()
		resp, err := openStream(ctx, c.httpClient, models.ProviderClaude, httpReq)
		if err != nil {
			errs <- err
			return
		}
		defer resp.Body.Close()

		err = scanEvents(ctx, resp.Body, func(data string) (string, bool, error) {
			var evt struct {
				Type  string `json:"type"`
				Delta *struct {
					Type string `json:"type"`
					Text string `json:"text,omitempty"`
				} `json:"delta,omitempty"`
				Error *struct {
					Type    string `json:"type"`
					Message string `json:"message"`
				} `json:"error,omitempty"`
			}
			if err := json.Unmarshal([]byte(data), &evt); err != nil {
				return "", false, nil
			}
			if evt.Error != nil {
				return "", true, fmt.Errorf("anthropic API error: %s", evt.Error.Message)
			}
			if evt.Type == "message_stop" {
				return "", true, nil
			}
			if evt.Type == "content_block_delta" && evt.Delta != nil {
				return evt.Delta.Text, false, nil
			}
			return "", false, nil
		}, content)
		if err != nil {
			errs <- fmt.Errorf("stream error: %w", err)
			return
		}
		logger.Debugf("🤖 Anthropic %s stream completed in %v", req.Model, time.Since(start))
	}()

	return content, errs
}
