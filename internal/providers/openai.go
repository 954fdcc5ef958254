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

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient streams chat completions
type OpenAIClient struct {
	baseURL    string
	httpClient *http.Client
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	Stream         bool            `json:"stream"`
	MaxTokens      int             `json:"max_completion_tokens,omitempty"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format,omitempty"`
}

// NewOpenAIClient creates a client; an empty baseURL means api.openai.com
func NewOpenAIClient(baseURL string, httpClient *http.Client) *OpenAIClient {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &OpenAIClient{baseURL: baseURL, httpClient: httpClient}
}

func (c *OpenAIClient) Provider() models.Provider { return models.ProviderOpenAI }

func (c *OpenAIClient) Stream(ctx context.Context, req Request) (<-chan string, <-chan error) {
	content := make(chan string, 100)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(content)

		if req.APIKey == "" {
			errs <- ErrUnconfigured
			return
		}

		body := openAIRequest{Model: req.Model, Stream: true, MaxTokens: req.maxTokens()}
		if req.System != "" {
			body.Messages = append(body.Messages, openAIMessage{Role: string(models.RoleSystem), Content: req.System})
		}
		for _, m := range req.Messages {
			body.Messages = append(body.Messages, openAIMessage{Role: string(m.Role), Content: m.Content})
		}
		if req.JSON {
			body.ResponseFormat = &struct {
				Type string `json:"type"`
			}{Type: "json_object"}
		}

		payload, err := json.Marshal(body)
		if err != nil {
			errs <- fmt.Errorf("failed to marshal request: %w", err)
			return
		}
		httpReq, err := http.NewRequest(http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
		if err != nil {
			errs <- fmt.Errorf("failed to create request: %w", err)
			return
		}
		httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)

		start := time.Now()
		resp, err := openStream(ctx, c.httpClient, models.ProviderOpenAI, httpReq)
		if err != nil {
			errs <- err
			return
		}
		defer resp.Body.Close()

		err = scanEvents(ctx, resp.Body, func(data string) (string, bool, error) {
			var chunk struct {
				Choices []struct {
					Delta struct {
						Content string `json:"content"`
					} `json:"delta"`
					FinishReason *string `json:"finish_reason"`
				} `json:"choices"`
				Error *struct {
					Message string `json:"message"`
				} `json:"error"`
			}
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				return "", false, nil
			}
			if chunk.Error != nil {
				return "", true, fmt.Errorf("openai API error: %s", chunk.Error.Message)
			}
			if len(chunk.Choices) == 0 {
				return "", false, nil
			}
			return chunk.Choices[0].Delta.Content, false, nil
		}, content)
		if err != nil {
			errs <- fmt.Errorf("stream error: %w", err)
			return
		}
		logger.Debugf("🤖 OpenAI %s stream completed in %v", req.Model, time.Since(start))
	}()

	return content, errs
}
