package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/vanpelt/aura/internal/logger"
	"github.com/vanpelt/aura/internal/models"
	"google.golang.org/genai"
)

// GeminiClient streams through the Google GenAI SDK. A genai.Client is bound
// to one key, so one is built per request.
type GeminiClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewGeminiClient creates a client; baseURL overrides the API endpoint
func NewGeminiClient(baseURL string, httpClient *http.Client) *GeminiClient {
	return &GeminiClient{baseURL: baseURL, httpClient: httpClient}
}

func (c *GeminiClient) Provider() models.Provider { return models.ProviderGemini }

func (c *GeminiClient) newClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.httpClient,
	}
	if c.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return client, nil
}

func (c *GeminiClient) Stream(ctx context.Context, req Request) (<-chan string, <-chan error) {
	content := make(chan string, 100)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(content)

		if req.APIKey == "" {
			errs <- ErrUnconfigured
			return
		}

		client, err := c.newClient(ctx, req.APIKey)
		if err != nil {
			errs <- err
			return
		}

		contents := make([]*genai.Content, 0, len(req.Messages))
		for _, m := range req.Messages {
			switch m.Role {
			case models.RoleAssistant:
				contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
			case models.RoleSystem:
				continue
			default:
				contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
			}
		}

		config := &genai.GenerateContentConfig{
			MaxOutputTokens: int32(req.maxTokens()),
		}
		if req.System != "" {
			config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
		}
		if req.JSON {
			config.ResponseMIMEType = "application/json"
		}

		start := time.Now()
		for resp, err := range client.Models.GenerateContentStream(ctx, req.Model, contents, config) {
			if err != nil {
				errs <- fmt.Errorf("GenAI stream failed: %w", err)
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			select {
			case content <- text:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
		logger.Debugf("🤖 Gemini %s stream completed in %v", req.Model, time.Since(start))
	}()

	return content, errs
}
