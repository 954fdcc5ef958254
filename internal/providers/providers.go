// Package providers streams completions from the LLM vendors behind a single
// Client interface.
package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/vanpelt/aura/internal/models"
)

var (
	// ErrUnconfigured means no API key is available for the provider
	ErrUnconfigured = errors.New("API key missing")
	// ErrNotImplemented is returned for providers without a backend yet
	ErrNotImplemented = errors.New("provider not implemented")
	// ErrUnknownModel means a model id matches no provider
	ErrUnknownModel = errors.New("unknown model")
)

// DefaultMaxTokens caps a single completion
const DefaultMaxTokens = 4096

// Message is one turn of the conversation sent upstream
type Message struct {
	Role    models.Role
	Content string
}

// Request is a single completion request
type Request struct {
	Model     string
	System    string
	Messages  []Message
	MaxTokens int
	// JSON asks the provider for a JSON-only answer where supported
	JSON   bool
	APIKey string
}

func (r Request) maxTokens() int {
	if r.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return r.MaxTokens
}

// Client streams text deltas. The content channel is closed when the stream
// ends; the error channel then yields at most one error and is closed.
type Client interface {
	Provider() models.Provider
	Stream(ctx context.Context, req Request) (<-chan string, <-chan error)
}

// StatusError is a non-2xx answer from a provider
type StatusError struct {
	Provider models.Provider
	Status   int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API request failed with status %d: %s", e.Provider, e.Status, e.Body)
}

// IsRateLimit reports whether err is a provider rate limit or quota error
func IsRateLimit(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status == http.StatusTooManyRequests
	}
	msg := strings.ToLower(fmt.Sprint(err))
	return strings.Contains(msg, "429") || strings.Contains(msg, "resource_exhausted") || strings.Contains(msg, "quota")
}

// Complete drains a stream into one string
func Complete(ctx context.Context, c Client, req Request) (string, error) {
	content, errs := c.Stream(ctx, req)
	var b strings.Builder
	for chunk := range content {
		b.WriteString(chunk)
	}
	if err := <-errs; err != nil {
		return b.String(), err
	}
	return b.String(), nil
}

// Options configures the provider set
type Options struct {
	Timeout    time.Duration
	ServerKeys map[models.Provider]string

	// Endpoint overrides, used by tests
	OpenAIBaseURL    string
	AnthropicBaseURL string
	GeminiBaseURL    string
}

// Set holds one client per provider plus server-side fallback keys
type Set struct {
	clients    map[models.Provider]Client
	serverKeys map[models.Provider]string
}

// NewSet builds the default clients
func NewSet(opts Options) *Set {
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	httpClient := &http.Client{Timeout: opts.Timeout}
	return NewSetWithClients(opts.ServerKeys,
		NewGeminiClient(opts.GeminiBaseURL, httpClient),
		NewOpenAIClient(opts.OpenAIBaseURL, httpClient),
		NewAnthropicClient(opts.AnthropicBaseURL, httpClient),
		metaClient{},
	)
}

// NewSetWithClients builds a set from explicit clients
func NewSetWithClients(serverKeys map[models.Provider]string, clients ...Client) *Set {
	s := &Set{
		clients:    make(map[models.Provider]Client, len(clients)),
		serverKeys: make(map[models.Provider]string, len(serverKeys)),
	}
	for _, c := range clients {
		s.clients[c.Provider()] = c
	}
	for p, k := range serverKeys {
		if k != "" {
			s.serverKeys[p] = k
		}
	}
	return s
}

// Client returns the client for p
func (s *Set) Client(p models.Provider) (Client, bool) {
	c, ok := s.clients[p]
	return c, ok
}

// ResolveKey picks the user's key, falling back to the server key
func (s *Set) ResolveKey(p models.Provider, userKey string) (string, error) {
	if userKey != "" {
		return userKey, nil
	}
	if k := s.serverKeys[p]; k != "" {
		return k, nil
	}
	return "", ErrUnconfigured
}

// Configured reports which providers have a server-side key
func (s *Set) Configured(p models.Provider) bool {
	return s.serverKeys[p] != ""
}

type metaClient struct{}

func (metaClient) Provider() models.Provider { return models.ProviderMeta }

func (metaClient) Stream(ctx context.Context, req Request) (<-chan string, <-chan error) {
	content := make(chan string)
	errs := make(chan error, 1)
	close(content)
	errs <- fmt.Errorf("llama: %w", ErrNotImplemented)
	close(errs)
	return content, errs
}

// IsNotImplemented reports whether err means the provider has no backend
func IsNotImplemented(err error) bool {
	return errors.Is(err, ErrNotImplemented)
}
