package handlers

import (
	"bufio"
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"github.com/vanpelt/aura/internal/chat"
	"github.com/vanpelt/aura/internal/logger"
	"github.com/vanpelt/aura/internal/models"
	"github.com/vanpelt/aura/internal/providers"
)

// ChatHandler streams a single completion as a raw text body
type ChatHandler struct {
	providers *providers.Set
	system    string
}

// NewChatHandler creates a new chat handler
func NewChatHandler(set *providers.Set) *ChatHandler {
	return &ChatHandler{providers: set, system: chat.DefaultSystemPrompt}
}

// ChatRequestMessage is one turn of a chat request
type ChatRequestMessage struct {
	Role    models.Role `json:"role"`
	Content string      `json:"content"`
}

// ChatRequest is the body of POST /api/chat
// @Description Conversation to complete with the given model
type ChatRequest struct {
	Messages []ChatRequestMessage `json:"messages"`
	Model    string               `json:"model" example:"gpt-4o"`
	APIKey   string               `json:"apiKey,omitempty"`
}

func (r ChatRequest) validate() error {
	if r.Model == "" {
		return errors.New("model is required")
	}
	if len(r.Messages) == 0 {
		return errors.New("messages cannot be empty")
	}
	for _, m := range r.Messages {
		switch m.Role {
		case models.RoleUser, models.RoleAssistant, models.RoleSystem:
		default:
			return errors.New("invalid message role")
		}
	}
	return nil
}

// Chat streams the model's answer
// @Summary Stream a chat completion
// @Description Streams the completion as plain text; errors are JSON
// @Tags chat
// @Accept json
// @Produce plain
// @Param request body ChatRequest true "Chat request"
// @Success 200 {string} string "streamed text"
// @Failure 400 {object} fiber.Map
// @Failure 500 {object} fiber.Map
// @Failure 501 {object} fiber.Map
// @Router /api/chat [post]
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := req.validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	p, err := providers.ResolveModel(req.Model)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid model provider/ID"})
	}
	if p == models.ProviderMeta {
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{
			"error": "Meta Llama models not yet configured for inference backend",
		})
	}

	client, ok := h.providers.Client(p)
	key, keyErr := h.providers.ResolveKey(p, req.APIKey)
	if !ok || keyErr != nil {
		logger.Warnf("⚠️ Chat request for %s without a usable key", p)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Check API Key or Quota"})
	}

	system, messages := h.split(req.Messages)
	ctx, cancel := context.WithCancel(context.Background())
	content, errs := client.Stream(ctx, providers.Request{
		Model:    req.Model,
		System:   system,
		Messages: messages,
		APIKey:   key,
	})

	// Wait for the first chunk so failures before any output are still JSON
	first, open := <-content
	if !open {
		err := <-errs
		cancel()
		if err != nil {
			logger.Errorf("❌ Chat with %s failed: %v", req.Model, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Check API Key or Quota"})
		}
	}

	c.Set("Content-Type", "text/plain; charset=utf-8")
	c.Set("Cache-Control", "no-cache")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		if !open {
			return
		}

		write := func(s string) bool {
			if _, err := w.WriteString(s); err != nil {
				return false
			}
			return w.Flush() == nil
		}

		if !write(first) {
			return
		}
		for chunk := range content {
			if !write(chunk) {
				logger.Debugf("🔌 Chat client went away mid-stream")
				cancel()
				// drain so the provider goroutine can exit
				for range content {
				}
				break
			}
		}
		if err := <-errs; err != nil && !errors.Is(err, context.Canceled) {
			logger.Warnf("⚠️ Chat stream from %s ended with error: %v", req.Model, err)
		}
	}))
	return nil
}

// split lifts system turns into the system prompt
func (h *ChatHandler) split(in []ChatRequestMessage) (string, []providers.Message) {
	system := []string{h.system}
	var out []providers.Message
	for _, m := range in {
		if m.Role == models.RoleSystem {
			if s := strings.TrimSpace(m.Content); s != "" {
				system = append(system, s)
			}
			continue
		}
		out = append(out, providers.Message{Role: m.Role, Content: m.Content})
	}
	return strings.Join(system, "\n\n"), out
}
