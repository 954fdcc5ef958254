package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/vanpelt/aura/internal/auth"
	"github.com/vanpelt/aura/internal/logger"
	"github.com/vanpelt/aura/internal/models"
	"github.com/vanpelt/aura/internal/providers"
	"github.com/vanpelt/aura/internal/settings"
)

// SettingsHandler exposes the per-user settings store. Every route requires
// a session.
type SettingsHandler struct {
	registry  *settings.Registry
	providers *providers.Set
}

// SettingsResponse is the settings document with keys masked
type SettingsResponse struct {
	Settings   settings.Settings        `json:"settings"`
	ServerKeys map[models.Provider]bool `json:"serverKeys"`
}

// KeyRequest sets or clears one provider key
type KeyRequest struct {
	Provider string `json:"provider" example:"gemini"`
	Key      string `json:"key"`
}

// ProviderRequest names a provider
type ProviderRequest struct {
	Provider string `json:"provider" example:"openai"`
}

// ActiveModelRequest picks the model of a provider
type ActiveModelRequest struct {
	Provider string `json:"provider" example:"claude"`
	Model    string `json:"model" example:"claude-sonnet-4-20250514"`
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(registry *settings.Registry, set *providers.Set) *SettingsHandler {
	return &SettingsHandler{registry: registry, providers: set}
}

func (h *SettingsHandler) store(c *fiber.Ctx) (*settings.Store, error) {
	claims, ok := auth.FromContext(c)
	if !ok {
		return nil, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
	}
	s, err := h.registry.For(c.UserContext(), claims.UserID)
	if err != nil {
		logger.Errorf("❌ Failed to load settings of user %d: %v", claims.UserID, err)
		return nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load settings"})
	}
	return s, nil
}

func (h *SettingsHandler) respond(c *fiber.Ctx, s *settings.Store) error {
	serverKeys := make(map[models.Provider]bool, len(models.Providers))
	for _, p := range models.Providers {
		serverKeys[p] = h.providers.Configured(p)
	}
	return c.JSON(SettingsResponse{Settings: s.Snapshot().Masked(), ServerKeys: serverKeys})
}

func parseProvider(c *fiber.Ctx, name string) (models.Provider, bool) {
	p, err := models.ParseProvider(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		return "", false
	}
	return p, true
}

// GetSettings returns the caller's settings
// @Summary Get settings
// @Tags settings
// @Produce json
// @Success 200 {object} SettingsResponse
// @Router /api/settings [get]
func (h *SettingsHandler) GetSettings(c *fiber.Ctx) error {
	s, err := h.store(c)
	if s == nil {
		return err
	}
	return h.respond(c, s)
}

// PutSettings replaces the settings document. Keys that come back masked
// keep their stored value.
// @Summary Replace settings
// @Tags settings
// @Accept json
// @Produce json
// @Param request body settings.Settings true "Settings"
// @Success 200 {object} SettingsResponse
// @Router /api/settings [put]
func (h *SettingsHandler) PutSettings(c *fiber.Ctx) error {
	s, err := h.store(c)
	if s == nil {
		return err
	}
	var next settings.Settings
	if err := c.BodyParser(&next); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	current := s.Snapshot()
	for p, k := range next.APIKeys {
		if strings.Contains(k, "•") {
			if old, ok := current.APIKeys[p]; ok {
				next.APIKeys[p] = old
			} else {
				delete(next.APIKeys, p)
			}
		}
	}

	if err := s.Replace(c.UserContext(), next); err != nil {
		logger.Errorf("❌ Failed to save settings: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save settings"})
	}
	return h.respond(c, s)
}

// SetKey stores or clears a provider key. The format check is advisory.
// @Summary Set an API key
// @Tags settings
// @Accept json
// @Produce json
// @Param request body KeyRequest true "Key"
// @Success 200 {object} fiber.Map
// @Router /api/settings/keys [post]
func (h *SettingsHandler) SetKey(c *fiber.Ctx) error {
	s, err := h.store(c)
	if s == nil {
		return err
	}
	var req KeyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	p, ok := parseProvider(c, req.Provider)
	if !ok {
		return nil
	}
	key := strings.TrimSpace(req.Key)
	if err := s.SetAPIKey(c.UserContext(), p, key); err != nil {
		logger.Errorf("❌ Failed to save %s key: %v", p, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save settings"})
	}
	return c.JSON(fiber.Map{
		"provider":    p,
		"key":         settings.MaskKey(key),
		"validFormat": key == "" || settings.ValidateKey(p, key),
	})
}

// ToggleProvider adds or removes a provider from the active set
// @Summary Toggle a provider
// @Tags settings
// @Accept json
// @Produce json
// @Param request body ProviderRequest true "Provider"
// @Success 200 {object} SettingsResponse
// @Router /api/settings/toggle [post]
func (h *SettingsHandler) ToggleProvider(c *fiber.Ctx) error {
	s, err := h.store(c)
	if s == nil {
		return err
	}
	var req ProviderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	p, ok := parseProvider(c, req.Provider)
	if !ok {
		return nil
	}
	if err := s.ToggleModel(c.UserContext(), p); err != nil {
		logger.Errorf("❌ Failed to toggle %s: %v", p, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save settings"})
	}
	return h.respond(c, s)
}

// SetActiveModel picks the model used by a provider
// @Summary Set a provider's model
// @Tags settings
// @Accept json
// @Produce json
// @Param request body ActiveModelRequest true "Model"
// @Success 200 {object} SettingsResponse
// @Router /api/settings/active-model [post]
func (h *SettingsHandler) SetActiveModel(c *fiber.Ctx) error {
	s, err := h.store(c)
	if s == nil {
		return err
	}
	var req ActiveModelRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	p, ok := parseProvider(c, req.Provider)
	if !ok {
		return nil
	}
	if owner, err := providers.ResolveModel(req.Model); err != nil || owner != p {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "model does not belong to " + string(p)})
	}
	if err := s.SetActiveModel(c.UserContext(), p, req.Model); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return h.respond(c, s)
}

// ResetSettings restores the defaults
// @Summary Reset settings
// @Tags settings
// @Produce json
// @Success 200 {object} SettingsResponse
// @Router /api/settings/reset [post]
func (h *SettingsHandler) ResetSettings(c *fiber.Ctx) error {
	s, err := h.store(c)
	if s == nil {
		return err
	}
	if err := s.Reset(c.UserContext()); err != nil {
		logger.Errorf("❌ Failed to reset settings: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save settings"})
	}
	return h.respond(c, s)
}
