package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/vanpelt/aura/internal/models"
	"github.com/vanpelt/aura/internal/providers"
)

// ListModels returns the model catalog, optionally for one provider
// @Summary List models
// @Tags models
// @Produce json
// @Param provider query string false "Provider filter"
// @Success 200 {object} fiber.Map
// @Router /api/models [get]
func ListModels(c *fiber.Ctx) error {
	name := strings.TrimSpace(c.Query("provider"))
	if name == "" {
		return c.JSON(fiber.Map{"models": providers.Catalog})
	}
	p, err := models.ParseProvider(strings.ToLower(name))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"models": providers.ModelsFor(p)})
}
