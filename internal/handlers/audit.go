package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/vanpelt/aura/internal/audit"
	"github.com/vanpelt/aura/internal/logger"
	"github.com/vanpelt/aura/internal/models"
)

// AuditHandler serves FinePrint document audits
type AuditHandler struct {
	engine *audit.Engine
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(engine *audit.Engine) *AuditHandler {
	return &AuditHandler{engine: engine}
}

// Audit analyzes a document or URL for risky clauses
// @Summary Audit a legal document
// @Description Scores terms of service text (or a URL to scrape) and returns a verdict
// @Tags audit
// @Accept json
// @Produce json
// @Param x-api-key header string false "Provider API key"
// @Param x-model-provider header string false "gemini, openai or anthropic"
// @Param request body models.AuditRequest true "Document"
// @Success 200 {object} models.AuditResult
// @Failure 400 {object} fiber.Map
// @Failure 429 {object} fiber.Map
// @Failure 502 {object} fiber.Map
// @Failure 503 {object} fiber.Map
// @Router /api/audit [post]
func (h *AuditHandler) Audit(c *fiber.Ctx) error {
	var req models.AuditRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   audit.CodeNoContent,
			"message": "Invalid request body",
		})
	}
	if req.Type != models.AuditSourceURL {
		req.Type = models.AuditSourceText
	}

	result, err := h.engine.Audit(c.UserContext(), req, c.Get("x-model-provider"), c.Get("x-api-key"))
	if err != nil {
		code, ok := audit.CodeOf(err)
		if !ok {
			logger.Errorf("❌ Audit failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "INTERNAL",
				"message": "Audit failed",
			})
		}
		logger.Warnf("⚠️ Audit rejected (%s): %v", code, err)
		return c.Status(code.HTTPStatus()).JSON(fiber.Map{
			"error":   code,
			"message": auditMessage(err),
		})
	}
	return c.JSON(result)
}

func auditMessage(err error) string {
	var e *audit.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
