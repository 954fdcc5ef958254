package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/vanpelt/aura/internal/github"
	"github.com/vanpelt/aura/internal/logger"
)

// GitHubHandler serves profile analytics
type GitHubHandler struct {
	service *github.Service
}

// NewGitHubHandler creates a new GitHub handler
func NewGitHubHandler(service *github.Service) *GitHubHandler {
	return &GitHubHandler{service: service}
}

// GetProfile returns the analytics model of a GitHub user
// @Summary Get GitHub profile analytics
// @Tags github
// @Produce json
// @Param username path string true "GitHub login"
// @Success 200 {object} models.GitHubData
// @Failure 401 {object} fiber.Map
// @Failure 404 {object} fiber.Map
// @Failure 429 {object} fiber.Map
// @Router /api/github/{username} [get]
func (h *GitHubHandler) GetProfile(c *fiber.Ctx) error {
	data, err := h.service.Profile(c.UserContext(), c.Params("username"))
	if err != nil {
		return githubError(c, err)
	}
	return c.JSON(data)
}

// GetYear returns one lazily loaded contribution year
// @Summary Get a contribution year
// @Tags github
// @Produce json
// @Param username path string true "GitHub login"
// @Param year path int true "Calendar year"
// @Success 200 {object} models.YearCalendar
// @Failure 400 {object} fiber.Map
// @Failure 404 {object} fiber.Map
// @Router /api/github/{username}/years/{year} [get]
func (h *GitHubHandler) GetYear(c *fiber.Ctx) error {
	year, err := c.ParamsInt("year")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   github.KindUnknown,
			"message": "year must be a number",
		})
	}
	cal, err := h.service.Year(c.UserContext(), c.Params("username"), year)
	if err != nil {
		return githubError(c, err)
	}
	return c.JSON(cal)
}

// Refresh drops the cached analytics of a user
// @Summary Invalidate cached analytics
// @Tags github
// @Param username path string true "GitHub login"
// @Success 204
// @Router /api/github/{username}/cache [delete]
func (h *GitHubHandler) Refresh(c *fiber.Ctx) error {
	h.service.Invalidate(c.Params("username"))
	return c.SendStatus(fiber.StatusNoContent)
}

func githubError(c *fiber.Ctx, err error) error {
	if errors.Is(err, github.ErrNoData) {
		logger.Debugf("🐙 No data: %v", err)
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "NO_DATA",
			"message": "No data could be loaded for this user",
		})
	}

	body := fiber.Map{"error": github.KindOf(err), "message": err.Error()}
	status := fiber.StatusInternalServerError

	var apiErr *github.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			body["message"] = apiErr.Message
		}
		if !apiErr.ResetAt.IsZero() {
			body["resetAt"] = apiErr.ResetAt.Format(time.RFC3339)
		}
	}

	switch github.KindOf(err) {
	case github.KindRateLimit:
		status = fiber.StatusTooManyRequests
	case github.KindNotFound:
		status = fiber.StatusNotFound
	case github.KindInvalidToken:
		status = fiber.StatusUnauthorized
	case github.KindNetwork:
		status = fiber.StatusBadGateway
	default:
		logger.Errorf("❌ GitHub request failed: %v", err)
	}
	return c.Status(status).JSON(body)
}
