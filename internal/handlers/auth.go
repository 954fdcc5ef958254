package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/vanpelt/aura/internal/auth"
	"github.com/vanpelt/aura/internal/logger"
	"github.com/vanpelt/aura/internal/models"
	"github.com/vanpelt/aura/internal/store"
)

// UserStore is the account persistence the auth handler needs
type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByID(ctx context.Context, id int64) (*models.User, error)
}

// AuthHandler handles workstation signup, login and logout
type AuthHandler struct {
	sessions *auth.Manager
	users    UserStore
}

// Credentials is the signup and login body
// @Description Email and password of a workstation account
type Credentials struct {
	Email    string `json:"email" example:"ada@example.com"`
	Password string `json:"password" example:"hunter22"`
}

// AuthResponse wraps the signed-in user
type AuthResponse struct {
	User *models.User `json:"user"`
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(sessions *auth.Manager, users UserStore) *AuthHandler {
	return &AuthHandler{sessions: sessions, users: users}
}

// Signup creates an account and starts a session
// @Summary Create an account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body Credentials true "Credentials"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} fiber.Map
// @Failure 409 {object} fiber.Map
// @Router /api/auth/signup [post]
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req Credentials
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	email := auth.NormalizeEmail(req.Email)
	if err := auth.ValidateSignup(email, req.Password); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
			"field": fieldOf(err),
		})
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		logger.Errorf("❌ %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create account"})
	}

	user, err := h.users.CreateUser(c.UserContext(), email, hash)
	if errors.Is(err, store.ErrEmailExists) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Email already exists"})
	}
	if err != nil {
		logger.Errorf("❌ Failed to create user %s: %v", email, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create account"})
	}

	if err := h.sessions.CreateSession(c, user.ID); err != nil {
		logger.Errorf("❌ %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create session"})
	}
	logger.Infof("👤 New account %d", user.ID)
	return c.Status(fiber.StatusCreated).JSON(AuthResponse{User: user})
}

// Login verifies credentials and starts a session
// @Summary Log in
// @Tags auth
// @Accept json
// @Produce json
// @Param request body Credentials true "Credentials"
// @Success 200 {object} AuthResponse
// @Failure 401 {object} fiber.Map
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req Credentials
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	email := auth.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Email and password are required"})
	}

	user, err := h.users.UserByEmail(c.UserContext(), email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		logger.Errorf("❌ Login lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Login failed"})
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
	}

	if err := h.sessions.CreateSession(c, user.ID); err != nil {
		logger.Errorf("❌ %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Login failed"})
	}
	return c.JSON(AuthResponse{User: user})
}

// Logout clears the session cookie
// @Summary Log out
// @Tags auth
// @Success 204
// @Router /api/auth/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	h.sessions.DeleteSession(c)
	return c.SendStatus(fiber.StatusNoContent)
}

// Me returns the signed-in user
// @Summary Current user
// @Tags auth
// @Produce json
// @Success 200 {object} AuthResponse
// @Failure 401 {object} fiber.Map
// @Router /api/auth/me [get]
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	claims, ok := auth.FromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
	}
	user, err := h.users.UserByID(c.UserContext(), claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		// account deleted while the cookie was still valid
		h.sessions.DeleteSession(c)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
	}
	if err != nil {
		logger.Errorf("❌ Failed to load user %d: %v", claims.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load user"})
	}
	return c.JSON(AuthResponse{User: user})
}

func fieldOf(err error) string {
	if errors.Is(err, auth.ErrPasswordTooShort) {
		return "password"
	}
	return "email"
}
