package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager("test-secret", DefaultTTL, true)
	require.NoError(t, err)
	return m
}

func TestSignAndParse(t *testing.T) {
	m := newManager(t)

	token, err := m.Sign(42)
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, int64(DefaultTTL/time.Second), claims.ExpiresAt-claims.IssuedAt)
}

func TestParseRejects(t *testing.T) {
	m := newManager(t)
	token, err := m.Sign(1)
	require.NoError(t, err)

	t.Run("tampered payload", func(t *testing.T) {
		other, err := m.Sign(2)
		require.NoError(t, err)
		parts := strings.Split(token, ".")
		forged := parts[0] + "." + strings.Split(other, ".")[1] + "." + parts[2]

		_, err = m.Parse(forged)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("other secret", func(t *testing.T) {
		other, err := NewManager("different", DefaultTTL, false)
		require.NoError(t, err)
		_, err = other.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("expired", func(t *testing.T) {
		later := newManager(t)
		later.now = func() time.Time { return time.Now().Add(DefaultTTL + time.Minute) }
		_, err := later.Parse(token)
		assert.ErrorIs(t, err, ErrExpired)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.Parse("not-a-token")
		assert.ErrorIs(t, err, ErrMalformedToken)
	})

	_, err = NewManager("", DefaultTTL, false)
	assert.Error(t, err)
}

func TestSessionCookieFlow(t *testing.T) {
	m := newManager(t)
	app := fiber.New()
	app.Post("/login", func(c *fiber.Ctx) error {
		if err := m.CreateSession(c, 7); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Post("/logout", func(c *fiber.Ctx) error {
		m.DeleteSession(c)
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Get("/me", m.RequireSession, func(c *fiber.Ctx) error {
		claims, ok := FromContext(c)
		require.True(t, ok)
		return c.JSON(fiber.Map{"id": claims.UserID})
	})

	resp, err := app.Test(httptest.NewRequest("POST", "/login", nil))
	require.NoError(t, err)
	var session *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == CookieName {
			session = ck
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)
	assert.True(t, session.Secure)
	assert.Equal(t, http.SameSiteLaxMode, session.SameSite)

	req := httptest.NewRequest("GET", "/me", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: session.Value})
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)

	req = httptest.NewRequest("GET", "/me", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: session.Value + "x"})
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("POST", "/logout", nil))
	require.NoError(t, err)
	var cleared bool
	for _, ck := range resp.Cookies() {
		if ck.Name == CookieName && ck.Value == "" {
			cleared = true
		}
	}
	assert.True(t, cleared)
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "hunter22"))
	assert.False(t, CheckPassword(hash, "hunter23"))

	assert.NoError(t, ValidateSignup("a@example.com", "123456"))
	assert.ErrorIs(t, ValidateSignup("a@example.com", "12345"), ErrPasswordTooShort)
	assert.ErrorIs(t, ValidateSignup("", "123456"), ErrInvalidEmail)
	assert.ErrorIs(t, ValidateSignup("not-an-email", "123456"), ErrInvalidEmail)
	assert.Equal(t, "a@example.com", NormalizeEmail("  A@Example.com "))
}
