// Package auth issues and verifies signed session cookies and hashes
// account passwords.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/vanpelt/aura/internal/logger"
)

const (
	// CookieName is the session cookie
	CookieName = "session"
	// DefaultTTL is how long a session stays valid
	DefaultTTL = 7 * 24 * time.Hour

	localsKey = "session"
)

var (
	ErrMalformedToken   = errors.New("invalid token format")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrExpired          = errors.New("token expired")
)

type Claims struct {
	UserID    int64 `json:"userId"`
	IssuedAt  int64 `json:"iat"`
	ExpiresAt int64 `json:"exp"`
}

// Manager signs HS256 session tokens and manages the session cookie
type Manager struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// NewManager creates a session manager. secure marks the cookie Secure and
// should be set in production.
func NewManager(secret string, ttl time.Duration, secure bool) (*Manager, error) {
	if secret == "" {
		return nil, fmt.Errorf("session secret is empty")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		secure: secure,
		now:    time.Now,
	}, nil
}

// Sign generates a token for userID
func (m *Manager) Sign(userID int64) (string, error) {
	now := m.now()
	claims := Claims{
		UserID:    userID,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(m.ttl).Unix(),
	}

	headerJSON, err := json.Marshal(map[string]string{"alg": "HS256", "typ": "JWT"})
	if err != nil {
		return "", err
	}
	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}

	signingInput := base64.RawURLEncoding.EncodeToString(headerJSON) + "." +
		base64.RawURLEncoding.EncodeToString(claimsJSON)
	return signingInput + "." + m.signature(signingInput), nil
}

// Parse verifies the signature and expiry of a token
func (m *Manager) Parse(token string) (*Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrMalformedToken
	}

	if !hmac.Equal([]byte(m.signature(parts[0]+"."+parts[1])), []byte(parts[2])) {
		return nil, ErrInvalidSignature
	}

	header, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("failed to decode header: %w", err)
	}
	var h struct {
		Alg string `json:"alg"`
	}
	if err := json.Unmarshal(header, &h); err != nil || h.Alg != "HS256" {
		return nil, ErrMalformedToken
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}

	if m.now().Unix() > claims.ExpiresAt {
		return nil, ErrExpired
	}
	return &claims, nil
}

func (m *Manager) signature(input string) string {
	h := hmac.New(sha256.New, m.secret)
	h.Write([]byte(input))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// CreateSession signs a token for userID and sets it as the session cookie
func (m *Manager) CreateSession(c *fiber.Ctx, userID int64) error {
	token, err := m.Sign(userID)
	if err != nil {
		return fmt.Errorf("failed to sign session: %w", err)
	}
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  m.now().Add(m.ttl),
		HTTPOnly: true,
		Secure:   m.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return nil
}

// VerifySession returns the claims of the request's session cookie. An
// absent, tampered or expired cookie is reported as no session.
func (m *Manager) VerifySession(c *fiber.Ctx) (*Claims, bool) {
	token := c.Cookies(CookieName)
	if token == "" {
		return nil, false
	}
	claims, err := m.Parse(token)
	if err != nil {
		logger.Debugf("🔒 Session rejected: %v", err)
		return nil, false
	}
	return claims, true
}

// DeleteSession clears the session cookie
func (m *Manager) DeleteSession(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   m.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// RequireSession rejects requests without a valid session and stores the
// claims for downstream handlers.
func (m *Manager) RequireSession(c *fiber.Ctx) error {
	claims, ok := m.VerifySession(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "authentication required",
		})
	}
	c.Locals(localsKey, claims)
	return c.Next()
}

// FromContext returns the claims stored by RequireSession
func FromContext(c *fiber.Ctx) (*Claims, bool) {
	claims, ok := c.Locals(localsKey).(*Claims)
	return claims, ok && claims != nil
}
