package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/vanpelt/aura/internal/cache"
	"github.com/vanpelt/aura/internal/models"
	"github.com/vanpelt/aura/internal/providers"
)

// HealthResponse reports liveness and what the server is configured for
type HealthResponse struct {
	Status     string                   `json:"status" example:"ok"`
	Version    string                   `json:"version"`
	Uptime     string                   `json:"uptime"`
	ServerKeys map[models.Provider]bool `json:"serverKeys"`
	Cache      *cache.Stats             `json:"cache,omitempty"`
}

// HealthHandler answers liveness probes
type HealthHandler struct {
	version   string
	started   time.Time
	providers *providers.Set
	stats     func() cache.Stats
}

// NewHealthHandler creates a health handler. stats may be nil.
func NewHealthHandler(version string, set *providers.Set, stats func() cache.Stats) *HealthHandler {
	return &HealthHandler{version: version, started: time.Now(), providers: set, stats: stats}
}

// Health returns the server status
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	resp := HealthResponse{
		Status:     "ok",
		Version:    h.version,
		Uptime:     time.Since(h.started).Round(time.Second).String(),
		ServerKeys: make(map[models.Provider]bool, len(models.Providers)),
	}
	for _, p := range models.Providers {
		resp.ServerKeys[p] = h.providers != nil && h.providers.Configured(p)
	}
	if h.stats != nil {
		s := h.stats()
		resp.Cache = &s
	}
	return c.JSON(resp)
}
