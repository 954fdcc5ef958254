package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/vanpelt/aura/internal/audit"
	"github.com/vanpelt/aura/internal/auth"
	"github.com/vanpelt/aura/internal/cache"
	"github.com/vanpelt/aura/internal/github"
	"github.com/vanpelt/aura/internal/providers"
	"github.com/vanpelt/aura/internal/settings"
)

// Store is the persistence the HTTP surface needs
type Store interface {
	UserStore
	InteractionStore
}

// Deps are the services behind the routes
type Deps struct {
	Version   string
	Sessions  *auth.Manager
	Store     Store
	Settings  *settings.Registry
	Providers *providers.Set
	GitHub    *github.Service
	Audit     *audit.Engine
	AccessLog bool
}

// NewApp builds the fiber app with every route registered
func NewApp(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "aura",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	if d.AccessLog {
		app.Use(SamplingLogger())
	}

	var stats func() cache.Stats
	if d.GitHub != nil {
		stats = d.GitHub.CacheStats
	}
	app.Get("/health", NewHealthHandler(d.Version, d.Providers, stats).Health)

	api := app.Group("/api")

	// FinePrint
	api.Post("/audit", NewAuditHandler(d.Audit).Audit)

	// git-aura
	gh := NewGitHubHandler(d.GitHub)
	api.Get("/github/:username", gh.GetProfile)
	api.Get("/github/:username/years/:year", gh.GetYear)
	api.Delete("/github/:username/cache", gh.Refresh)

	// prompt workstation
	api.Post("/chat", NewChatHandler(d.Providers).Chat)
	api.Get("/models", ListModels)

	authHandler := NewAuthHandler(d.Sessions, d.Store)
	api.Post("/auth/signup", authHandler.Signup)
	api.Post("/auth/login", authHandler.Login)
	api.Post("/auth/logout", authHandler.Logout)
	api.Get("/auth/me", d.Sessions.RequireSession, authHandler.Me)

	st := NewSettingsHandler(d.Settings, d.Providers)
	settingsGroup := api.Group("/settings", d.Sessions.RequireSession)
	settingsGroup.Get("/", st.GetSettings)
	settingsGroup.Put("/", st.PutSettings)
	settingsGroup.Post("/keys", st.SetKey)
	settingsGroup.Post("/toggle", st.ToggleProvider)
	settingsGroup.Post("/active-model", st.SetActiveModel)
	settingsGroup.Post("/reset", st.ResetSettings)

	ws := NewWorkstationHandler(d.Providers, d.Settings, d.Store)
	workstation := api.Group("/workstation", d.Sessions.RequireSession)
	workstation.Get("/ws", ws.HandleWebSocket)
	workstation.Get("/lanes", ws.GetLanes)
	workstation.Get("/history", ws.GetHistory)

	return app
}
