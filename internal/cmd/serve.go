package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vanpelt/aura/internal/auth"
	"github.com/vanpelt/aura/internal/handlers"
	"github.com/vanpelt/aura/internal/logger"
	"github.com/vanpelt/aura/internal/settings"
	"github.com/vanpelt/aura/internal/store"
)

// Version is set at build time
var Version = "dev"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "🚀 Start the HTTP API",
	Long: `# 🚀 Serve

Starts the **aura** HTTP API.

## 🌐 Endpoints
- **POST /api/audit** FinePrint document audit
- **GET /api/github/:username** profile analytics
- **POST /api/chat** streamed single-model chat
- **GET /api/workstation/ws** parallel multi-model chat (session required)

## 🔑 Configuration
Set **SESSION_SECRET** outside dev mode. Provider keys in **GEMINI_API_KEY**,
**OPENAI_API_KEY** and **ANTHROPIC_API_KEY** are used when a request brings no key.`,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "Listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}
	secret, err := cfg.SessionKey()
	if err != nil {
		return err
	}
	sessions, err := auth.NewManager(secret, cfg.SessionTTL, cfg.Production())
	if err != nil {
		return err
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	gh := newGitHubService(cfg)
	defer gh.Close()
	if cfg.GitHubToken == "" {
		logger.Warnf("⚠️ GITHUB_TOKEN is not set, GitHub lookups will fail")
	}

	set := newProviderSet(cfg)
	app := handlers.NewApp(handlers.Deps{
		Version:   Version,
		Sessions:  sessions,
		Store:     db,
		Settings:  settings.NewRegistry(db),
		Providers: set,
		GitHub:    gh,
		Audit:     newAuditEngine(cfg, set),
		AccessLog: true,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("🚀 aura %s listening on %s (db %s)", Version, cfg.Addr, cfg.DBPath)
		errCh <- app.Listen(cfg.Addr)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case s := <-sig:
		logger.Infof("🛑 Received %s, shutting down", s)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.ShutdownWithContext(ctx)
}
