package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/vanpelt/aura/internal/chat"
)

// The alt screen owns the terminal, so debug output goes to a file instead.
var debugLogger *zerolog.Logger

func init() {
	if os.Getenv("AURA_TUI_DEBUG") != "true" {
		return
	}
	path := filepath.Join(os.TempDir(), "aura-tui-debug.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open %s: %v\n", path, err)
		return
	}
	l := zerolog.New(f).With().Timestamp().Logger()
	debugLogger = &l
	debugLogger.Info().Msg("=== TUI DEBUG LOG STARTED ===")
}

func debugLog(format string, args ...interface{}) {
	if debugLogger != nil {
		debugLogger.Debug().Msgf(format, args...)
	}
}

// App runs the lane view. Create it before the workspace so Sink can be
// handed to chat.Options.
type App struct {
	program atomic.Pointer[tea.Program]
}

// NewApp creates an idle app
func NewApp() *App {
	return &App{}
}

// Sink forwards dispatcher events into the running program. Events that
// arrive before Run or after it returns are dropped; the view re-reads
// lane snapshots on the next event anyway.
func (a *App) Sink(e chat.Event) {
	if p := a.program.Load(); p != nil {
		p.Send(laneEventMsg(e))
	}
}

// Notify shows text in the footer
func (a *App) Notify(text string) {
	if p := a.program.Load(); p != nil {
		p.Send(statusMsg(text))
	}
}

// Run blocks until the user quits or ctx is done
func (a *App) Run(ctx context.Context, ws Workspace) error {
	p := tea.NewProgram(NewModel(ctx, ws), tea.WithAltScreen(), tea.WithContext(ctx))
	a.program.Store(p)
	defer a.program.Store(nil)

	debugLog("TUI starting")
	_, err := p.Run()
	debugLog("TUI finished: %v", err)
	if ctx.Err() != nil {
		// interrupted from outside, not a failure of the program
		return nil
	}
	return err
}
