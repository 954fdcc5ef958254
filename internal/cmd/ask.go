package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"github.com/vanpelt/aura/internal/chat"
	"github.com/vanpelt/aura/internal/logger"
	"github.com/vanpelt/aura/internal/settings"
	"github.com/vanpelt/aura/internal/store"
	"github.com/vanpelt/aura/internal/tui"
)

var askCmd = &cobra.Command{
	Use:   "ask [prompt...]",
	Short: "🤖 Chat with every selected provider at once",
	Long: `# 🤖 Ask

Sends each prompt to every selected provider in parallel and prints the
answers as they settle. Without arguments an interactive session starts;
type **/reset** to clear the conversation and **/quit** to leave.

With **--tui** the session runs full screen instead, one column per
provider lane. **esc** cancels lanes still waiting on their provider.

Providers, models and keys come from the local settings file (see
**aura keys**). Edits to that file are picked up while the session runs.`,
	Example: `  aura ask "explain goroutine leaks in one paragraph"
  aura ask
  aura ask --tui`,
	RunE: runAsk,
}

var askTUI bool

func init() {
	askCmd.Flags().BoolVar(&askTUI, "tui", false, "Run the full-screen lane view")
	rootCmd.AddCommand(askCmd)
}

// terminalSink prints lane progress; lanes report concurrently
type terminalSink struct {
	mu sync.Mutex
}

func (s *terminalSink) handle(e chat.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch e.Type {
	case chat.EventLaneStarted:
		fmt.Printf("⏳ %s (%s)\n", e.Provider, e.ModelID)
	case chat.EventLaneCompleted, chat.EventLaneErrored:
		md := fmt.Sprintf("## %s\n\n%s\n", e.Provider, e.Content)
		fmt.Print(renderMarkdown(md, nil))
	}
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	repo, st, err := openLocalSettings(cmd)
	if err != nil {
		return err
	}
	if err := settings.Watch(ctx, repo, st); err != nil {
		logger.Warnf("⚠️ Settings changes will not be picked up: %v", err)
	}
	var app *tui.App
	if askTUI && len(args) == 0 {
		app = tui.NewApp()
		// the alt screen owns the terminal
		logger.ConfigureWriter(logger.LevelError, false, io.Discard)
	}

	unsubscribe := st.Subscribe(func(s settings.Settings) {
		if app != nil {
			app.Notify(fmt.Sprintf("Settings changed, providers now %v", s.SelectedModels))
			return
		}
		logger.Infof("🔄 Settings changed, providers now %v", s.SelectedModels)
	})
	defer unsubscribe()

	opts := chat.Options{
		Providers: newProviderSet(cfg),
		Settings:  st,
		Sink:      (&terminalSink{}).handle,
	}
	if app != nil {
		opts.Sink = app.Sink
	}
	if db, err := store.Open(cfg.DBPath); err != nil {
		logger.Warnf("⚠️ Interactions will not be logged: %v", err)
	} else {
		defer db.Close()
		opts.Log = db
	}
	ws := chat.NewWorkspace(opts)

	if len(args) > 0 {
		return askOnce(ctx, ws, strings.Join(args, " "))
	}
	if app != nil {
		return app.Run(ctx, ws)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("› ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			ws.Reset()
			fmt.Println("🔄 Conversation cleared")
			continue
		}
		if err := askOnce(ctx, ws, line); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func askOnce(ctx context.Context, ws *chat.Workspace, prompt string) error {
	res, err := ws.Send(ctx, prompt)
	if err != nil {
		return err
	}
	for p, reason := range res.Rejected {
		fmt.Fprintf(os.Stderr, "⚠️ %s skipped: %s\n", p, reason)
	}
	logger.Debugf("🤖 Send settled: %s", res)
	return nil
}
