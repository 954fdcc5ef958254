package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"github.com/vanpelt/aura/internal/config"
	"github.com/vanpelt/aura/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "aura",
	Short: "✨ Aura - GitHub analytics, document audits and a multi-model chat workstation",
	Long: `# ✨ Aura

**One backend for three small apps.**

## ✨ Features

- 🐙 **git-aura** profile analytics from the GitHub GraphQL API
- 📜 **FinePrint** risk audits of terms of service
- 🤖 **Prompt workstation** with parallel chat across Gemini, OpenAI and Claude

## 🚀 Getting Started

Run **aura serve** to start the HTTP API.

Use **aura profile <user>** or **aura audit <file|url>** from the terminal.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if devFlag {
			cfg.Dev = true
		}
		level := logger.ParseLevel(cfg.LogLevel)
		if debugFlag {
			level = logger.LevelDebug
		}
		logger.Configure(level, cfg.Dev)
		return nil
	},
}

var (
	cfg        config.Config
	configPath string
	devFlag    bool
	debugFlag  bool
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config.yml (default $AURA_CONFIG or the XDG config dir)")
	rootCmd.PersistentFlags().BoolVar(&devFlag, "dev", false, "Development mode: console logs, insecure cookies")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")

	// Set custom help function to use glamour for markdown rendering
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		renderMarkdownHelp(cmd)
	})
}

// renderMarkdownHelp renders command help using glamour
func renderMarkdownHelp(cmd *cobra.Command) {
	var helpContent strings.Builder

	if cmd.Long != "" {
		helpContent.WriteString(cmd.Long)
		helpContent.WriteString("\n\n")
	} else if cmd.Short != "" {
		helpContent.WriteString("# " + cmd.Short)
		helpContent.WriteString("\n\n")
	}

	helpContent.WriteString("## 📖 Usage\n\n")
	helpContent.WriteString("```bash\n")
	helpContent.WriteString(cmd.UseLine())
	helpContent.WriteString("\n```\n\n")

	if cmd.HasAvailableSubCommands() {
		helpContent.WriteString("## 🔧 Available Commands\n\n")
		for _, subCmd := range cmd.Commands() {
			if subCmd.IsAvailableCommand() {
				helpContent.WriteString(fmt.Sprintf("- **%s** - %s\n", subCmd.Name(), subCmd.Short))
			}
		}
		helpContent.WriteString("\n")
	}

	if cmd.HasAvailableLocalFlags() {
		helpContent.WriteString("## ⚙️  Flags\n\n")
		if flagUsages := cmd.LocalFlags().FlagUsages(); flagUsages != "" {
			helpContent.WriteString("```\n")
			helpContent.WriteString(flagUsages)
			helpContent.WriteString("```\n\n")
		}
	}

	if cmd.HasParent() && cmd.InheritedFlags().HasFlags() {
		helpContent.WriteString("## 🌐 Global Flags\n\n")
		if inheritedUsages := cmd.InheritedFlags().FlagUsages(); inheritedUsages != "" {
			helpContent.WriteString("```\n")
			helpContent.WriteString(inheritedUsages)
			helpContent.WriteString("```\n\n")
		}
	}

	fmt.Print(renderMarkdown(helpContent.String(), func() { _ = cmd.Usage() }))
}

// renderMarkdown renders md for the terminal. If glamour fails, fallback is
// called and an empty string returned.
func renderMarkdown(md string, fallback func()) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err == nil {
		if rendered, err := renderer.Render(md); err == nil {
			return rendered
		}
	}
	if fallback != nil {
		fallback()
		return ""
	}
	return md
}
