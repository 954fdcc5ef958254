package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vanpelt/aura/internal/audit"
	"github.com/vanpelt/aura/internal/models"
)

var auditCmd = &cobra.Command{
	Use:   "audit <file|url|->",
	Short: "📜 Audit terms of service for risky clauses",
	Long: `# 📜 Audit

Runs a **FinePrint** risk audit on a document. The argument is a URL to
scrape, a file path, or **-** to read standard input.

Use **--offline** for a keyword-based verdict that never calls a provider.`,
	Example: `  aura audit https://example.com/terms
  aura audit tos.txt --provider anthropic
  pbpaste | aura audit - --offline`,
	Args: cobra.ExactArgs(1),
	RunE: runAudit,
}

var (
	auditProvider string
	auditKey      string
	auditOffline  bool
	auditJSON     bool
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().StringVarP(&auditProvider, "provider", "p", "gemini", "gemini, openai or anthropic")
	auditCmd.Flags().StringVar(&auditKey, "api-key", "", "Provider API key (defaults to the configured server key)")
	auditCmd.Flags().BoolVar(&auditOffline, "offline", false, "Keyword heuristic only, no provider call")
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "Print the raw JSON verdict")
}

func runAudit(cmd *cobra.Command, args []string) error {
	req, err := auditRequest(args[0])
	if err != nil {
		return err
	}

	var result *models.AuditResult
	if auditOffline {
		if req.Type == models.AuditSourceURL {
			text, err := audit.NewScraper(cfg.Heuristics.AuditMaxChars).Fetch(cmd.Context(), req.Content)
			if err != nil {
				return fmt.Errorf("failed to scrape %s: %w", req.Content, err)
			}
			req.Content = text
		}
		result = audit.Heuristic(req.Content)
	} else {
		engine := newAuditEngine(cfg, newProviderSet(cfg))
		result, err = engine.Audit(cmd.Context(), req, auditProvider, auditKey)
		if err != nil {
			return err
		}
	}

	if auditJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	fmt.Print(renderMarkdown(auditMarkdown(result), nil))
	return nil
}

func auditRequest(arg string) (models.AuditRequest, error) {
	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
		return models.AuditRequest{Type: models.AuditSourceURL, Content: arg}, nil
	}
	var (
		data []byte
		err  error
	)
	if arg == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(arg)
	}
	if err != nil {
		return models.AuditRequest{}, fmt.Errorf("failed to read document: %w", err)
	}
	return models.AuditRequest{Type: models.AuditSourceText, Content: string(data)}, nil
}

func auditMarkdown(r *models.AuditResult) string {
	var b strings.Builder
	icon := "✅"
	if r.ActionVerdict == "Refuse" {
		icon = "🚫"
	}
	fmt.Fprintf(&b, "# %s %s\n\n%s\n\n", icon, r.ActionVerdict, r.VerdictSummary)

	section := func(title string, items []models.RiskItem) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&b, "## %s\n\n", title)
		for _, it := range items {
			fmt.Fprintf(&b, "- **%s** %s\n", it.Category, it.Text)
		}
		b.WriteString("\n")
	}
	section("🔴 High risk", r.RiskBreakdown.High)
	section("🟠 Medium risk", r.RiskBreakdown.Medium)
	section("🟢 Good", r.RiskBreakdown.Low)
	return b.String()
}
