// Package audit scores legal documents for risky clauses using an LLM.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vanpelt/aura/internal/logger"
	"github.com/vanpelt/aura/internal/models"
	"github.com/vanpelt/aura/internal/providers"
)

const (
	// DefaultMinChars is the shortest text worth sending upstream
	DefaultMinChars = 50
	// DefaultMaxChars bounds scraped page text
	DefaultMaxChars = 30000

	auditMaxTokens = 2000
)

// SystemPrompt instructs the model to act as a terms-of-service auditor
const SystemPrompt = `You are a legal risk auditor protecting a non-technical reader from aggressive terms of service.

RULES:
1. Do not summarize the document.
2. Flag clauses by severity:
   - HIGH: selling or sharing personal data, waivers of rights, termination without notice, binding arbitration, invasive tracking.
   - MEDIUM: vague wording, unilateral changes to the terms, limited liability.
   - LOW (good): privacy-friendly terms, clear opt-outs, refund policies.
3. The verdict is either "Accept" or "Refuse".
4. Answer with strictly valid JSON and nothing else.
5. Point at concrete red flags instead of explaining legal concepts.

JSON SCHEMA:
{
  "risk_breakdown": {
    "high": [{"text": "at most 10 words", "category": "Privacy|Legal|Financial"}],
    "medium": [{"text": "at most 10 words", "category": "Privacy|Legal|Financial"}],
    "low": [{"text": "at most 10 words", "category": "good"}]
  },
  "action_verdict": "Accept|Refuse",
  "verdict_summary": "One or two sentences."
}`

// Models maps each supported provider to the model used for audits
var Models = map[models.Provider]string{
	models.ProviderGemini: "gemini-2.5-flash",
	models.ProviderOpenAI: "gpt-4o",
	models.ProviderClaude: "claude-sonnet-4-20250514",
}

// Engine runs audits against the configured providers
type Engine struct {
	providers *providers.Set
	scraper   *Scraper
	minChars  int
}

// NewEngine creates an audit engine. Zero limits fall back to the defaults.
func NewEngine(set *providers.Set, minChars, maxChars int) *Engine {
	if minChars <= 0 {
		minChars = DefaultMinChars
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Engine{
		providers: set,
		scraper:   NewScraper(maxChars),
		minChars:  minChars,
	}
}

// Audit resolves the request content (scraping URLs) and analyzes it with
// the named provider. An empty provider means gemini.
func (e *Engine) Audit(ctx context.Context, req models.AuditRequest, provider, apiKey string) (*models.AuditResult, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, &Error{Code: CodeNoContent, Message: "No content provided"}
	}

	p, err := resolveProvider(provider)
	if err != nil {
		return nil, err
	}

	text := content
	if req.Type == models.AuditSourceURL {
		logger.Debugf("🔍 Scraping %s for audit", content)
		text, err = e.scraper.Fetch(ctx, content)
		if err == nil && text == "" {
			err = fmt.Errorf("no readable text")
		}
		if err != nil {
			logger.Warnf("⚠️ Failed to scrape %s: %v", content, err)
			return nil, &Error{Code: CodeScrapeFailed, Message: "Failed to scrape URL. Content might be blocked or empty.", Err: err}
		}
	}

	return e.Analyze(ctx, text, p, apiKey)
}

// Analyze sends text to the provider and parses its verdict
func (e *Engine) Analyze(ctx context.Context, text string, p models.Provider, apiKey string) (*models.AuditResult, error) {
	if len([]rune(strings.TrimSpace(text))) < e.minChars {
		return nil, &Error{Code: CodeTextTooShort, Message: "Text too short to analyze."}
	}

	model, ok := Models[p]
	client, hasClient := e.providers.Client(p)
	if !ok || !hasClient {
		return nil, &Error{Code: CodeInvalidProvider, Message: fmt.Sprintf("Unknown provider: %s", p)}
	}

	key, err := e.providers.ResolveKey(p, apiKey)
	if err != nil {
		return nil, &Error{Code: CodeAPIKeyMissing, Message: fmt.Sprintf("Missing API Key for %s.", p), Err: err}
	}

	logger.Debugf("🤖 Auditing %d chars with %s (%s)", len(text), p, model)
	raw, err := providers.Complete(ctx, client, providers.Request{
		Model:     model,
		System:    SystemPrompt,
		Messages:  []providers.Message{{Role: models.RoleUser, Content: "DOCUMENT TO ANALYZE:\n" + text}},
		MaxTokens: auditMaxTokens,
		JSON:      true,
		APIKey:    key,
	})
	if err != nil {
		if providers.IsRateLimit(err) {
			return nil, &Error{Code: CodeRateLimit, Message: "AI Service is currently overloaded. Please try again later.", Err: err}
		}
		return nil, &Error{Code: CodeAIGenerationFailed, Message: fmt.Sprintf("Analysis failed with %s", p), Err: err}
	}

	result, err := ParseResult(raw)
	if err != nil {
		logger.Warnf("⚠️ Unparseable audit answer from %s: %v", p, err)
		return nil, &Error{Code: CodeAIGenerationFailed, Message: fmt.Sprintf("Analysis failed with %s", p), Err: err}
	}
	return result, nil
}

func resolveProvider(name string) (models.Provider, error) {
	if strings.TrimSpace(name) == "" {
		return models.ProviderGemini, nil
	}
	p, err := models.ParseProvider(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return "", &Error{Code: CodeInvalidProvider, Message: fmt.Sprintf("Unknown provider: %s", name)}
	}
	if _, ok := Models[p]; !ok {
		return "", &Error{Code: CodeInvalidProvider, Message: fmt.Sprintf("Unknown provider: %s", name)}
	}
	return p, nil
}

// ParseResult decodes a model answer, tolerating markdown code fences
func ParseResult(raw string) (*models.AuditResult, error) {
	var result models.AuditResult
	if err := json.Unmarshal([]byte(stripFences(raw)), &result); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(result.ActionVerdict)) {
	case "accept":
		result.ActionVerdict = "Accept"
	case "refuse":
		result.ActionVerdict = "Refuse"
	default:
		return nil, fmt.Errorf("unexpected verdict %q", result.ActionVerdict)
	}

	rb := &result.RiskBreakdown
	for _, items := range []*[]models.RiskItem{&rb.High, &rb.Medium, &rb.Low} {
		if *items == nil {
			*items = []models.RiskItem{}
		}
	}
	return &result, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
