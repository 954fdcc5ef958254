package cmd

import (
	"github.com/vanpelt/aura/internal/activity"
	"github.com/vanpelt/aura/internal/audit"
	"github.com/vanpelt/aura/internal/config"
	"github.com/vanpelt/aura/internal/github"
	"github.com/vanpelt/aura/internal/models"
	"github.com/vanpelt/aura/internal/providers"
)

func serverKeys(c config.Config) map[models.Provider]string {
	return map[models.Provider]string{
		models.ProviderGemini: c.ProviderKeys.Gemini,
		models.ProviderOpenAI: c.ProviderKeys.OpenAI,
		models.ProviderClaude: c.ProviderKeys.Claude,
		models.ProviderMeta:   c.ProviderKeys.Meta,
	}
}

func newProviderSet(c config.Config) *providers.Set {
	return providers.NewSet(providers.Options{
		Timeout:    c.ProviderTimeout,
		ServerKeys: serverKeys(c),
	})
}

func newTransformer(c config.Config) *github.Transformer {
	t := github.NewTransformer()
	t.Deriver = &activity.Deriver{WeekendThreshold: c.Heuristics.WeekendWarriorThreshold}
	if c.Heuristics.TopLanguages > 0 {
		t.TopLanguages = c.Heuristics.TopLanguages
	}
	return t
}

func newGitHubService(c config.Config) *github.Service {
	client := github.NewClient(c.GitHubToken, c.GitHubEndpoint)
	return github.NewService(client, newTransformer(c), c.ProfileCacheTTL)
}

func newAuditEngine(c config.Config, set *providers.Set) *audit.Engine {
	return audit.NewEngine(set, c.Heuristics.AuditMinChars, c.Heuristics.AuditMaxChars)
}
