package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vanpelt/aura/internal/config"
	"github.com/vanpelt/aura/internal/models"
)

func TestAuditRequest(t *testing.T) {
	req, err := auditRequest("https://example.com/terms")
	require.NoError(t, err)
	assert.Equal(t, models.AuditSourceURL, req.Type)

	path := filepath.Join(t.TempDir(), "tos.txt")
	require.NoError(t, os.WriteFile(path, []byte("We sell data."), 0o644))
	req, err = auditRequest(path)
	require.NoError(t, err)
	assert.Equal(t, models.AuditSourceText, req.Type)
	assert.Equal(t, "We sell data.", req.Content)

	_, err = auditRequest(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestAuditMarkdown(t *testing.T) {
	md := auditMarkdown(&models.AuditResult{
		ActionVerdict:  "Refuse",
		VerdictSummary: "Sells your data.",
		RiskBreakdown: models.RiskBreakdown{
			High: []models.RiskItem{{Category: "Privacy", Text: "Data sold to brokers"}},
		},
	})
	assert.Contains(t, md, "# 🚫 Refuse")
	assert.Contains(t, md, "High risk")
	assert.Contains(t, md, "**Privacy** Data sold to brokers")
	assert.NotContains(t, md, "Medium risk")
}

func TestProfileMarkdown(t *testing.T) {
	data := &models.GitHubData{
		Profile: models.Profile{Username: "octo", FullName: "Octo Cat", Bio: models.Some("Tentacles"), CreatedAt: "2015-03-01T00:00:00Z", Followers: 3},
		Repositories: []models.RepositorySummary{
			{Name: "small", Stars: 1, URL: "https://github.com/octo/small", Language: "Go"},
			{Name: "big", Stars: 90, URL: "https://github.com/octo/big", Language: "Rust"},
		},
		Contributions: models.ContributionStats{TotalCommits: 500, History: []models.YearCalendar{{Year: 2026, Total: 42}}},
		Activity:      models.CommitActivity{MaxStreak: 4, CurrentStreak: 2, MostActiveDay: "Tuesday", IsWeekendWarrior: true},
		Languages:     []models.LanguageStat{{Name: "Go", Percentage: 50}},
	}

	md := profileMarkdown(data, 1000)
	assert.Contains(t, md, "# Octo Cat (@octo)")
	assert.Contains(t, md, "> Tentacles")
	assert.Contains(t, md, "joined 2015-03-01")
	assert.Contains(t, md, "Velocity **50/100**")
	assert.Contains(t, md, "Weekend warrior")
	assert.Contains(t, md, "- 2026: 42 contributions")
	assert.Less(t, strings.Index(md, "[big]"), strings.Index(md, "[small]"))
}

func TestWiring(t *testing.T) {
	c := config.Default()
	c.ProviderKeys.Claude = "sk-ant-server"
	c.Heuristics.TopLanguages = 3
	c.Heuristics.WeekendWarriorThreshold = 0.6

	keys := serverKeys(c)
	assert.Equal(t, "sk-ant-server", keys[models.ProviderClaude])
	assert.Empty(t, keys[models.ProviderGemini])

	set := newProviderSet(c)
	assert.True(t, set.Configured(models.ProviderClaude))
	assert.False(t, set.Configured(models.ProviderOpenAI))

	tr := newTransformer(c)
	assert.Equal(t, 3, tr.TopLanguages)
	assert.Equal(t, 0.6, tr.Deriver.WeekendThreshold)
}
