package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vanpelt/aura/internal/activity"
	"github.com/vanpelt/aura/internal/models"
)

var profileCmd = &cobra.Command{
	Use:   "profile <username>",
	Short: "🐙 Show GitHub profile analytics",
	Long: `# 🐙 Profile

Fetches a GitHub profile through the GraphQL API and prints the derived
analytics: streaks, most active day, language mix and top repositories.

Requires **GITHUB_TOKEN**.`,
	Example: `  aura profile torvalds
  aura profile octocat --json
  aura profile octocat --year 2021`,
	Args: cobra.ExactArgs(1),
	RunE: runProfile,
}

var (
	profileJSON bool
	profileYear int
)

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().BoolVar(&profileJSON, "json", false, "Print the raw JSON model")
	profileCmd.Flags().IntVar(&profileYear, "year", 0, "Print one contribution year instead of the profile")
}

func runProfile(cmd *cobra.Command, args []string) error {
	svc := newGitHubService(cfg)
	defer svc.Close()

	var out any
	if profileYear != 0 {
		cal, err := svc.Year(cmd.Context(), args[0], profileYear)
		if err != nil {
			return err
		}
		if !profileJSON {
			fmt.Printf("%s contributed %d times in %d\n", args[0], cal.Total, cal.Year)
			return nil
		}
		out = cal
	} else {
		data, err := svc.Profile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !profileJSON {
			fmt.Print(renderMarkdown(profileMarkdown(data, cfg.Heuristics.MaxVelocityCommits), nil))
			return nil
		}
		out = data
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func profileMarkdown(d *models.GitHubData, maxVelocity int) string {
	var b strings.Builder
	p := d.Profile

	fmt.Fprintf(&b, "# %s (@%s)\n\n", p.FullName, p.Username)
	if bio := p.Bio.Or(""); bio != "" {
		fmt.Fprintf(&b, "> %s\n\n", bio)
	}
	fmt.Fprintf(&b, "👥 **%d** followers · **%d** following · joined %s\n\n", p.Followers, p.Following, strings.SplitN(p.CreatedAt, "T", 2)[0])

	a := d.Activity
	c := d.Contributions
	b.WriteString("## 📊 Activity\n\n")
	fmt.Fprintf(&b, "- **%d** contributions in the last year\n", a.TotalContributions)
	fmt.Fprintf(&b, "- Longest streak **%d** days, current streak **%d** days\n", a.MaxStreak, a.CurrentStreak)
	fmt.Fprintf(&b, "- Most active on **%s**\n", a.MostActiveDay)
	if a.IsWeekendWarrior {
		b.WriteString("- 🏖️ Weekend warrior\n")
	}
	fmt.Fprintf(&b, "- %d commits · %d PRs · %d issues · %d reviews\n", c.TotalCommits, c.TotalPRs, c.TotalIssues, c.TotalReviews)
	fmt.Fprintf(&b, "- Velocity **%d/100**\n\n", activity.Velocity(c.TotalCommits, maxVelocity))

	if len(d.Languages) > 0 {
		b.WriteString("## 🎨 Languages\n\n")
		for _, l := range d.Languages {
			fmt.Fprintf(&b, "- %s %d%%\n", l.Name, l.Percentage)
		}
		b.WriteString("\n")
	}

	if repos := models.SortByPopularity(d.Repositories); len(repos) > 0 {
		b.WriteString("## ⭐ Top repositories\n\n| Repository | Stars | Forks | Language |\n|---|---|---|---|\n")
		for i, r := range repos {
			if i == 5 {
				break
			}
			fmt.Fprintf(&b, "| [%s](%s) | %d | %d | %s |\n", r.Name, r.URL, r.Stars, r.Forks, r.Language)
		}
		b.WriteString("\n")
	}

	if len(c.History) > 0 {
		b.WriteString("## 📅 History\n\n")
		for _, y := range c.History {
			fmt.Fprintf(&b, "- %d: %d contributions\n", y.Year, y.Total)
		}
		b.WriteString("\n")
	}

	if rl := d.RateLimit; rl != nil {
		fmt.Fprintf(&b, "_GitHub rate limit: %d/%d remaining_\n", rl.Remaining, rl.Limit)
	}
	return b.String()
}
