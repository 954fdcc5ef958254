package github

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func day(date string, count int) map[string]any {
	return map[string]any{"date": date, "contributionCount": count, "color": "#216e39"}
}

func collection(commits int, days ...map[string]any) map[string]any {
	total := 0
	for _, d := range days {
		total += d["contributionCount"].(int)
	}
	return map[string]any{
		"totalCommitContributions":            commits,
		"totalIssueContributions":             2,
		"totalPullRequestContributions":       3,
		"totalPullRequestReviewContributions": nil,
		"contributionCalendar": map[string]any{
			"totalContributions": total,
			"weeks": []any{
				map[string]any{"contributionDays": days},
			},
		},
	}
}

func repo(name string, stars int, lang any) map[string]any {
	r := map[string]any{
		"name":           name,
		"description":    nil,
		"url":            "https://github.com/octo/" + name,
		"stargazerCount": stars,
		"forkCount":      1,
		"isPrivate":      false,
		"isFork":         false,
	}
	if lang == nil {
		r["primaryLanguage"] = nil
	} else {
		r["primaryLanguage"] = map[string]any{"name": lang, "color": "#00ADD8"}
	}
	return r
}

// userPayload builds a valid user object; mutate the map to break it
func userPayload() map[string]any {
	main := collection(40,
		day("2026-10-14", 1),
		day("2026-10-15", 2),
		day("2026-10-16", 3),
		day("2026-10-17", 0),
	)
	main["contributionYears"] = []int{2026, 2025, 2024}
	return map[string]any{
		"login":           "octo",
		"name":            nil,
		"avatarUrl":       "https://avatars.githubusercontent.com/u/1",
		"bio":             "",
		"location":        "Lisbon",
		"company":         nil,
		"websiteUrl":      nil,
		"twitterUsername": nil,
		"createdAt":       "2015-03-01T00:00:00Z",
		"followers":       map[string]any{"totalCount": 12},
		"following":       map[string]any{"totalCount": 3},
		"repositories": map[string]any{
			"nodes": []any{
				repo("alpha", 5, "Go"),
				repo("beta", 50, "Go"),
				repo("gamma", 7, "Rust"),
				repo("delta", 7, nil),
			},
		},
		"contributionsCollection": main,
		"yearCurrent":             collection(40, day("2026-01-01", 4)),
		"yearPrev2":               collection(10, day("2024-01-01", 9)),
	}
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
