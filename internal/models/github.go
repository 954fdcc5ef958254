package models

import (
	"cmp"
	"slices"
	"time"
)

// Profile is the identity slice of a GitHub user
type Profile struct {
	Username        string   `json:"username"`
	FullName        string   `json:"fullName"`
	AvatarURL       string   `json:"avatarUrl"`
	Bio             Optional `json:"bio"`
	Location        Optional `json:"location"`
	Company         Optional `json:"company"`
	WebsiteURL      Optional `json:"websiteUrl"`
	TwitterUsername Optional `json:"twitterUsername"`
	CreatedAt       string   `json:"createdAt"`
	Followers       int      `json:"followers"`
	Following       int      `json:"following"`
}

// RepositorySummary is a single public repository of a profile
type RepositorySummary struct {
	Name        string   `json:"name"`
	Description Optional `json:"description"`
	Stars       int      `json:"stars"`
	Forks       int      `json:"forks"`
	Language    string   `json:"language"`
	LangColor   string   `json:"langColor"`
	URL         string   `json:"url"`
	IsPrivate   bool     `json:"isPrivate"`
	IsFork      bool     `json:"isFork"`
}

// SortByPopularity returns a copy ordered by stars, then forks. Equal
// repositories keep their input order.
func SortByPopularity(repos []RepositorySummary) []RepositorySummary {
	sorted := slices.Clone(repos)
	slices.SortStableFunc(sorted, func(a, b RepositorySummary) int {
		if c := cmp.Compare(b.Stars, a.Stars); c != 0 {
			return c
		}
		return cmp.Compare(b.Forks, a.Forks)
	})
	return sorted
}

// ContributionDay is one cell of the contribution calendar
type ContributionDay struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int    `json:"contributionCount"`
	Color string `json:"color"`
}

// ContributionWeek holds up to seven chronologically ordered days
type ContributionWeek struct {
	Days []ContributionDay `json:"contributionDays"`
}

// ContributionCalendar is the GitHub contribution heatmap
type ContributionCalendar struct {
	TotalContributions int                `json:"totalContributions"`
	Weeks              []ContributionWeek `json:"weeks"`
}

// Days flattens the calendar, preserving chronological order.
func (c ContributionCalendar) Days() []ContributionDay {
	n := 0
	for _, w := range c.Weeks {
		n += len(w.Days)
	}
	days := make([]ContributionDay, 0, n)
	for _, w := range c.Weeks {
		days = append(days, w.Days...)
	}
	return days
}

// SumDays adds up the per-day counts. Upstream promises this equals
// TotalContributions.
func (c ContributionCalendar) SumDays() int {
	total := 0
	for _, w := range c.Weeks {
		for _, d := range w.Days {
			total += d.Count
		}
	}
	return total
}

// YearCalendar is the calendar of a single calendar year
type YearCalendar struct {
	Year     int                  `json:"year"`
	Total    int                  `json:"total"`
	Calendar ContributionCalendar `json:"calendar"`
}

// ContributionStats aggregates contribution counters and calendars
type ContributionStats struct {
	TotalCommits int                  `json:"totalCommits"`
	TotalPRs     int                  `json:"totalPRs"`
	TotalIssues  int                  `json:"totalIssues"`
	TotalReviews int                  `json:"totalReviews"`
	Calendar     ContributionCalendar `json:"calendar"`
	Years        []int                `json:"years"`
	History      []YearCalendar       `json:"history"`
}

// CommitActivity is derived from the daily calendar, never fetched
type CommitActivity struct {
	TotalContributions int         `json:"totalCommitsLastYear"`
	MaxStreak          int         `json:"maxStreak"`
	CurrentStreak      int         `json:"currentStreak"`
	MostActiveDay      string      `json:"mostActiveDay"`
	MostActiveHour     Unavailable `json:"mostActiveHour"`
	IsNightOwl         Unavailable `json:"isNightOwl"`
	IsWeekendWarrior   bool        `json:"isWeekendWarrior"`
}

// LanguageStat is the share of repositories using a primary language
type LanguageStat struct {
	Name       string `json:"name"`
	Color      string `json:"color"`
	Percentage int    `json:"percentage"`
}

// RateLimit mirrors the GraphQL rateLimit block
type RateLimit struct {
	Limit         int       `json:"limit"`
	Remaining     int       `json:"remaining"`
	ResetAt       time.Time `json:"resetAt"`
	Authenticated bool      `json:"authenticated"`
}

// GitHubData is the full display model of one profile
type GitHubData struct {
	Profile       Profile             `json:"profile"`
	Repositories  []RepositorySummary `json:"repositories"`
	Contributions ContributionStats   `json:"contributions"`
	Activity      CommitActivity      `json:"activity"`
	Languages     []LanguageStat      `json:"languages"`
	RateLimit     *RateLimit          `json:"rateLimit,omitempty"`
}
