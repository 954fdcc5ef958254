package github

import (
	"cmp"
	"encoding/json"
	"math"
	"slices"
	"time"

	"github.com/vanpelt/aura/internal/activity"
	"github.com/vanpelt/aura/internal/logger"
	"github.com/vanpelt/aura/internal/models"
)

const (
	UnknownLanguage      = "Unknown"
	UnknownLanguageColor = "#8b949e"
	defaultTopLanguages  = 5
)

// Transformer maps a validated payload onto the display model
type Transformer struct {
	Deriver      *activity.Deriver
	TopLanguages int
	Now          func() time.Time
}

// NewTransformer returns a Transformer with default heuristics
func NewTransformer() *Transformer {
	return &Transformer{Deriver: activity.New(), TopLanguages: defaultTopLanguages}
}

func (t *Transformer) now() time.Time {
	if t.Now != nil {
		return t.Now().UTC()
	}
	return time.Now().UTC()
}

// Transform builds GitHubData from a validated user. A nil user is the only
// failure and reports ErrNoData.
func (t *Transformer) Transform(u *User) (*models.GitHubData, error) {
	if u == nil {
		return nil, ErrNoData
	}

	repos := make([]models.RepositorySummary, 0, len(u.Repositories))
	for _, r := range u.Repositories {
		repos = append(repos, repoSummary(r))
	}

	calendar := toCalendar(u.Contributions.Calendar)
	if sum := calendar.SumDays(); sum != calendar.TotalContributions {
		logger.Debugf("⚠️ calendar total %d for %s differs from day sum %d", calendar.TotalContributions, u.Login, sum)
	}

	deriver := t.Deriver
	if deriver == nil {
		deriver = activity.New()
	}
	if deriver.Now == nil {
		deriver = &activity.Deriver{WeekendThreshold: deriver.WeekendThreshold, Now: t.now}
	}

	return &models.GitHubData{
		Profile:       profile(u),
		Repositories:  repos,
		Contributions: t.stats(u, calendar),
		Activity:      deriver.Derive(activity.FromCalendar(calendar.Days())),
		Languages:     Languages(repos, t.topN()),
	}, nil
}

func (t *Transformer) topN() int {
	if t.TopLanguages <= 0 {
		return defaultTopLanguages
	}
	return t.TopLanguages
}

func profile(u *User) models.Profile {
	p := models.Profile{
		Username:        u.Login,
		FullName:        u.Login,
		AvatarURL:       u.AvatarURL,
		Bio:             models.FromPtr(u.Bio),
		Location:        models.FromPtr(u.Location),
		Company:         models.FromPtr(u.Company),
		WebsiteURL:      models.FromPtr(u.WebsiteURL),
		TwitterUsername: models.FromPtr(u.TwitterUsername),
		CreatedAt:       u.CreatedAt,
		Followers:       u.Followers,
		Following:       u.Following,
	}
	if u.Name != nil && *u.Name != "" {
		p.FullName = *u.Name
	}
	return p
}

func repoSummary(r Repo) models.RepositorySummary {
	s := models.RepositorySummary{
		Name:        r.Name,
		Description: models.FromPtr(r.Description),
		Stars:       r.Stars,
		Forks:       r.Forks,
		Language:    UnknownLanguage,
		LangColor:   UnknownLanguageColor,
		URL:         r.URL,
		IsPrivate:   r.IsPrivate,
		IsFork:      r.IsFork,
	}
	if r.LanguageName != nil && *r.LanguageName != "" {
		s.Language = *r.LanguageName
		if r.LanguageColor != nil && *r.LanguageColor != "" {
			s.LangColor = *r.LanguageColor
		}
	}
	return s
}

func (t *Transformer) stats(u *User, calendar models.ContributionCalendar) models.ContributionStats {
	c := u.Contributions
	stats := models.ContributionStats{
		TotalCommits: c.TotalCommits,
		TotalPRs:     c.TotalPRs,
		TotalIssues:  c.TotalIssues,
		Calendar:     calendar,
		Years:        c.Years,
		History:      []models.YearCalendar{},
	}
	if c.TotalReviews != nil {
		stats.TotalReviews = *c.TotalReviews
	}

	year := t.now().Year()
	if len(stats.Years) == 0 {
		stats.Years = []int{year}
	}

	for i, col := range []*Collection{u.YearCurrent, u.YearPrev1, u.YearPrev2} {
		if col == nil {
			continue
		}
		stats.History = append(stats.History, models.YearCalendar{
			Year:     year - i,
			Total:    col.Calendar.TotalContributions,
			Calendar: toCalendar(col.Calendar),
		})
	}
	return stats
}

func toCalendar(c Calendar) models.ContributionCalendar {
	cal := models.ContributionCalendar{
		TotalContributions: c.TotalContributions,
		Weeks:              make([]models.ContributionWeek, 0, len(c.Weeks)),
	}
	for _, week := range c.Weeks {
		days := make([]models.ContributionDay, 0, len(week))
		for _, d := range week {
			days = append(days, models.ContributionDay{Date: d.Date, Count: d.Count, Color: d.Color})
		}
		cal.Weeks = append(cal.Weeks, models.ContributionWeek{Days: days})
	}
	return cal
}

// Languages counts primary languages across repos and returns the top n by
// share of the total repository count. Repositories without a language count
// toward the total but never appear in the result. Ties keep first-seen order.
func Languages(repos []models.RepositorySummary, n int) []models.LanguageStat {
	if len(repos) == 0 {
		return []models.LanguageStat{}
	}

	type tally struct {
		name  string
		color string
		count int
	}
	index := make(map[string]int)
	var tallies []tally
	for _, r := range repos {
		if r.Language == "" || r.Language == UnknownLanguage {
			continue
		}
		i, ok := index[r.Language]
		if !ok {
			i = len(tallies)
			index[r.Language] = i
			tallies = append(tallies, tally{name: r.Language, color: r.LangColor})
		}
		tallies[i].count++
	}

	slices.SortStableFunc(tallies, func(a, b tally) int {
		return cmp.Compare(b.count, a.count)
	})

	// Largest-remainder rounding: shares never sum above 100.
	exact := make([]float64, len(tallies))
	shares := make([]int, len(tallies))
	var sumExact float64
	floored := 0
	for i, t := range tallies {
		exact[i] = float64(t.count) * 100 / float64(len(repos))
		shares[i] = int(math.Floor(exact[i]))
		sumExact += exact[i]
		floored += shares[i]
	}
	order := make([]int, len(tallies))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(exact[b]-float64(shares[b]), exact[a]-float64(shares[a]))
	})
	left := min(int(math.Round(sumExact)), 100) - floored
	for _, i := range order {
		if left <= 0 {
			break
		}
		shares[i]++
		left--
	}

	stats := make([]models.LanguageStat, 0, len(tallies))
	for i, t := range tallies {
		stats = append(stats, models.LanguageStat{
			Name:       t.name,
			Color:      t.color,
			Percentage: shares[i],
		})
	}
	if len(stats) > n {
		stats = stats[:n]
	}
	return stats
}

// TransformYear validates and maps one contributionsCollection returned by
// the single-year query. The total prefers commit contributions and falls
// back to the calendar total when that is zero.
func TransformYear(year int, raw json.RawMessage) (*models.YearCalendar, error) {
	var rc rawCollection
	if err := json.Unmarshal(raw, &rc); err != nil {
		return nil, &ValidationError{Path: "contributionsCollection", Reason: err.Error()}
	}
	v := &validator{}
	col := v.collection("contributionsCollection", &rc)
	if v.err != nil {
		return nil, v.err
	}

	total := col.TotalCommits
	if total == 0 {
		total = col.Calendar.TotalContributions
	}
	return &models.YearCalendar{
		Year:     year,
		Total:    total,
		Calendar: toCalendar(col.Calendar),
	}, nil
}
