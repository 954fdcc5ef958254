package github

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// dateLayout is the calendar date format GitHub returns
const dateLayout = "2006-01-02"

// ValidationError names the first field of an upstream payload that does not
// match the expected schema.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid github payload at %s: %s", e.Path, e.Reason)
}

// The raw* types mirror the GraphQL selection with pointer fields so that a
// missing value can be told apart from a zero one.

type rawCount struct {
	TotalCount *int `json:"totalCount"`
}

type rawLanguage struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

type rawRepo struct {
	Name            *string      `json:"name"`
	Description     *string      `json:"description"`
	URL             *string      `json:"url"`
	StargazerCount  *int         `json:"stargazerCount"`
	ForkCount       *int         `json:"forkCount"`
	IsPrivate       *bool        `json:"isPrivate"`
	IsFork          *bool        `json:"isFork"`
	PrimaryLanguage *rawLanguage `json:"primaryLanguage"`
}

type rawDay struct {
	Date              *string `json:"date"`
	ContributionCount *int    `json:"contributionCount"`
	Color             *string `json:"color"`
}

type rawWeek struct {
	ContributionDays *[]rawDay `json:"contributionDays"`
}

type rawCalendar struct {
	TotalContributions *int       `json:"totalContributions"`
	Weeks              *[]rawWeek `json:"weeks"`
}

type rawCollection struct {
	TotalCommitContributions            *int         `json:"totalCommitContributions"`
	TotalIssueContributions             *int         `json:"totalIssueContributions"`
	TotalPullRequestContributions       *int         `json:"totalPullRequestContributions"`
	TotalPullRequestReviewContributions *int         `json:"totalPullRequestReviewContributions"`
	ContributionYears                   []int        `json:"contributionYears"`
	ContributionCalendar                *rawCalendar `json:"contributionCalendar"`
}

type rawUser struct {
	Login           *string `json:"login"`
	Name            *string `json:"name"`
	AvatarURL       *string `json:"avatarUrl"`
	Bio             *string `json:"bio"`
	Location        *string `json:"location"`
	Company         *string `json:"company"`
	WebsiteURL      *string `json:"websiteUrl"`
	TwitterUsername *string `json:"twitterUsername"`
	CreatedAt       *string `json:"createdAt"`

	Followers    *rawCount `json:"followers"`
	Following    *rawCount `json:"following"`
	Repositories *struct {
		Nodes *[]rawRepo `json:"nodes"`
	} `json:"repositories"`

	ContributionsCollection *rawCollection `json:"contributionsCollection"`
	YearCurrent             *rawCollection `json:"yearCurrent"`
	YearPrev1               *rawCollection `json:"yearPrev1"`
	YearPrev2               *rawCollection `json:"yearPrev2"`
}

// User is a payload that passed validation. Nullable upstream fields stay
// pointers; everything else is guaranteed present.
type User struct {
	Login           string
	Name            *string
	AvatarURL       string
	Bio             *string
	Location        *string
	Company         *string
	WebsiteURL      *string
	TwitterUsername *string
	CreatedAt       string
	Followers       int
	Following       int
	Repositories    []Repo

	Contributions Collection
	YearCurrent   *Collection
	YearPrev1     *Collection
	YearPrev2     *Collection
}

// Repo is a validated repository node
type Repo struct {
	Name          string
	Description   *string
	URL           string
	Stars         int
	Forks         int
	IsPrivate     bool
	IsFork        bool
	LanguageName  *string
	LanguageColor *string
}

// Collection is a validated contributionsCollection
type Collection struct {
	TotalCommits int
	TotalIssues  int
	TotalPRs     int
	TotalReviews *int
	Years        []int
	Calendar     Calendar
}

// Calendar is a validated contribution calendar
type Calendar struct {
	TotalContributions int
	Weeks              [][]Day
}

// Day is a validated calendar day
type Day struct {
	Date  string
	Count int
	Color string
}

// Validate checks a raw user payload against the schema. It is
// all-or-nothing: the first offending field aborts with *ValidationError.
func Validate(data json.RawMessage) (*User, error) {
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, &ValidationError{Path: "user", Reason: "required"}
	}

	var raw rawUser
	if err := json.Unmarshal(data, &raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			path := typeErr.Field
			if path == "" {
				path = "user"
			}
			return nil, &ValidationError{Path: path, Reason: "expected " + typeErr.Type.String() + ", got " + typeErr.Value}
		}
		return nil, &ValidationError{Path: "user", Reason: err.Error()}
	}

	v := &validator{}
	user := v.user(&raw)
	if v.err != nil {
		return nil, v.err
	}
	return user, nil
}

type validator struct {
	err *ValidationError
}

func (v *validator) fail(path, reason string) {
	if v.err == nil {
		v.err = &ValidationError{Path: path, Reason: reason}
	}
}

func (v *validator) str(path string, p *string) string {
	if p == nil {
		v.fail(path, "required")
		return ""
	}
	return *p
}

// date requires a YYYY-MM-DD calendar date
func (v *validator) date(path string, p *string) string {
	s := v.str(path, p)
	if p == nil {
		return ""
	}
	if _, err := time.Parse(dateLayout, s); err != nil {
		v.fail(path, "must be a YYYY-MM-DD date")
	}
	return s
}

func (v *validator) num(path string, p *int) int {
	if p == nil {
		v.fail(path, "required")
		return 0
	}
	if *p < 0 {
		v.fail(path, "must be non-negative")
	}
	return *p
}

func (v *validator) boolean(path string, p *bool) bool {
	if p == nil {
		v.fail(path, "required")
		return false
	}
	return *p
}

func (v *validator) count(path string, c *rawCount) int {
	if c == nil {
		v.fail(path, "required")
		return 0
	}
	return v.num(path+".totalCount", c.TotalCount)
}

func (v *validator) user(raw *rawUser) *User {
	u := &User{
		Login:           v.str("login", raw.Login),
		Name:            raw.Name,
		AvatarURL:       v.str("avatarUrl", raw.AvatarURL),
		Bio:             raw.Bio,
		Location:        raw.Location,
		Company:         raw.Company,
		WebsiteURL:      raw.WebsiteURL,
		TwitterUsername: raw.TwitterUsername,
		CreatedAt:       v.str("createdAt", raw.CreatedAt),
		Followers:       v.count("followers", raw.Followers),
		Following:       v.count("following", raw.Following),
	}

	if raw.Repositories == nil {
		v.fail("repositories", "required")
	} else if raw.Repositories.Nodes == nil {
		v.fail("repositories.nodes", "required")
	} else {
		for i, r := range *raw.Repositories.Nodes {
			u.Repositories = append(u.Repositories, v.repo(fmt.Sprintf("repositories.nodes[%d]", i), r))
		}
	}

	if raw.ContributionsCollection == nil {
		v.fail("contributionsCollection", "required")
	} else {
		u.Contributions = v.collection("contributionsCollection", raw.ContributionsCollection)
	}

	u.YearCurrent = v.optionalCollection("yearCurrent", raw.YearCurrent)
	u.YearPrev1 = v.optionalCollection("yearPrev1", raw.YearPrev1)
	u.YearPrev2 = v.optionalCollection("yearPrev2", raw.YearPrev2)
	return u
}

func (v *validator) repo(path string, r rawRepo) Repo {
	repo := Repo{
		Name:        v.str(path+".name", r.Name),
		Description: r.Description,
		URL:         v.str(path+".url", r.URL),
		Stars:       v.num(path+".stargazerCount", r.StargazerCount),
		Forks:       v.num(path+".forkCount", r.ForkCount),
		IsPrivate:   v.boolean(path+".isPrivate", r.IsPrivate),
	}
	if r.IsFork != nil {
		repo.IsFork = *r.IsFork
	}
	if r.PrimaryLanguage != nil {
		name := v.str(path+".primaryLanguage.name", r.PrimaryLanguage.Name)
		repo.LanguageName = &name
		repo.LanguageColor = r.PrimaryLanguage.Color
	}
	return repo
}

func (v *validator) optionalCollection(path string, c *rawCollection) *Collection {
	if c == nil {
		return nil
	}
	col := v.collection(path, c)
	return &col
}

func (v *validator) collection(path string, c *rawCollection) Collection {
	col := Collection{
		TotalCommits: v.num(path+".totalCommitContributions", c.TotalCommitContributions),
		TotalIssues:  v.num(path+".totalIssueContributions", c.TotalIssueContributions),
		TotalPRs:     v.num(path+".totalPullRequestContributions", c.TotalPullRequestContributions),
		TotalReviews: c.TotalPullRequestReviewContributions,
		Years:        c.ContributionYears,
	}
	col.Calendar = v.calendar(path+".contributionCalendar", c.ContributionCalendar)
	return col
}

func (v *validator) calendar(path string, c *rawCalendar) Calendar {
	if c == nil {
		v.fail(path, "required")
		return Calendar{}
	}
	cal := Calendar{TotalContributions: v.num(path+".totalContributions", c.TotalContributions)}
	if c.Weeks == nil {
		v.fail(path+".weeks", "required")
		return cal
	}
	for i, w := range *c.Weeks {
		weekPath := fmt.Sprintf("%s.weeks[%d].contributionDays", path, i)
		if w.ContributionDays == nil {
			v.fail(weekPath, "required")
			continue
		}
		days := make([]Day, 0, len(*w.ContributionDays))
		for j, d := range *w.ContributionDays {
			dayPath := fmt.Sprintf("%s[%d]", weekPath, j)
			days = append(days, Day{
				Date:  v.date(dayPath+".date", d.Date),
				Count: v.num(dayPath+".contributionCount", d.ContributionCount),
				Color: v.str(dayPath+".color", d.Color),
			})
		}
		cal.Weeks = append(cal.Weeks, days)
	}
	return cal
}
