package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/vanpelt/aura/internal/logger"
)

const (
	DefaultEndpoint  = "https://api.github.com/graphql"
	defaultUserAgent = "aura/0.1"
)

var tokenPattern = regexp.MustCompile(`^(ghp_[a-zA-Z0-9]{36}|github_pat_[a-zA-Z0-9_]{82})$`)

// ValidToken reports whether token looks like a classic or fine-grained PAT.
// It is a format check only.
func ValidToken(token string) bool {
	return tokenPattern.MatchString(token)
}

const userQuery = `
query GetUserData($username: String!, $fromCurrent: DateTime!, $toCurrent: DateTime!, $fromPrev1: DateTime!, $toPrev1: DateTime!, $fromPrev2: DateTime!, $toPrev2: DateTime!) {
  user(login: $username) {
    login
    name
    bio
    avatarUrl(size: 256)
    websiteUrl
    location
    company
    twitterUsername
    createdAt
    followers { totalCount }
    following { totalCount }
    repositories(first: 100, orderBy: {field: STARGAZERS, direction: DESC}, privacy: PUBLIC) {
      totalCount
      nodes {
        name
        description
        url
        stargazerCount
        forkCount
        primaryLanguage { name color }
        isPrivate
        isFork
      }
    }
    contributionsCollection {
      ...collection
      contributionYears
    }
    yearCurrent: contributionsCollection(from: $fromCurrent, to: $toCurrent) { ...collection }
    yearPrev1: contributionsCollection(from: $fromPrev1, to: $toPrev1) { ...collection }
    yearPrev2: contributionsCollection(from: $fromPrev2, to: $toPrev2) { ...collection }
  }
  rateLimit { limit remaining resetAt }
}
` + collectionFragment

const yearQuery = `
query GetYearlyCalendar($username: String!, $from: DateTime!, $to: DateTime!) {
  user(login: $username) {
    contributionsCollection(from: $from, to: $to) { ...collection }
  }
}
` + collectionFragment

const collectionFragment = `
fragment collection on ContributionsCollection {
  totalCommitContributions
  totalPullRequestContributions
  totalIssueContributions
  totalPullRequestReviewContributions
  contributionCalendar {
    totalContributions
    weeks { contributionDays { date contributionCount color } }
  }
}
`

// Client talks to the GitHub GraphQL API
type Client struct {
	httpClient *http.Client
	endpoint   string
	token      string
	now        func() time.Time
}

// NewClient creates a client. An empty endpoint means api.github.com.
func NewClient(token, endpoint string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		endpoint:   endpoint,
		token:      token,
		now:        time.Now,
	}
}

// HasToken reports whether requests are authenticated
func (c *Client) HasToken() bool {
	return c.token != ""
}

// RawRateLimit is the rateLimit block of the response
type RawRateLimit struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"resetAt"`
}

// UserResult is the unvalidated user payload plus rate limit info
type UserResult struct {
	User      json.RawMessage
	RateLimit *RawRateLimit
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"errors"`
}

func yearRange(year int) (string, string) {
	return fmt.Sprintf("%04d-01-01T00:00:00Z", year), fmt.Sprintf("%04d-12-31T23:59:59Z", year)
}

// FetchUser runs the batched profile query, including the current and two
// previous calendar years.
func (c *Client) FetchUser(ctx context.Context, username string) (*UserResult, error) {
	year := c.now().UTC().Year()
	vars := map[string]any{"username": username}
	for i, alias := range []string{"Current", "Prev1", "Prev2"} {
		from, to := yearRange(year - i)
		vars["from"+alias] = from
		vars["to"+alias] = to
	}

	var data struct {
		User      json.RawMessage `json:"user"`
		RateLimit *RawRateLimit   `json:"rateLimit"`
	}
	if err := c.do(ctx, username, userQuery, vars, &data); err != nil {
		return nil, err
	}
	if len(data.User) == 0 || string(data.User) == "null" {
		return nil, &APIError{Kind: KindNotFound, Message: fmt.Sprintf("user %q does not exist", username)}
	}
	return &UserResult{User: data.User, RateLimit: data.RateLimit}, nil
}

// FetchYear runs the lightweight single-year calendar query
func (c *Client) FetchYear(ctx context.Context, username string, year int) (json.RawMessage, error) {
	if !c.HasToken() {
		return nil, &APIError{Kind: KindInvalidToken, Message: "a token is required for yearly history"}
	}
	from, to := yearRange(year)
	vars := map[string]any{"username": username, "from": from, "to": to}

	var data struct {
		User *struct {
			ContributionsCollection json.RawMessage `json:"contributionsCollection"`
		} `json:"user"`
	}
	if err := c.do(ctx, username, yearQuery, vars, &data); err != nil {
		return nil, err
	}
	if data.User == nil {
		return nil, &APIError{Kind: KindNotFound, Message: fmt.Sprintf("user %q does not exist", username)}
	}
	return data.User.ContributionsCollection, nil
}

func (c *Client) do(ctx context.Context, username, query string, vars map[string]any, out any) error {
	if c.token != "" && !ValidToken(c.token) {
		return &APIError{Kind: KindInvalidToken, Message: "token format invalid, expected ghp_... or github_pat_..."}
	}

	body, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("failed to marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", defaultUserAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Kind: KindNetwork, Message: "unable to reach the GitHub API", Err: err}
	}
	defer resp.Body.Close()
	logger.Debugf("🐙 GitHub GraphQL %s: status %d in %v", username, resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		apiErr := &APIError{Kind: KindRateLimit, Status: resp.StatusCode, Message: "rate limit exceeded"}
		if reset, err := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64); err == nil {
			apiErr.ResetAt = time.Unix(reset, 0).UTC()
			apiErr.Message = "rate limit exceeded, resets at " + apiErr.ResetAt.Format(time.Kitchen)
		}
		return apiErr
	case resp.StatusCode == http.StatusUnauthorized:
		return &APIError{Kind: KindInvalidToken, Status: resp.StatusCode, Message: "token rejected by GitHub"}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{Kind: KindUnknown, Status: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	var gql graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&gql); err != nil {
		return &APIError{Kind: KindUnknown, Message: "malformed GraphQL response", Err: err}
	}

	if len(gql.Errors) > 0 {
		first := gql.Errors[0]
		if first.Type == "NOT_FOUND" || strings.Contains(first.Message, "Could not resolve to a User") {
			return &APIError{Kind: KindNotFound, Message: fmt.Sprintf("user %q does not exist", username)}
		}
		if first.Type == "RATE_LIMITED" {
			return &APIError{Kind: KindRateLimit, Message: first.Message}
		}
		return &APIError{Kind: KindUnknown, Message: first.Message}
	}

	if err := json.Unmarshal(gql.Data, out); err != nil {
		return &APIError{Kind: KindUnknown, Message: "unexpected data shape", Err: err}
	}
	return nil
}
