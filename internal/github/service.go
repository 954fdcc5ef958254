package github

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/vanpelt/aura/internal/cache"
	"github.com/vanpelt/aura/internal/logger"
	"github.com/vanpelt/aura/internal/models"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,38})$`)

// Service is the fetch → validate → transform pipeline with a response cache
type Service struct {
	client      *Client
	transformer *Transformer
	profiles    *cache.LRU[*models.GitHubData]
	years       *cache.LRU[*models.YearCalendar]
}

// NewService wires a client and transformer behind an LRU with the given TTL
func NewService(client *Client, transformer *Transformer, ttl time.Duration) *Service {
	cfg := cache.DefaultConfig()
	if ttl > 0 {
		cfg.DefaultTTL = ttl
	}
	return &Service{
		client:      client,
		transformer: transformer,
		profiles:    cache.New[*models.GitHubData](cfg),
		years:       cache.New[*models.YearCalendar](cfg),
	}
}

// Close stops the cache cleanup goroutines
func (s *Service) Close() error {
	s.profiles.Close()
	return s.years.Close()
}

// CacheStats reports profile cache statistics
func (s *Service) CacheStats() cache.Stats {
	return s.profiles.Stats()
}

// ValidUsername reports whether name is a legal GitHub login
func ValidUsername(name string) bool {
	return usernamePattern.MatchString(name)
}

// Profile returns the display model for username. Classified upstream
// failures come back as *APIError; payloads that fail validation come back
// wrapping ErrNoData.
func (s *Service) Profile(ctx context.Context, username string) (*models.GitHubData, error) {
	if !ValidUsername(username) {
		return nil, &APIError{Kind: KindNotFound, Message: fmt.Sprintf("%q is not a valid GitHub username", username)}
	}
	key := cacheKey("profile", username)
	if data, ok := s.profiles.Get(key); ok {
		return data, nil
	}

	result, err := s.client.FetchUser(ctx, username)
	if err != nil {
		return nil, err
	}

	user, err := Validate(result.User)
	if err != nil {
		logger.Warnf("⚠️ GitHub payload for %s failed validation: %v", username, err)
		return nil, fmt.Errorf("%w: %w", ErrNoData, err)
	}

	data, err := s.transformer.Transform(user)
	if err != nil {
		return nil, err
	}
	if result.RateLimit != nil {
		data.RateLimit = &models.RateLimit{
			Limit:         result.RateLimit.Limit,
			Remaining:     result.RateLimit.Remaining,
			ResetAt:       result.RateLimit.ResetAt,
			Authenticated: s.client.HasToken(),
		}
	}

	s.profiles.Set(key, data)
	return data, nil
}

// Year lazily loads one extra calendar year
func (s *Service) Year(ctx context.Context, username string, year int) (*models.YearCalendar, error) {
	if !ValidUsername(username) {
		return nil, &APIError{Kind: KindNotFound, Message: fmt.Sprintf("%q is not a valid GitHub username", username)}
	}
	if year < 2008 || year > time.Now().UTC().Year() {
		return nil, fmt.Errorf("%w: year %d out of range", ErrNoData, year)
	}

	key := cacheKey("year", username, year)
	if cal, ok := s.years.Get(key); ok {
		return cal, nil
	}

	raw, err := s.client.FetchYear(ctx, username, year)
	if err != nil {
		return nil, err
	}
	cal, err := TransformYear(year, raw)
	if err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			return nil, fmt.Errorf("%w: %w", ErrNoData, err)
		}
		return nil, err
	}

	s.years.Set(key, cal)
	return cal, nil
}

// Invalidate drops every cached response for username
func (s *Service) Invalidate(username string) {
	s.profiles.Delete(cacheKey("profile", username))
	s.years.Clear(cacheKey("year", username) + ":")
}

func cacheKey(kind, username string, extra ...any) string {
	key := kind + ":" + strings.ToLower(username)
	for _, e := range extra {
		key += fmt.Sprintf(":%v", e)
	}
	return key
}
