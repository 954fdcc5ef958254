package cache

import (
	"time"
)

// Stats represents cache performance metrics
type Stats struct {
	Hits        int64     `json:"hits"`
	Misses      int64     `json:"misses"`
	Evictions   int64     `json:"evictions"`
	Size        int       `json:"size"`
	MaxSize     int       `json:"max_size"`
	HitRate     float64   `json:"hit_rate"`
	LastCleanup time.Time `json:"last_cleanup"`
}

// Config defines configuration options for cache implementations
type Config struct {
	MaxSize       int           `json:"max_size"`
	DefaultTTL    time.Duration `json:"default_ttl"`
	CleanupPeriod time.Duration `json:"cleanup_period"`
}

// DefaultConfig returns the defaults used for GitHub responses: an hour
// matches how often contribution calendars meaningfully change.
func DefaultConfig() Config {
	return Config{
		MaxSize:       256,
		DefaultTTL:    time.Hour,
		CleanupPeriod: 10 * time.Minute,
	}
}
