package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Heuristics are the tunable thresholds used by the analytics code. They are
// judgement calls, not derived values, so they stay overridable.
type Heuristics struct {
	WeekendWarriorThreshold float64 `yaml:"weekend_warrior_threshold"`
	TopLanguages            int     `yaml:"top_languages"`
	MaxVelocityCommits      int     `yaml:"max_velocity_commits"`
	AuditMinChars           int     `yaml:"audit_min_chars"`
	AuditMaxChars           int     `yaml:"audit_max_chars"`
}

// ProviderKeys are server-side fallback credentials per provider
type ProviderKeys struct {
	Gemini string `yaml:"gemini"`
	OpenAI string `yaml:"openai"`
	Claude string `yaml:"claude"`
	Meta   string `yaml:"meta"`
}

// Config is the full service configuration
type Config struct {
	Addr            string        `yaml:"addr"`
	Dev             bool          `yaml:"dev"`
	LogLevel        string        `yaml:"log_level"`
	SessionSecret   string        `yaml:"session_secret"`
	SessionTTL      time.Duration `yaml:"session_ttl"`
	GitHubToken     string        `yaml:"github_token"`
	GitHubEndpoint  string        `yaml:"github_endpoint"`
	ProfileCacheTTL time.Duration `yaml:"profile_cache_ttl"`
	ProviderTimeout time.Duration `yaml:"provider_timeout"`
	DBPath          string        `yaml:"db_path"`
	SettingsPath    string        `yaml:"settings_path"`
	ProviderKeys    ProviderKeys  `yaml:"provider_keys"`
	Heuristics      Heuristics    `yaml:"heuristics"`
}

const devSessionSecret = "default-dev-secret-key-change-me"

// Default returns the configuration used when nothing is set
func Default() Config {
	rt := DetectRuntime()
	return Config{
		Addr:            ":8080",
		LogLevel:        "info",
		SessionTTL:      7 * 24 * time.Hour,
		GitHubEndpoint:  "https://api.github.com/graphql",
		ProfileCacheTTL: time.Hour,
		ProviderTimeout: 120 * time.Second,
		DBPath:          rt.DBPath(),
		SettingsPath:    rt.SettingsPath(),
		Heuristics: Heuristics{
			WeekendWarriorThreshold: 0.40,
			TopLanguages:            5,
			MaxVelocityCommits:      1000,
			AuditMinChars:           50,
			AuditMaxChars:           30000,
		},
	}
}

// Production reports whether cookies should be marked Secure
func (c Config) Production() bool {
	return !c.Dev
}

// Load builds the configuration: defaults, then .env, then the YAML file,
// then environment variables. A missing .env or YAML file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("failed to load .env: %w", err)
	}

	if path == "" {
		path = os.Getenv("AURA_CONFIG")
	}
	if path == "" {
		path = DetectRuntime().ConfigPath()
	}
	if err := loadFile(path, &cfg); err != nil {
		return cfg, err
	}

	applyEnv(&cfg)
	return cfg, nil
}

// SessionKey returns the secret that signs session cookies. Dev mode falls
// back to a fixed key; otherwise SESSION_SECRET is required.
func (c Config) SessionKey() (string, error) {
	if c.SessionSecret != "" {
		return c.SessionSecret, nil
	}
	if c.Dev {
		return devSessionSecret, nil
	}
	return "", fmt.Errorf("SESSION_SECRET must be set outside dev mode")
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Addr, "AURA_ADDR")
	setString(&cfg.LogLevel, "AURA_LOG_LEVEL")
	setString(&cfg.SessionSecret, "SESSION_SECRET")
	setString(&cfg.GitHubToken, "GITHUB_TOKEN")
	setString(&cfg.DBPath, "AURA_DB")
	setString(&cfg.SettingsPath, "AURA_SETTINGS")
	setString(&cfg.ProviderKeys.Gemini, "GEMINI_API_KEY")
	setString(&cfg.ProviderKeys.OpenAI, "OPENAI_API_KEY")
	setString(&cfg.ProviderKeys.Claude, "CLAUDE_API_KEY")
	// ANTHROPIC_API_KEY wins over CLAUDE_API_KEY
	setString(&cfg.ProviderKeys.Claude, "ANTHROPIC_API_KEY")
	setString(&cfg.ProviderKeys.Meta, "META_API_KEY")

	if v := os.Getenv("AURA_DEV"); v != "" {
		cfg.Dev = isTrue(v)
	}
	if v := os.Getenv("AURA_WEEKEND_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 && f < 1 {
			cfg.Heuristics.WeekendWarriorThreshold = f
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func isTrue(v string) bool {
	v = strings.ToLower(v)
	return v == "1" || v == "true" || v == "yes"
}
