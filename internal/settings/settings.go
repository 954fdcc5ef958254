// Package settings keeps the per-user provider registry: API keys, which
// providers are selected and which model each one uses.
package settings

import (
	"context"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/vanpelt/aura/internal/models"
)

// Namespace is the storage key settings live under
const Namespace = "prompt-platform-settings"

// Default model per provider
var DefaultActiveModels = map[models.Provider]string{
	models.ProviderGemini: "gemini-2.5-flash",
	models.ProviderOpenAI: "gpt-4o",
	models.ProviderClaude: "claude-sonnet-4-20250514",
	models.ProviderMeta:   "llama-3.3-70b-instruct",
}

// Settings is the persisted state
type Settings struct {
	APIKeys        map[models.Provider]string `json:"apiKeys"`
	SelectedModels []models.Provider          `json:"selectedModels"`
	ActiveModels   map[models.Provider]string `json:"activeModels"`
}

// Defaults returns a fresh default state
func Defaults() Settings {
	return Settings{
		APIKeys:        map[models.Provider]string{},
		SelectedModels: []models.Provider{models.ProviderGemini},
		ActiveModels:   maps.Clone(DefaultActiveModels),
	}
}

// Clone deep-copies s
func (s Settings) Clone() Settings {
	out := Settings{
		APIKeys:        maps.Clone(s.APIKeys),
		SelectedModels: slices.Clone(s.SelectedModels),
		ActiveModels:   maps.Clone(s.ActiveModels),
	}
	if out.APIKeys == nil {
		out.APIKeys = map[models.Provider]string{}
	}
	if out.ActiveModels == nil {
		out.ActiveModels = map[models.Provider]string{}
	}
	if out.SelectedModels == nil {
		out.SelectedModels = []models.Provider{}
	}
	return out
}

// normalize fills gaps left by older or hand-edited files
func (s Settings) normalize() Settings {
	out := s.Clone()
	for p, m := range DefaultActiveModels {
		if out.ActiveModels[p] == "" {
			out.ActiveModels[p] = m
		}
	}
	return out
}

// IsSelected reports whether p is in the active set
func (s Settings) IsSelected(p models.Provider) bool {
	return slices.Contains(s.SelectedModels, p)
}

// ModelFor returns the chosen model id for p
func (s Settings) ModelFor(p models.Provider) string {
	if m := s.ActiveModels[p]; m != "" {
		return m
	}
	return DefaultActiveModels[p]
}

// Masked returns a copy safe to send to clients: keys are reduced to their
// prefix and last four characters.
func (s Settings) Masked() Settings {
	out := s.Clone()
	for p, k := range out.APIKeys {
		out.APIKeys[p] = MaskKey(k)
	}
	return out
}

// MaskKey hides all but the start and end of a secret
func MaskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("•", len(key))
	}
	return key[:4] + strings.Repeat("•", 8) + key[len(key)-4:]
}

var keyPatterns = map[models.Provider]*regexp.Regexp{
	models.ProviderGemini: regexp.MustCompile(`^AIza[0-9A-Za-z_-]{35}$`),
	models.ProviderOpenAI: regexp.MustCompile(`^sk-[A-Za-z0-9_-]{20,}$`),
	models.ProviderClaude: regexp.MustCompile(`^sk-ant-[A-Za-z0-9_-]{20,}$`),
}

// ValidateKey is an advisory format check; it never contacts the provider.
func ValidateKey(p models.Provider, key string) bool {
	if key == "" {
		return false
	}
	switch p {
	case models.ProviderOpenAI:
		if strings.HasPrefix(key, "sk-ant") {
			return false
		}
	case models.ProviderMeta:
		return true
	}
	re, ok := keyPatterns[p]
	return ok && re.MatchString(key)
}

// Repository persists one settings document
type Repository interface {
	// Load returns the stored settings, or Defaults when nothing is stored
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
}
