package providers

import (
	"fmt"
	"strings"

	"github.com/vanpelt/aura/internal/models"
)

// Model is one entry of the model catalog
type Model struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Provider      models.Provider `json:"provider"`
	Type          string          `json:"type"` // Flash, Pro, Reasoning or Standard
	ContextWindow int             `json:"contextWindow"`
}

// Catalog lists the selectable models
var Catalog = []Model{
	{ID: "gemini-2.5-flash", Name: "Gemini 2.5 Flash", Provider: models.ProviderGemini, Type: "Flash", ContextWindow: 1000000},
	{ID: "gemini-2.5-pro", Name: "Gemini 2.5 Pro", Provider: models.ProviderGemini, Type: "Pro", ContextWindow: 1000000},
	{ID: "gemini-1.5-flash", Name: "Gemini 1.5 Flash", Provider: models.ProviderGemini, Type: "Flash", ContextWindow: 1000000},
	{ID: "gemini-1.5-pro", Name: "Gemini 1.5 Pro", Provider: models.ProviderGemini, Type: "Pro", ContextWindow: 2000000},

	{ID: "gpt-4o", Name: "GPT-4o", Provider: models.ProviderOpenAI, Type: "Standard", ContextWindow: 128000},
	{ID: "gpt-4o-mini", Name: "GPT-4o Mini", Provider: models.ProviderOpenAI, Type: "Flash", ContextWindow: 128000},
	{ID: "o1-preview", Name: "o1 Preview", Provider: models.ProviderOpenAI, Type: "Reasoning", ContextWindow: 128000},
	{ID: "o3-mini", Name: "o3 Mini", Provider: models.ProviderOpenAI, Type: "Reasoning", ContextWindow: 200000},

	{ID: "claude-sonnet-4-20250514", Name: "Claude Sonnet 4", Provider: models.ProviderClaude, Type: "Pro", ContextWindow: 200000},
	{ID: "claude-3-5-sonnet-20240620", Name: "Claude 3.5 Sonnet", Provider: models.ProviderClaude, Type: "Pro", ContextWindow: 200000},
	{ID: "claude-3-opus-20240229", Name: "Claude 3 Opus", Provider: models.ProviderClaude, Type: "Reasoning", ContextWindow: 200000},

	{ID: "llama-3.3-70b-instruct", Name: "Llama 3.3 70B", Provider: models.ProviderMeta, Type: "Pro", ContextWindow: 128000},
	{ID: "llama-3.1-8b-instant", Name: "Llama 3.1 8B", Provider: models.ProviderMeta, Type: "Flash", ContextWindow: 128000},
}

// ModelsFor returns the catalog entries of p
func ModelsFor(p models.Provider) []Model {
	var out []Model
	for _, m := range Catalog {
		if m.Provider == p {
			out = append(out, m)
		}
	}
	return out
}

var prefixes = []struct {
	prefix   string
	provider models.Provider
}{
	{"gemini", models.ProviderGemini},
	{"gpt", models.ProviderOpenAI},
	{"o1", models.ProviderOpenAI},
	{"o3", models.ProviderOpenAI},
	{"o4", models.ProviderOpenAI},
	{"claude", models.ProviderClaude},
	{"llama", models.ProviderMeta},
}

// ResolveModel maps a model id to its provider: an exact catalog match
// first, then the id's vendor prefix.
func ResolveModel(id string) (models.Provider, error) {
	for _, m := range Catalog {
		if m.ID == id {
			return m.Provider, nil
		}
	}
	lower := strings.ToLower(id)
	for _, p := range prefixes {
		if strings.HasPrefix(lower, p.prefix) {
			return p.provider, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownModel, id)
}
