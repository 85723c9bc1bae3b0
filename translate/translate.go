// Package translate provides the text translators used to draft locale
// files: a free Google Translate client, OpenAI-compatible chat providers
// (OpenAI, Groq, OpenRouter, custom endpoints), Ollama, and an identity
// translator for dry runs.
//
// Translators are unreliable by nature. Callers treat every error, and every
// empty answer, as "keep the source text".
package translate

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Translator turns text in one locale into text in another. Locales are
// game-style codes such as "en_us" and "ru_ru".
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// Func adapts a plain function to Translator.
type Func func(ctx context.Context, text, source, target string) (string, error)

// Translate calls f.
func (f Func) Translate(ctx context.Context, text, source, target string) (string, error) {
	return f(ctx, text, source, target)
}

// Identity returns every text unchanged.
var Identity Translator = Func(func(_ context.Context, text, _, _ string) (string, error) {
	return text, nil
})

// ---------------------------------------------------------------------------
// Provider IDs
// ---------------------------------------------------------------------------

const (
	ProviderGoogle       = "google"
	ProviderOpenAI       = "openai"
	ProviderGroq         = "groq"
	ProviderOpenRouter   = "openrouter"
	ProviderCustomOpenAI = "custom-openai"
	ProviderOllama       = "ollama"
	ProviderNone         = "none"
)

// ---------------------------------------------------------------------------
// Provider configuration
// ---------------------------------------------------------------------------

// Provider holds the configuration for a translation service.
type Provider struct {
	// ID is the provider identifier (google, groq, ollama, etc.).
	ID string
	// Name is the display name.
	Name string
	// BaseURL is the API base URL.
	BaseURL string
	// APIKey is the authentication key (empty for local or free services).
	APIKey string
	// Model is the model identifier (AI providers only).
	Model string
	// Proxy is an optional HTTP/HTTPS proxy URL.
	Proxy string
	// Timeout is the request timeout.
	Timeout time.Duration
	// MaxRetries is the number of retries on rate limits and server errors.
	MaxRetries int
}

// NeedsModel reports whether the provider requires a model name.
func (p Provider) NeedsModel() bool {
	switch p.ID {
	case ProviderGoogle, ProviderNone:
		return false
	}
	return true
}

func (p Provider) timeout() time.Duration {
	if p.Timeout > 0 {
		return p.Timeout
	}
	return 60 * time.Second
}

func (p Provider) maxRetries() int {
	if p.MaxRetries > 0 {
		return p.MaxRetries
	}
	return 3
}

// DefaultProviders returns the pre-configured provider definitions.
func DefaultProviders() map[string]Provider {
	return map[string]Provider{
		ProviderGoogle: {
			ID:      ProviderGoogle,
			Name:    "Google Translate (free)",
			Timeout: 30 * time.Second,
		},
		ProviderOpenAI: {
			ID:      ProviderOpenAI,
			Name:    "OpenAI",
			BaseURL: "https://api.openai.com/v1",
			Timeout: 60 * time.Second,
		},
		ProviderGroq: {
			ID:      ProviderGroq,
			Name:    "Groq",
			BaseURL: "https://api.groq.com/openai/v1",
			Timeout: 60 * time.Second,
		},
		ProviderOpenRouter: {
			ID:      ProviderOpenRouter,
			Name:    "OpenRouter",
			BaseURL: "https://openrouter.ai/api/v1",
			Timeout: 60 * time.Second,
		},
		ProviderCustomOpenAI: {
			ID:      ProviderCustomOpenAI,
			Name:    "Custom OpenAI",
			Timeout: 60 * time.Second,
		},
		ProviderOllama: {
			ID:      ProviderOllama,
			Name:    "Ollama",
			BaseURL: "http://localhost:11434",
			Timeout: 120 * time.Second,
		},
		ProviderNone: {
			ID:   ProviderNone,
			Name: "None (copy source text)",
		},
	}
}

// New builds the translator for a provider.
func New(p Provider) (Translator, error) {
	switch p.ID {
	case ProviderNone:
		return Identity, nil
	case ProviderGoogle:
		return NewGoogle(p), nil
	case ProviderOllama:
		return newChat(p, formatOllama), nil
	case ProviderOpenAI, ProviderGroq, ProviderOpenRouter, ProviderCustomOpenAI:
		if p.BaseURL == "" {
			return nil, fmt.Errorf("provider %q needs a base URL", p.ID)
		}
		return newChat(p, formatOpenAIChat), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (valid: %s)", p.ID, strings.Join(ProviderIDs(), ", "))
	}
}

// ProviderIDs lists the known provider IDs in display order.
func ProviderIDs() []string {
	return []string{
		ProviderGoogle, ProviderOpenAI, ProviderGroq, ProviderOpenRouter,
		ProviderCustomOpenAI, ProviderOllama, ProviderNone,
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
