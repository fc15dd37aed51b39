package backend

import (
	"fmt"
	"strings"
	"time"
)

// Config carries the per-backend settings the factory needs.
type Config struct {
	APIKey  string
	BaseURL string
	// Timeout bounds each completion call. Zero selects the backend's
	// default: cloud providers get 2 minutes, local servers 5.
	Timeout time.Duration
}

const (
	cloudTimeout = 2 * time.Minute
	localTimeout = 5 * time.Minute
)

// Known returns the names the factory accepts.
func Known() []string {
	return []string{"openrouter", "openai", "anthropic", "lmstudio", "ollama"}
}

// IsLocal reports whether a backend runs against a local model server.
// Local backends lean on a cloud backend for judging when one is
// configured.
func IsLocal(name string) bool {
	return name == "lmstudio" || name == "ollama"
}

// New builds a configured client for a named backend. Cloud backends
// require an API key.
func New(name string, cfg Config) (Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)

	switch name {
	case "openrouter":
		if apiKey == "" {
			return nil, fmt.Errorf("openrouter requires an API key, configure it with 'credobench config'")
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://openrouter.ai/api/v1"
		}
		return newOpenAICompatible("openrouter", apiKey, baseURL, timeoutOr(cfg.Timeout, cloudTimeout), map[string]string{
			"X-Title": "credobench",
		}), nil
	case "openai":
		if apiKey == "" {
			return nil, fmt.Errorf("openai requires an API key, configure it with 'credobench config'")
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		return newOpenAICompatible("openai", apiKey, baseURL, timeoutOr(cfg.Timeout, cloudTimeout), nil), nil
	case "anthropic":
		if apiKey == "" {
			return nil, fmt.Errorf("anthropic requires an API key, configure it with 'credobench config'")
		}
		return newAnthropicClient(apiKey, cfg.BaseURL, timeoutOr(cfg.Timeout, cloudTimeout)), nil
	case "lmstudio":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:1234/v1"
		}
		return newOpenAICompatible("lmstudio", "lm-studio", baseURL, timeoutOr(cfg.Timeout, localTimeout), nil), nil
	case "ollama":
		return newOllamaClient(cfg.BaseURL, timeoutOr(cfg.Timeout, localTimeout)), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (known: %s)", name, strings.Join(Known(), ", "))
	}
}

func timeoutOr(t, fallback time.Duration) time.Duration {
	if t > 0 {
		return t
	}
	return fallback
}
