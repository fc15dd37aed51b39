// Package config manages the runner's configuration file and directory layout.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultPlatformURL is the benchmark platform API used when the config
// file does not override it.
const DefaultPlatformURL = "https://api.credobench.dev"

// DefaultJudgeModel is used when neither flags nor config specify a judge.
const DefaultJudgeModel = "openai/gpt-oss-20b"

// Backend holds credentials and endpoint overrides for one LLM backend.
type Backend struct {
	APIKey  string `yaml:"api_key,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// Platform holds settings for the benchmark platform API.
type Platform struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key,omitempty"`
}

// Defaults holds fallback choices applied when run flags are omitted.
type Defaults struct {
	Backend      string `yaml:"backend"`
	JudgeBackend string `yaml:"judge_backend,omitempty"`
	JudgeModel   string `yaml:"judge_model"`
}

// Config is the root of the runner configuration file.
type Config struct {
	Backends map[string]Backend `yaml:"backends"`
	Defaults Defaults           `yaml:"defaults"`
	Platform Platform           `yaml:"platform"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		Backends: map[string]Backend{},
		Defaults: Defaults{
			Backend:    "openrouter",
			JudgeModel: DefaultJudgeModel,
		},
		Platform: Platform{URL: DefaultPlatformURL},
	}
}

// Load reads the config file from the default location. A missing or
// unreadable file yields the default configuration rather than an error,
// so a fresh install works without any setup.
func Load() *Config {
	return LoadFrom(filepath.Join(Dir(), "config.yaml"))
}

// LoadFrom reads a config file from an explicit path, falling back to
// defaults on any read or parse failure.
func LoadFrom(path string) *Config {
	cfg := New()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return New()
	}
	if cfg.Backends == nil {
		cfg.Backends = map[string]Backend{}
	}
	if cfg.Platform.URL == "" {
		cfg.Platform.URL = DefaultPlatformURL
	}
	if cfg.Defaults.JudgeModel == "" {
		cfg.Defaults.JudgeModel = DefaultJudgeModel
	}
	return cfg
}

// Save writes the config to the default location with owner-only
// permissions, since it may contain API keys.
func (c *Config) Save() error {
	return c.SaveTo(filepath.Join(Dir(), "config.yaml"))
}

// SaveTo writes the config to an explicit path.
func (c *Config) SaveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// BackendConfig returns the configuration for a named backend, or a zero
// value when the backend has never been configured.
func (c *Config) BackendConfig(name string) Backend {
	return c.Backends[name]
}

// ResolveBackend returns the configuration for a named backend with
// environment variables filling any gap the config file leaves. The
// config file wins when both are set.
func (c *Config) ResolveBackend(name string) Backend {
	b := c.Backends[name]
	if b.APIKey == "" {
		b.APIKey = os.Getenv(envKeyVar(name))
	}
	return b
}

// JudgeBackendFor picks the backend that should serve the judge when
// neither flags nor config name one. A locally served model still needs
// a capable judge, so local backends get a cloud judge whenever a key
// for one is available.
func (c *Config) JudgeBackendFor(modelBackend string) string {
	if c.Defaults.JudgeBackend != "" {
		return c.Defaults.JudgeBackend
	}
	if modelBackend == "lmstudio" || modelBackend == "ollama" {
		for _, name := range []string{"openrouter", "openai"} {
			if c.ResolveBackend(name).APIKey != "" {
				return name
			}
		}
	}
	return modelBackend
}

func envKeyVar(backend string) string {
	switch backend {
	case "openai":
		return "OPENAI_API_KEY"
	case "openrouter":
		return "OPENROUTER_API_KEY"
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	}
	return ""
}

// SetBackendConfig stores the configuration for a named backend.
func (c *Config) SetBackendConfig(name string, b Backend) {
	if c.Backends == nil {
		c.Backends = map[string]Backend{}
	}
	c.Backends[name] = b
}

// Dir returns the root configuration directory, creating it if needed.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dir := filepath.Join(home, ".credobench")
	_ = os.MkdirAll(dir, 0o755)
	return dir
}

// DataDir returns the directory holding the results database.
func DataDir() string {
	dir := filepath.Join(Dir(), "data")
	_ = os.MkdirAll(dir, 0o755)
	return dir
}

// DatabasePath returns the path of the results database.
func DatabasePath() string {
	return filepath.Join(DataDir(), "results.db")
}

// CacheDir returns the question cache directory.
func CacheDir() string {
	dir := filepath.Join(Dir(), "cache")
	_ = os.MkdirAll(dir, 0o755)
	return dir
}

// ExportsDir returns the directory used for export documents.
func ExportsDir() string {
	dir := filepath.Join(Dir(), "exports")
	_ = os.MkdirAll(dir, 0o755)
	return dir
}
