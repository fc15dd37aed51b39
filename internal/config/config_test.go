package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	cfg := New()

	assert.Equal(t, "openrouter", cfg.Defaults.Backend)
	assert.Equal(t, DefaultJudgeModel, cfg.Defaults.JudgeModel)
	assert.Equal(t, DefaultPlatformURL, cfg.Platform.URL)
	assert.NotNil(t, cfg.Backends)
}

func TestLoadFromMissingFile(t *testing.T) {
	cfg := LoadFrom(filepath.Join(t.TempDir(), "config.yaml"))

	assert.Equal(t, "openrouter", cfg.Defaults.Backend)
	assert.Equal(t, DefaultPlatformURL, cfg.Platform.URL)
}

func TestLoadFromCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml: ["), 0o600))

	cfg := LoadFrom(path)

	assert.Equal(t, "openrouter", cfg.Defaults.Backend)
	assert.Empty(t, cfg.Backends)
}

func TestLoadFromFillsGaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("defaults:\n  backend: openai\n"), 0o600))

	cfg := LoadFrom(path)

	assert.Equal(t, "openai", cfg.Defaults.Backend)
	assert.Equal(t, DefaultJudgeModel, cfg.Defaults.JudgeModel)
	assert.Equal(t, DefaultPlatformURL, cfg.Platform.URL)
	assert.NotNil(t, cfg.Backends)
}

func TestSaveToRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := New()
	cfg.SetBackendConfig("openrouter", Backend{APIKey: "sk-or-test"})
	cfg.SetBackendConfig("ollama", Backend{BaseURL: "http://localhost:11434"})
	cfg.Platform.APIKey = "plat-key"
	cfg.Defaults.JudgeBackend = "openai"
	require.NoError(t, cfg.SaveTo(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded := LoadFrom(path)
	assert.Equal(t, "sk-or-test", loaded.BackendConfig("openrouter").APIKey)
	assert.Equal(t, "http://localhost:11434", loaded.BackendConfig("ollama").BaseURL)
	assert.Equal(t, "plat-key", loaded.Platform.APIKey)
	assert.Equal(t, "openai", loaded.Defaults.JudgeBackend)
}

func TestBackendConfigUnknown(t *testing.T) {
	cfg := New()
	assert.Equal(t, Backend{}, cfg.BackendConfig("nope"))
}

func TestResolveBackendFromEnv(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "env-key")

	cfg := New()
	b := cfg.ResolveBackend("openrouter")
	assert.Equal(t, "env-key", b.APIKey)
}

func TestResolveBackendConfigWinsOverEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")

	cfg := New()
	cfg.SetBackendConfig("openai", Backend{APIKey: "file-key"})
	assert.Equal(t, "file-key", cfg.ResolveBackend("openai").APIKey)
}

func TestResolveBackendNoEnvVar(t *testing.T) {
	cfg := New()
	assert.Empty(t, cfg.ResolveBackend("lmstudio").APIKey)
}

func TestJudgeBackendForExplicitDefault(t *testing.T) {
	cfg := New()
	cfg.Defaults.JudgeBackend = "anthropic"

	assert.Equal(t, "anthropic", cfg.JudgeBackendFor("ollama"))
	assert.Equal(t, "anthropic", cfg.JudgeBackendFor("openrouter"))
}

func TestJudgeBackendForCloudJudgesItself(t *testing.T) {
	cfg := New()
	assert.Equal(t, "openrouter", cfg.JudgeBackendFor("openrouter"))
	assert.Equal(t, "anthropic", cfg.JudgeBackendFor("anthropic"))
}

func TestJudgeBackendForLocalPrefersCloud(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	cfg := New()

	// No cloud key anywhere, so the local backend judges itself.
	assert.Equal(t, "ollama", cfg.JudgeBackendFor("ollama"))
	assert.Equal(t, "lmstudio", cfg.JudgeBackendFor("lmstudio"))

	cfg.SetBackendConfig("openai", Backend{APIKey: "oa-key"})
	assert.Equal(t, "openai", cfg.JudgeBackendFor("ollama"))

	// OpenRouter wins when both are configured.
	cfg.SetBackendConfig("openrouter", Backend{APIKey: "or-key"})
	assert.Equal(t, "openrouter", cfg.JudgeBackendFor("lmstudio"))
}
