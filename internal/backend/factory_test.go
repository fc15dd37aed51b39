package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresKeysForCloudBackends(t *testing.T) {
	for _, name := range []string{"openrouter", "openai", "anthropic"} {
		_, err := New(name, Config{})
		require.Error(t, err, "backend %s", name)
		assert.Contains(t, err.Error(), "requires an API key")
		assert.Contains(t, err.Error(), "credobench config")

		// Whitespace-only keys do not count.
		_, err = New(name, Config{APIKey: "   "})
		require.Error(t, err, "backend %s", name)
	}
}

func TestNewLocalBackendsNeedNoKey(t *testing.T) {
	for _, name := range []string{"lmstudio", "ollama"} {
		client, err := New(name, Config{})
		require.NoError(t, err, "backend %s", name)
		require.NotNil(t, client)
		assert.NoError(t, client.Close())
	}
}

func TestNewCloudBackendsWithKey(t *testing.T) {
	for _, name := range []string{"openrouter", "openai", "anthropic"} {
		client, err := New(name, Config{APIKey: "sk-test"})
		require.NoError(t, err, "backend %s", name)
		require.NotNil(t, client)
		assert.NoError(t, client.Close())
	}
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := New("bedrock", Config{APIKey: "k"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown backend "bedrock"`)
	assert.Contains(t, err.Error(), "openrouter")
}

func TestIsLocal(t *testing.T) {
	assert.True(t, IsLocal("lmstudio"))
	assert.True(t, IsLocal("ollama"))
	assert.False(t, IsLocal("openai"))
	assert.False(t, IsLocal("openrouter"))
	assert.False(t, IsLocal("anthropic"))
}

func TestKnownCoversFactory(t *testing.T) {
	for _, name := range Known() {
		cfg := Config{}
		if !IsLocal(name) {
			cfg.APIKey = "k"
		}
		client, err := New(name, cfg)
		require.NoError(t, err, "backend %s", name)
		assert.NoError(t, client.Close())
	}
}

func TestTimeoutOr(t *testing.T) {
	assert.Equal(t, cloudTimeout, timeoutOr(0, cloudTimeout))
	assert.Equal(t, localTimeout, timeoutOr(0, localTimeout))
	assert.Equal(t, cloudTimeout, timeoutOr(cloudTimeout, localTimeout))
}

func TestErrorFormatting(t *testing.T) {
	err := &Error{Backend: "ollama", Message: "down"}
	assert.Equal(t, "ollama backend error: down", err.Error())

	err = &Error{Backend: "openai", StatusCode: 429, Message: "slow down"}
	assert.Equal(t, "openai backend error (429): slow down", err.Error())
}

func TestUserMessage(t *testing.T) {
	msgs := UserMessage("hello")
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "hello", msgs[0].Content)
}
