package cmd

import (
	"time"

	"github.com/credobench/runner/internal/backend"
	"github.com/credobench/runner/internal/config"
)

// newBackendClient creates a backend client from the configuration,
// with environment variables filling in any missing API key.
func newBackendClient(cfg *config.Config, name string, timeout time.Duration) (backend.Client, error) {
	b := cfg.ResolveBackend(name)
	return backend.New(name, backend.Config{
		APIKey:  b.APIKey,
		BaseURL: b.BaseURL,
		Timeout: timeout,
	})
}
