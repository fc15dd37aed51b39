package server

import (
	"github.com/credobench/runner/internal/config"
	"github.com/credobench/runner/internal/store"
)

// ServerContext holds shared dependencies for MCP tool handlers.
type ServerContext struct {
	Store    *store.Store
	Config   *config.Config
	CacheDir string
	Version  string // runner version reported in exports
}
