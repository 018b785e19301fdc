// Package config provides configuration management for taskmcp with layered precedence.
//
// Configuration sources are loaded in the following order (highest precedence first):
//  1. CLI flags (passed via LoadWithOverrides)
//  2. Environment variables (TASKMCP_* prefix)
//  3. Project config (.taskmcp/config.yaml)
//  4. Global config (<home>/config.yaml)
//  5. Built-in defaults
//
// Each higher level completely overrides the lower level for the same key.
//
// IMPORTANT: This package may import internal/constants and internal/errors,
// but MUST NOT import internal/domain or other internal packages.
package config

import "time"

// Config is the root configuration structure for taskmcp.
type Config struct {
	// Server contains settings for the HTTP API and event stream.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Storage contains settings for workspace datasets and the registry lock.
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`

	// Notify contains settings for change notifications.
	Notify NotifyConfig `yaml:"notify" mapstructure:"notify"`

	// Search contains settings for cross-workspace search.
	Search SearchConfig `yaml:"search" mapstructure:"search"`
}

// ServerConfig contains settings for `taskmcp serve`.
type ServerConfig struct {
	// Host is the interface the server binds to.
	// Default: "localhost"
	Host string `yaml:"host" mapstructure:"host"`

	// Port is the TCP port the server listens on.
	// Default: 5000
	Port int `yaml:"port" mapstructure:"port"`

	// ReadHeaderTimeout bounds how long the server waits for request headers.
	// Default: 10s
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" mapstructure:"read_header_timeout"`

	// ShutdownTimeout bounds graceful shutdown after a signal.
	// Default: 5s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// StorageConfig contains settings for the workspace registry.
type StorageConfig struct {
	// Home is the taskmcp home directory. Empty means TASKMCP_HOME or ~/.taskmcp.
	Home string `yaml:"home" mapstructure:"home"`

	// LockTimeout bounds waiting for the cross-process registry lock.
	// Default: 5s
	LockTimeout time.Duration `yaml:"lock_timeout" mapstructure:"lock_timeout"`

	// BusyTimeout is passed to SQLite as busy_timeout.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout" mapstructure:"busy_timeout"`
}

// NotifyConfig contains settings for change notifications sent by CLI
// mutations to a running server.
type NotifyConfig struct {
	// Enabled turns remote nudges on or off.
	// Default: true
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// URL is the base URL of the running server.
	// Default: "http://localhost:5000"
	URL string `yaml:"url" mapstructure:"url"`

	// Timeout bounds a single nudge request.
	// Default: 500ms
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Keepalive is the interval between keepalive frames on open event streams.
	// Default: 25s
	Keepalive time.Duration `yaml:"keepalive" mapstructure:"keepalive"`
}

// SearchConfig contains settings for search across workspaces.
type SearchConfig struct {
	// MaxParallel limits how many workspaces are searched concurrently.
	// Default: 4
	MaxParallel int `yaml:"max_parallel" mapstructure:"max_parallel"`
}
