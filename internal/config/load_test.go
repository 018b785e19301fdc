package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/taskmcp/internal/constants"
	"github.com/mrz1836/taskmcp/internal/errors"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromPaths_DefaultsWhenNoConfigFile(t *testing.T) {
	cfg, err := LoadFromPaths(context.Background(), "", filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err, "missing config files are not an error")

	assert.Equal(t, constants.DefaultHost, cfg.Server.Host)
	assert.Equal(t, constants.DefaultPort, cfg.Server.Port)
	assert.Equal(t, constants.LockTimeout, cfg.Storage.LockTimeout)
	assert.True(t, cfg.Notify.Enabled)
	assert.Equal(t, "http://localhost:5000", cfg.Notify.URL)
	assert.Equal(t, constants.DefaultSearchParallelism, cfg.Search.MaxParallel)
}

func TestLoadFromPaths_ProjectConfigOverridesGlobal(t *testing.T) {
	globalConfig := writeConfig(t, t.TempDir(), `
server:
  port: 6000
  host: 0.0.0.0
storage:
  lock_timeout: 2s
`)
	projectConfig := writeConfig(t, t.TempDir(), `
server:
  port: 7000
`)

	cfg, err := LoadFromPaths(context.Background(), projectConfig, globalConfig)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port, "project config should win")
	assert.Equal(t, "0.0.0.0", cfg.Server.Host, "global value not set by project should survive")
	assert.Equal(t, 2*time.Second, cfg.Storage.LockTimeout)
}

func TestLoadFromPaths_EnvOverridesFiles(t *testing.T) {
	projectConfig := writeConfig(t, t.TempDir(), `
server:
  port: 7000
notify:
  timeout: 1s
`)
	t.Setenv("TASKMCP_SERVER_PORT", "8123")
	t.Setenv("TASKMCP_NOTIFY_ENABLED", "false")

	cfg, err := LoadFromPaths(context.Background(), projectConfig, "")
	require.NoError(t, err)

	assert.Equal(t, 8123, cfg.Server.Port)
	assert.False(t, cfg.Notify.Enabled)
	assert.Equal(t, time.Second, cfg.Notify.Timeout)
}

func TestLoadFromPaths_InvalidValues(t *testing.T) {
	projectConfig := writeConfig(t, t.TempDir(), `
server:
  port: 70000
`)

	_, err := LoadFromPaths(context.Background(), projectConfig, "")
	require.ErrorIs(t, err, errors.ErrConfigInvalidServer)
}

func TestLoadFromPaths_MalformedYAML(t *testing.T) {
	projectConfig := writeConfig(t, t.TempDir(), "server: [unterminated")

	_, err := LoadFromPaths(context.Background(), projectConfig, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project config")
}

// TestApplyOverrides tests that only non-zero flag values replace loaded ones.
func TestApplyOverrides(t *testing.T) {
	cfg := DefaultConfig()
	applyOverrides(cfg, &Config{
		Server:  ServerConfig{Port: 9000},
		Storage: StorageConfig{Home: "/tmp/tm"},
	})

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, constants.DefaultHost, cfg.Server.Host)
	assert.Equal(t, "/tmp/tm", cfg.Storage.Home)
	assert.Equal(t, "http://localhost:5000", cfg.Notify.URL)
}

// TestLoadWithOverrides_HomeMovesGlobalConfig tests that --home selects the
// global config file and wins over the file's own storage.home.
func TestLoadWithOverrides_HomeMovesGlobalConfig(t *testing.T) {
	home := t.TempDir()
	writeConfig(t, home, `
server:
  port: 6100
storage:
  home: /somewhere/else
`)
	t.Chdir(t.TempDir())

	cfg, err := LoadWithOverrides(context.Background(), &Config{Storage: StorageConfig{Home: home}})
	require.NoError(t, err)

	assert.Equal(t, 6100, cfg.Server.Port)
	assert.Equal(t, home, cfg.Storage.Home)
}
