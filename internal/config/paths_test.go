package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHomeDir_HonorsEnv(t *testing.T) {
	t.Setenv("TASKMCP_HOME", "/srv/taskmcp")

	dir, err := HomeDir()
	require.NoError(t, err)
	assert.Equal(t, "/srv/taskmcp", dir)

	path, err := GlobalConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/srv/taskmcp", "config.yaml"), path)
}

func TestResolveHome_PrefersConfig(t *testing.T) {
	t.Setenv("TASKMCP_HOME", "/srv/taskmcp")

	cfg := DefaultConfig()
	cfg.Storage.Home = "/data/tm"
	dir, err := ResolveHome(cfg)
	require.NoError(t, err)
	assert.Equal(t, "/data/tm", dir)

	dir, err = ResolveHome(nil)
	require.NoError(t, err)
	assert.Equal(t, "/srv/taskmcp", dir)
}

func TestProjectConfigPath(t *testing.T) {
	assert.Equal(t, filepath.Join(".taskmcp", "config.yaml"), ProjectConfigPath())
}

func TestServerConfig_ListenAddr(t *testing.T) {
	assert.Equal(t, "localhost:5000", DefaultConfig().Server.ListenAddr())
}
