package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/taskmcp/internal/errors"
)

func TestValidate_Defaults(t *testing.T) {
	require.NoError(t, Validate(DefaultConfig()))
}

func TestValidate_Nil(t *testing.T) {
	require.ErrorIs(t, Validate(nil), errors.ErrConfigNil)
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }, errors.ErrConfigInvalidServer},
		{"port too large", func(c *Config) { c.Server.Port = 65536 }, errors.ErrConfigInvalidServer},
		{"zero read header timeout", func(c *Config) { c.Server.ReadHeaderTimeout = 0 }, errors.ErrConfigInvalidServer},
		{"negative shutdown timeout", func(c *Config) { c.Server.ShutdownTimeout = -1 }, errors.ErrConfigInvalidServer},
		{"zero lock timeout", func(c *Config) { c.Storage.LockTimeout = 0 }, errors.ErrConfigInvalidStorage},
		{"zero busy timeout", func(c *Config) { c.Storage.BusyTimeout = 0 }, errors.ErrConfigInvalidStorage},
		{"zero notify timeout", func(c *Config) { c.Notify.Timeout = 0 }, errors.ErrConfigInvalidNotify},
		{"zero keepalive", func(c *Config) { c.Notify.Keepalive = 0 }, errors.ErrConfigInvalidNotify},
		{"relative url", func(c *Config) { c.Notify.URL = "localhost:5000" }, errors.ErrConfigInvalidNotify},
		{"ftp url", func(c *Config) { c.Notify.URL = "ftp://host" }, errors.ErrConfigInvalidNotify},
		{"no parallelism", func(c *Config) { c.Search.MaxParallel = 0 }, errors.ErrInvalidArgument},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			require.ErrorIs(t, Validate(cfg), tc.want)
		})
	}
}

func TestValidate_DisabledNotifySkipsURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Notify.Enabled = false
	cfg.Notify.URL = ""
	assert.NoError(t, Validate(cfg))
}
