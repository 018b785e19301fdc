package config

import (
	"github.com/spf13/viper"

	"github.com/mrz1836/taskmcp/internal/constants"
)

// DefaultConfig returns a new Config with the built-in default values.
// These defaults are the base layer that config files, environment
// variables and CLI flags override.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              constants.DefaultHost,
			Port:              constants.DefaultPort,
			ReadHeaderTimeout: constants.ReadHeaderTimeout,
			ShutdownTimeout:   constants.ShutdownTimeout,
		},
		Storage: StorageConfig{
			LockTimeout: constants.LockTimeout,
			BusyTimeout: constants.SQLiteBusyTimeout,
		},
		Notify: NotifyConfig{
			Enabled:   true,
			URL:       defaultNotifyURL(),
			Timeout:   constants.NotifyTimeout,
			Keepalive: constants.KeepaliveInterval,
		},
		Search: SearchConfig{
			MaxParallel: constants.DefaultSearchParallelism,
		},
	}
}

// setDefaults registers every default with viper so that environment
// variables are picked up for keys no config file mentions.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.read_header_timeout", d.Server.ReadHeaderTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("storage.home", d.Storage.Home)
	v.SetDefault("storage.lock_timeout", d.Storage.LockTimeout)
	v.SetDefault("storage.busy_timeout", d.Storage.BusyTimeout)

	v.SetDefault("notify.enabled", d.Notify.Enabled)
	v.SetDefault("notify.url", d.Notify.URL)
	v.SetDefault("notify.timeout", d.Notify.Timeout)
	v.SetDefault("notify.keepalive", d.Notify.Keepalive)

	v.SetDefault("search.max_parallel", d.Search.MaxParallel)
}
