package config

import (
	"net/url"

	"github.com/mrz1836/taskmcp/internal/errors"
)

// Validate checks the configuration for invalid or inconsistent values.
// It returns an error describing the first validation failure found.
//
// Validation rules:
//   - server.port must be between 1 and 65535
//   - server timeouts must be positive
//   - storage timeouts must be positive
//   - notify.url must be an absolute http(s) URL when notify is enabled
//   - search.max_parallel must be at least 1
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.ErrConfigNil
	}

	if err := validateServerConfig(&cfg.Server); err != nil {
		return err
	}

	if err := validateStorageConfig(&cfg.Storage); err != nil {
		return err
	}

	if err := validateNotifyConfig(&cfg.Notify); err != nil {
		return err
	}

	if cfg.Search.MaxParallel < 1 {
		return errors.Wrapf(errors.ErrInvalidArgument,
			"search.max_parallel must be at least 1, got %d", cfg.Search.MaxParallel)
	}

	return nil
}

func validateServerConfig(cfg *ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return errors.Wrapf(errors.ErrConfigInvalidServer,
			"server.port must be between 1 and 65535, got %d", cfg.Port)
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidServer,
			"server.read_header_timeout must be positive, got %s", cfg.ReadHeaderTimeout)
	}
	if cfg.ShutdownTimeout <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidServer,
			"server.shutdown_timeout must be positive, got %s", cfg.ShutdownTimeout)
	}
	return nil
}

func validateStorageConfig(cfg *StorageConfig) error {
	if cfg.LockTimeout <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidStorage,
			"storage.lock_timeout must be positive, got %s", cfg.LockTimeout)
	}
	if cfg.BusyTimeout <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidStorage,
			"storage.busy_timeout must be positive, got %s", cfg.BusyTimeout)
	}
	return nil
}

func validateNotifyConfig(cfg *NotifyConfig) error {
	if cfg.Timeout <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidNotify,
			"notify.timeout must be positive, got %s", cfg.Timeout)
	}
	if cfg.Keepalive <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidNotify,
			"notify.keepalive must be positive, got %s", cfg.Keepalive)
	}
	if !cfg.Enabled {
		return nil
	}
	u, err := url.Parse(cfg.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Wrapf(errors.ErrConfigInvalidNotify,
			"notify.url must be an absolute http(s) URL, got %q", cfg.URL)
	}
	return nil
}
