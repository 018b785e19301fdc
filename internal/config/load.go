package config

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/mrz1836/taskmcp/internal/constants"
	"github.com/mrz1836/taskmcp/internal/errors"
)

// newViperInstance creates a new Viper instance with the standard taskmcp
// configuration: environment prefix (TASKMCP_), key replacer, and defaults.
func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// isConfigNotFoundError returns true if the error is a viper config file not found error.
func isConfigNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var configNotFoundErr viper.ConfigFileNotFoundError
	return stderrors.As(err, &configNotFoundErr)
}

// unmarshalAndValidate unmarshals viper config into a Config and validates it.
func unmarshalAndValidate(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

// Load reads configuration from all available sources with proper precedence.
// Configuration is loaded in the following order (highest precedence first):
//  1. Environment variables (TASKMCP_* prefix)
//  2. Project config (.taskmcp/config.yaml)
//  3. Global config (<home>/config.yaml)
//  4. Built-in defaults
//
// For CLI flag overrides, use LoadWithOverrides instead. Missing config
// files are not an error.
func Load(ctx context.Context) (*Config, error) {
	return LoadWithOverrides(ctx, nil)
}

// LoadFromPaths loads configuration from specific file paths. Either path
// may be empty or point to a file that does not exist.
func LoadFromPaths(ctx context.Context, projectConfigPath, globalConfigPath string) (*Config, error) {
	v := newViperInstance()

	// Global config first; project config merges over it.
	if err := readConfigFile(v, globalConfigPath, false); err != nil {
		return nil, errors.Wrap(err, "failed to read global config file")
	}
	if err := readConfigFile(v, projectConfigPath, true); err != nil {
		return nil, errors.Wrap(err, "failed to read project config file")
	}

	cfg, err := unmarshalAndValidate(v)
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().
		Str("component", "config").
		Str("listen", cfg.Server.ListenAddr()).
		Bool("notify.enabled", cfg.Notify.Enabled).
		Dur("storage.lock_timeout", cfg.Storage.LockTimeout).
		Msg("configuration loaded")

	return cfg, nil
}

// readConfigFile reads path into v. merge selects MergeInConfig over
// ReadInConfig so a later file only overrides the keys it sets.
func readConfigFile(v *viper.Viper, path string, merge bool) error {
	if path == "" || !fileExists(path) {
		return nil
	}

	v.SetConfigFile(path)
	var err error
	if merge {
		err = v.MergeInConfig()
	} else {
		err = v.ReadInConfig()
	}
	if err != nil && !isConfigNotFoundError(err) {
		return err
	}
	return nil
}

// fileExists returns true if the file at path exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadWithOverrides loads configuration and applies CLI flag overrides.
// Only non-zero values in overrides are applied. A home override also
// moves the global config file to <home>/config.yaml.
func LoadWithOverrides(ctx context.Context, overrides *Config) (*Config, error) {
	var globalPath string
	if overrides != nil && overrides.Storage.Home != "" {
		globalPath = filepath.Join(overrides.Storage.Home, constants.GlobalConfigName)
	} else if p, err := GlobalConfigPath(); err == nil {
		globalPath = p
	}

	cfg, err := LoadFromPaths(ctx, ProjectConfigPath(), globalPath)
	if err != nil {
		return nil, err
	}

	if overrides != nil {
		applyOverrides(cfg, overrides)
		if err := Validate(cfg); err != nil {
			return nil, errors.Wrap(err, "invalid configuration after overrides")
		}
	}

	return cfg, nil
}

// applyOverrides copies non-zero override values into cfg.
func applyOverrides(cfg, overrides *Config) {
	if overrides.Server.Host != "" {
		cfg.Server.Host = overrides.Server.Host
	}
	if overrides.Server.Port != 0 {
		cfg.Server.Port = overrides.Server.Port
	}
	if overrides.Storage.Home != "" {
		cfg.Storage.Home = overrides.Storage.Home
	}
	if overrides.Notify.URL != "" {
		cfg.Notify.URL = overrides.Notify.URL
	}
}

// viperDecoderOption returns the decoder options for Viper unmarshal.
// Durations may be written as strings like "5s" in YAML or env vars.
func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	)
}
