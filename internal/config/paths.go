package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mrz1836/taskmcp/internal/constants"
	"github.com/mrz1836/taskmcp/internal/errors"
)

// HomeDir returns the taskmcp home directory: TASKMCP_HOME when set,
// otherwise ~/.taskmcp.
//
// Returns an error if the user home directory cannot be determined.
func HomeDir() (string, error) {
	if dir := os.Getenv(constants.HomeEnvVar); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(home, constants.AppHome), nil
}

// ResolveHome returns cfg.Storage.Home when set, otherwise HomeDir.
func ResolveHome(cfg *Config) (string, error) {
	if cfg != nil && cfg.Storage.Home != "" {
		return cfg.Storage.Home, nil
	}
	return HomeDir()
}

// GlobalConfigPath returns the full path to the global configuration file,
// typically ~/.taskmcp/config.yaml.
func GlobalConfigPath() (string, error) {
	dir, err := HomeDir()
	if err != nil {
		return "", fmt.Errorf("get global config path: %w", err)
	}
	return filepath.Join(dir, constants.GlobalConfigName), nil
}

// ProjectConfigPath returns the relative path to the project configuration
// file. This is always .taskmcp/config.yaml relative to the working directory.
func ProjectConfigPath() string {
	return filepath.Join(constants.ProjectConfigDir, constants.GlobalConfigName)
}

// ListenAddr returns the host:port the server binds to.
func (c ServerConfig) ListenAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func defaultNotifyURL() string {
	return "http://" + net.JoinHostPort(constants.DefaultHost, strconv.Itoa(constants.DefaultPort))
}
