// SPDX-License-Identifier: MPL-2.0

// Package config loads the tool configuration. The config file is CUE,
// validated against an embedded schema before its values are merged
// into viper on top of the built-in defaults and MRPACK_* environment
// variables.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"mrpack-cli/internal/cueval"
	"mrpack-cli/internal/modrinth"
)

const (
	// AppName is the application name, used for the config directory.
	AppName = "mrpack"

	// ConfigFileName is the config file name inside the config dir.
	ConfigFileName = "config.cue"

	// envPrefix namespaces environment overrides (MRPACK_LOG_LEVEL...).
	envPrefix = "MRPACK"
)

//go:embed config_schema.cue
var configSchema []byte

// Modrinth configures the remote lookup service.
type Modrinth struct {
	// BaseURL is the API endpoint.
	BaseURL string `mapstructure:"base_url"`

	// AllowedHosts are the download hosts accepted for
	// metadata-resolved files.
	AllowedHosts []string `mapstructure:"allowed_hosts"`
}

// Export configures export defaults.
type Export struct {
	// Excludes are glob patterns filtered out of every export, in
	// addition to the built-in defaults.
	Excludes []string `mapstructure:"excludes"`
}

// Log configures logging.
type Log struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`
}

// Config is the full tool configuration.
type Config struct {
	Modrinth Modrinth `mapstructure:"modrinth"`
	Export   Export   `mapstructure:"export"`
	Log      Log      `mapstructure:"log"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Modrinth: Modrinth{
			BaseURL:      modrinth.DefaultBaseURL,
			AllowedHosts: modrinth.DefaultAllowedHosts,
		},
		Log: Log{Level: "info"},
	}
}

// ConfigDir returns the platform configuration directory for the tool:
// %APPDATA% on Windows, ~/Library/Application Support on macOS,
// $XDG_CONFIG_HOME (default ~/.config) elsewhere.
func ConfigDir() (string, error) {
	var base string

	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("APPDATA")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home directory: %w", err)
		}
		base = filepath.Join(home, "Library", "Application Support")
	default:
		base = os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("get home directory: %w", err)
			}
			base = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(base, AppName), nil
}

// LoadOptions overrides config discovery, mainly for tests and the
// --config flag.
type LoadOptions struct {
	// ConfigFilePath, when set, is used exclusively; a missing file is
	// an error.
	ConfigFilePath string

	// ConfigDirPath replaces the platform config directory.
	ConfigDirPath string
}

// Load reads the configuration. When no config file exists the
// defaults are returned without error. The resolved file path is
// returned alongside for display purposes (empty when defaults only).
func Load(opts LoadOptions) (*Config, string, error) {
	v := viper.New()

	defaults := Default()
	v.SetDefault("modrinth.base_url", defaults.Modrinth.BaseURL)
	v.SetDefault("modrinth.allowed_hosts", defaults.Modrinth.AllowedHosts)
	v.SetDefault("export.excludes", defaults.Export.Excludes)
	v.SetDefault("log.level", defaults.Log.Level)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, err := resolveConfigPath(opts)
	if err != nil {
		return nil, "", err
	}
	if path != "" {
		if err := mergeCUEFile(v, path); err != nil {
			return nil, "", err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("parse config: %w", err)
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return nil, "", fmt.Errorf("invalid log level %q", cfg.Log.Level)
	}

	return &cfg, path, nil
}

// resolveConfigPath finds the config file: the explicit override, then
// the platform config dir, then the working directory. Empty result
// means defaults only.
func resolveConfigPath(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", fmt.Errorf("config file not found: %s", opts.ConfigFilePath)
		}
		return opts.ConfigFilePath, nil
	}

	dir := opts.ConfigDirPath
	if dir == "" {
		var err error
		dir, err = ConfigDir()
		if err != nil {
			return "", err
		}
	}

	if path := filepath.Join(dir, ConfigFileName); fileExists(path) {
		return path, nil
	}
	if fileExists(ConfigFileName) {
		return ConfigFileName, nil
	}
	return "", nil
}

// mergeCUEFile validates a CUE config file against the schema and
// merges its values into viper.
func mergeCUEFile(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	values, err := cueval.DecodeToMap(configSchema, "#Config", data, path)
	if err != nil {
		return err
	}

	if err := v.MergeConfigMap(values); err != nil {
		return fmt.Errorf("merge config: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
