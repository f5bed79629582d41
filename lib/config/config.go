// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for Canopy commands.
//
// Configuration is loaded from a single YAML file specified by:
//   - CANOPY_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures
// deterministic, auditable configuration with no hidden overrides.
//
// The config file may contain environment-specific sections
// (development, staging, production) that override base values when
// the environment matches. UI customization (theme colors, key
// bindings) lives in separate JSONC files referenced from the UI
// section.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the master configuration for Canopy.
type Config struct {
	// Environment identifies the deployment type.
	Environment Environment `yaml:"environment"`

	// API configures the chat backend connection.
	API APIConfig `yaml:"api"`

	// Channel configures view-model behavior.
	Channel ChannelConfig `yaml:"channel"`

	// UI configures the terminal interface.
	UI UIConfig `yaml:"ui"`

	// Per-environment overrides, applied after the base config.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	API     *APIConfig     `yaml:"api,omitempty"`
	Channel *ChannelConfig `yaml:"channel,omitempty"`
	UI      *UIConfig      `yaml:"ui,omitempty"`
}

// APIConfig configures the chat backend connection.
type APIConfig struct {
	// BaseURL is the backend's API root, e.g. "https://chat.example.com".
	BaseURL string `yaml:"base_url"`

	// UserID is the local user, e.g. "@nina".
	UserID string `yaml:"user_id"`

	// TokenFile is the path of a file holding the bearer token.
	// Preferred over Token so the config file carries no secret.
	TokenFile string `yaml:"token_file"`

	// Token is the bearer token inline. Development convenience only.
	Token string `yaml:"token"`
}

// ChannelConfig configures view-model behavior. Zero values mean the
// channelview defaults.
type ChannelConfig struct {
	// PageSize is the message page size for the initial load and
	// backward pagination.
	PageSize int `yaml:"page_size"`

	// ThreadPageSize is the reply page size for thread pagination.
	ThreadPageSize int `yaml:"thread_page_size"`

	// NotificationTTL is how long transient notifications stay
	// visible, e.g. "5s". Parsed with time.ParseDuration.
	NotificationTTL string `yaml:"notification_ttl"`
}

// NotificationTTLDuration parses the configured TTL. An empty value
// returns zero, meaning the channelview default.
func (c ChannelConfig) NotificationTTLDuration() (time.Duration, error) {
	if c.NotificationTTL == "" {
		return 0, nil
	}
	ttl, err := time.ParseDuration(c.NotificationTTL)
	if err != nil {
		return 0, fmt.Errorf("channel.notification_ttl: %w", err)
	}
	if ttl < 0 {
		return 0, fmt.Errorf("channel.notification_ttl must not be negative")
	}
	return ttl, nil
}

// UIConfig configures the terminal interface.
type UIConfig struct {
	// ThemeFile is an optional JSONC file with color overrides.
	ThemeFile string `yaml:"theme_file"`

	// KeymapFile is an optional JSONC file with key binding overrides.
	KeymapFile string `yaml:"keymap_file"`
}

// Default returns the default configuration. These defaults exist so
// every field has a sensible zero value; the config file is still
// required for the connection settings.
func Default() *Config {
	return &Config{
		Environment: Development,
	}
}

// Load loads configuration from the CANOPY_CONFIG environment
// variable. There are no fallbacks: if CANOPY_CONFIG is not set, this
// fails.
func Load() (*Config, error) {
	configPath := os.Getenv("CANOPY_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("CANOPY_CONFIG environment variable not set; " +
			"set it to the path of your canopy.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path. The config
// file is the single source of truth; environment variables do not
// override config values. The only expansion performed is ${HOME} in
// paths for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// BearerToken resolves the API token: TokenFile wins over the inline
// Token, and surrounding whitespace is trimmed.
func (c *Config) BearerToken() (string, error) {
	if c.API.TokenFile != "" {
		data, err := os.ReadFile(c.API.TokenFile)
		if err != nil {
			return "", fmt.Errorf("reading token file: %w", err)
		}
		token := strings.TrimSpace(string(data))
		if token == "" {
			return "", fmt.Errorf("token file %s is empty", c.API.TokenFile)
		}
		return token, nil
	}
	if c.API.Token != "" {
		return c.API.Token, nil
	}
	return "", fmt.Errorf("no API token configured: set api.token_file or api.token")
}

func (c *Config) validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.API.UserID == "" {
		return fmt.Errorf("api.user_id is required")
	}
	if _, err := c.Channel.NotificationTTLDuration(); err != nil {
		return err
	}
	switch c.Environment {
	case Development, Staging, Production:
	default:
		return fmt.Errorf("unknown environment %q", c.Environment)
	}
	return nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if overrides.API != nil {
		if overrides.API.BaseURL != "" {
			c.API.BaseURL = overrides.API.BaseURL
		}
		if overrides.API.UserID != "" {
			c.API.UserID = overrides.API.UserID
		}
		if overrides.API.TokenFile != "" {
			c.API.TokenFile = overrides.API.TokenFile
		}
		if overrides.API.Token != "" {
			c.API.Token = overrides.API.Token
		}
	}
	if overrides.Channel != nil {
		if overrides.Channel.PageSize != 0 {
			c.Channel.PageSize = overrides.Channel.PageSize
		}
		if overrides.Channel.ThreadPageSize != 0 {
			c.Channel.ThreadPageSize = overrides.Channel.ThreadPageSize
		}
		if overrides.Channel.NotificationTTL != "" {
			c.Channel.NotificationTTL = overrides.Channel.NotificationTTL
		}
	}
	if overrides.UI != nil {
		if overrides.UI.ThemeFile != "" {
			c.UI.ThemeFile = overrides.UI.ThemeFile
		}
		if overrides.UI.KeymapFile != "" {
			c.UI.KeymapFile = overrides.UI.KeymapFile
		}
	}
}

// expandVariables expands ${HOME} in path fields.
func (c *Config) expandVariables() {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	expand := func(path string) string {
		return strings.ReplaceAll(path, "${HOME}", home)
	}
	c.API.TokenFile = expand(c.API.TokenFile)
	c.UI.ThemeFile = expand(c.UI.ThemeFile)
	c.UI.KeymapFile = expand(c.UI.KeymapFile)
}

// WriteExample writes a commented example config to path, refusing to
// overwrite an existing file.
func WriteExample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(exampleConfig), 0o600)
}

const exampleConfig = `environment: development

api:
  base_url: https://chat.example.com
  user_id: "@nina"
  token_file: ${HOME}/.config/canopy/token

channel:
  # Zero values use the built-in defaults.
  page_size: 100
  thread_page_size: 50
  notification_ttl: 5s

ui:
  # Optional JSONC override files.
  # theme_file: ${HOME}/.config/canopy/theme.jsonc
  # keymap_file: ${HOME}/.config/canopy/keymap.jsonc

production:
  api:
    base_url: https://chat.internal.example.com
`
