// Package config loads runner configuration from file, environment and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/wippyai/wasm-clipboard/errors"
	"github.com/wippyai/wasm-clipboard/provider"
)

const (
	// DefaultConfigDir is the default directory for config files, relative to $HOME
	DefaultConfigDir = ".config/wasm-clipboard"
	// DefaultConfigName is the default config file name (without extension)
	DefaultConfigName = "config"
	// EnvPrefix prefixes environment overrides, e.g. WASM_CLIPBOARD_PROVIDER_NAME
	EnvPrefix = "WASM_CLIPBOARD"
)

// Config represents the complete runner configuration
type Config struct {
	Provider ProviderConfig `mapstructure:"provider"`
	Host     HostConfig     `mapstructure:"host"`
	Runtime  RuntimeConfig  `mapstructure:"runtime"`
	Log      LogConfig      `mapstructure:"log"`
}

// ProviderConfig selects and configures the host clipboard
type ProviderConfig struct {
	Name      string      `mapstructure:"name"`
	Initial   string      `mapstructure:"initial"`
	Sensitive bool        `mapstructure:"sensitive"`
	OSC52     OSC52Config `mapstructure:"osc52"`
}

// OSC52Config configures the terminal clipboard provider
type OSC52Config struct {
	Force  bool `mapstructure:"force"`
	Tmux   bool `mapstructure:"tmux"`
	Screen bool `mapstructure:"screen"`
	Limit  int  `mapstructure:"limit"`
}

// HostConfig names the guest-facing imports and exports
type HostConfig struct {
	Module   string `mapstructure:"module"`
	Callback string `mapstructure:"callback"`
}

// RuntimeConfig configures the wasm runtime
type RuntimeConfig struct {
	MemoryLimitPages uint32 `mapstructure:"memory_limit_pages"`
	WASI             bool   `mapstructure:"wasi"`
}

// LogConfig configures diagnostics output
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Settings converts the provider section into provider.Settings.
func (p ProviderConfig) Settings() provider.Settings {
	s := provider.Settings{
		Initial:   p.Initial,
		Sensitive: p.Sensitive,
		Force:     p.OSC52.Force,
		Limit:     p.OSC52.Limit,
	}
	switch {
	case p.OSC52.Tmux:
		s.Mux = provider.MuxTmux
	case p.OSC52.Screen:
		s.Mux = provider.MuxScreen
	}
	return s
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider.name", "system")
	v.SetDefault("provider.initial", "")
	v.SetDefault("provider.sensitive", false)
	v.SetDefault("provider.osc52.force", false)
	v.SetDefault("provider.osc52.tmux", false)
	v.SetDefault("provider.osc52.screen", false)
	v.SetDefault("provider.osc52.limit", 0)
	v.SetDefault("host.module", "clipboard")
	v.SetDefault("host.callback", "get_clipboard_text_raw_callback")
	v.SetDefault("runtime.memory_limit_pages", 0)
	v.SetDefault("runtime.wasi", true)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// Load loads configuration from file, environment variables, and defaults.
// Configuration precedence (highest to lowest):
// 1. Environment variables (prefixed with WASM_CLIPBOARD_)
// 2. Config file (~/.config/wasm-clipboard/config.yaml)
// 3. Default values
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName(DefaultConfigName)
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, DefaultConfigDir))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "read config file")
		}
	}

	return decode(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "read config file "+path)
	}

	return decode(v)
}

// Default returns the configuration with no file and no environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := decode(v)
	if err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return cfg
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for unusable values
func (c *Config) Validate() error {
	if !provider.IsRegistered(c.Provider.Name) {
		return errors.InvalidInput(errors.PhaseConfig,
			fmt.Sprintf("unknown provider %q (available: %s)", c.Provider.Name, strings.Join(provider.Names(), ", ")))
	}
	if c.Provider.OSC52.Tmux && c.Provider.OSC52.Screen {
		return errors.InvalidInput(errors.PhaseConfig, "osc52.tmux and osc52.screen are mutually exclusive")
	}
	if c.Provider.OSC52.Limit < 0 {
		return errors.InvalidInput(errors.PhaseConfig, "osc52.limit must not be negative")
	}
	if strings.TrimSpace(c.Host.Module) == "" {
		return errors.InvalidInput(errors.PhaseConfig, "host.module must not be empty")
	}
	if strings.TrimSpace(c.Host.Callback) == "" {
		return errors.InvalidInput(errors.PhaseConfig, "host.callback must not be empty")
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("unknown log format %q", c.Log.Format))
	}
	return nil
}
