// Package config loads mediaplay's configuration with Viper from defaults,
// an optional YAML file and MEDIAPLAY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/noediv/mediaplay/internal/gateway"
	"github.com/noediv/mediaplay/internal/player"
)

const appName = "mediaplay"

// Config holds all configuration for the application
type Config struct {
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Probe    ProbeConfig    `mapstructure:"probe"`
	Player   PlayerConfig   `mapstructure:"player"`
	Playback PlaybackConfig `mapstructure:"playback"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Advanced AdvancedConfig `mapstructure:"advanced"`
}

// GatewayConfig describes the media gateway
type GatewayConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	UserAgent  string        `mapstructure:"user_agent"`
}

// ProbeConfig bounds the reachability probe
type ProbeConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// PlayerConfig selects and configures the playback engines
type PlayerConfig struct {
	Engine         string        `mapstructure:"engine"` // rich, native
	MPVPath        string        `mapstructure:"mpv_path"`
	FFplayPath     string        `mapstructure:"ffplay_path"`
	LoadUserConfig bool          `mapstructure:"load_user_config"`
	Settle         time.Duration `mapstructure:"settle"` // ffplay startup grace before it counts as playing
}

// PlaybackConfig tunes the fallback ladder
type PlaybackConfig struct {
	AutoEngineFallback bool          `mapstructure:"auto_engine_fallback"`
	LoadTimeout        time.Duration `mapstructure:"load_timeout"` // 0 disables the watchdog
}

// LoggingConfig configures the slog logger and its rotation
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // text, json
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
	Color      bool   `mapstructure:"color"`
}

// AdvancedConfig holds debugging switches
type AdvancedConfig struct {
	Debug bool `mapstructure:"debug"`
	// ClipboardCommand reads the copied text on stdin, e.g. "wl-copy".
	// Empty uses the system clipboard.
	ClipboardCommand string `mapstructure:"clipboard_command"`
}

// defaultSettings is the single source of defaults. Durations are strings so
// the same map serves both Viper and the generated config file.
func defaultSettings() map[string]map[string]any {
	return map[string]map[string]any{
		"gateway": {
			"base_url":    "http://localhost:8000",
			"timeout":     "30s",
			"max_retries": 3,
			"user_agent":  appName + "/1.0",
		},
		"probe": {
			"timeout": "5s",
		},
		"player": {
			"engine":           string(player.EngineRich),
			"mpv_path":         "",
			"ffplay_path":      "",
			"load_user_config": false,
			"settle":           "1.5s",
		},
		"playback": {
			"auto_engine_fallback": false,
			"load_timeout":         "0s",
		},
		"logging": {
			"level":       "info",
			"format":      "text",
			"file":        "",
			"max_size":    10,
			"max_backups": 3,
			"max_age":     28,
			"compress":    true,
			"color":       true,
		},
		"advanced": {
			"debug":             false,
			"clipboard_command": "",
		},
	}
}

// SetDefaults registers default values for every key
func SetDefaults(v *viper.Viper) {
	for section, values := range defaultSettings() {
		for key, value := range values {
			v.SetDefault(section+"."+key, value)
		}
	}
}

// Load reads configuration from cfgFile, or from config.yaml in the config
// directory when cfgFile is empty. A missing default file is not an error.
// Environment variables override the file: MEDIAPLAY_GATEWAY_BASE_URL sets
// gateway.base_url.
func Load(cfgFile string) (*Config, *viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(GetConfigDir())
	}

	v.SetEnvPrefix(strings.ToUpper(appName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

// Reload re-reads v into a fresh Config, used on file change
func Reload(v *viper.Viper) (*Config, error) {
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if _, err := gateway.NewEndpoints(c.Gateway.BaseURL); err != nil {
		return fmt.Errorf("gateway.base_url: %w", err)
	}
	if c.Gateway.Timeout <= 0 {
		return fmt.Errorf("gateway.timeout must be positive")
	}
	if c.Gateway.MaxRetries < 0 {
		return fmt.Errorf("gateway.max_retries must not be negative")
	}
	if c.Probe.Timeout <= 0 {
		return fmt.Errorf("probe.timeout must be positive")
	}
	if _, err := player.ParseEngineKind(c.Player.Engine); err != nil {
		return fmt.Errorf("player.engine: %w", err)
	}
	if c.Playback.LoadTimeout < 0 {
		return fmt.Errorf("playback.load_timeout must not be negative")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}
	return nil
}

// EngineKind returns the configured default engine
func (c *PlayerConfig) EngineKind() player.EngineKind {
	kind, err := player.ParseEngineKind(c.Engine)
	if err != nil {
		return player.EngineRich
	}
	return kind
}

// SaveDefaultConfig writes the default configuration as YAML to path
func SaveDefaultConfig(path string) error {
	data, err := yaml.Marshal(defaultSettings())
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	header := "# mediaplay configuration\n# Every key can be overridden with MEDIAPLAY_<SECTION>_<KEY>.\n\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Keys lists every configuration key in sorted order
func Keys() []string {
	var keys []string
	for section, values := range defaultSettings() {
		for key := range values {
			keys = append(keys, section+"."+key)
		}
	}
	sort.Strings(keys)
	return keys
}

// GetConfigDir returns $XDG_CONFIG_HOME/mediaplay, falling back to ~/.config/mediaplay
func GetConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, appName)
	}
	return filepath.Join(".", "."+appName)
}

// getStateDir returns the base directory for logs
func getStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state")
	}
	return os.TempDir()
}

// InitializeDirs creates the config and state directories
func InitializeDirs() error {
	for _, dir := range []string{GetConfigDir(), filepath.Join(getStateDir(), appName)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}
