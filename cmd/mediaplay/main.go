package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/noediv/mediaplay/internal/config"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile   string
	logLevel  string
	noColor   bool
	debugMode bool

	// Global config and logger. cfg is replaced, never mutated, once the
	// config watcher runs; read it through settings.
	cfgMu  sync.RWMutex
	cfg    *config.Config
	logger *slog.Logger
)

// settings returns the current configuration. Callers must not modify it.
func settings() *config.Config {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	return cfg
}

// replaceSettings installs a reloaded config, keeping command-line overrides
func replaceSettings(next *config.Config) {
	cfgMu.Lock()
	defer cfgMu.Unlock()
	next.Logging = cfg.Logging
	next.Advanced.Debug = next.Advanced.Debug || debugMode
	cfg = next
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mediaplay",
	Short: "Resilient terminal player for media served by a transcoding gateway",
	Long: `mediaplay streams files from a media gateway that exposes a raw endpoint
and a server-side converted endpoint.

It probes the source before committing a player, watches playback for
failure and falls back between the mpv and ffplay engines and between raw
and converted delivery, with cache-busted retries.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// config init must work without a valid config
		if cmd.Name() == "init" && cmd.Parent() != nil && cmd.Parent().Name() == "config" {
			return nil
		}

		if err := config.InitializeDirs(); err != nil {
			return fmt.Errorf("failed to initialize directories: %w", err)
		}

		var err error
		var v *viper.Viper
		cfg, v, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if debugMode {
			cfg.Advanced.Debug = true
			if logLevel == "" {
				cfg.Logging.Level = "debug"
			}
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if noColor {
			cfg.Logging.Color = false
		}

		logger, err = config.InitLogger(&cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if v.ConfigFileUsed() != "" {
			watchConfig(v)
		}
		return nil
	},
}

// watchConfig reloads tunables when the config file changes. Settings read
// at session start apply to the next session.
func watchConfig(v *viper.Viper) {
	v.OnConfigChange(func(e fsnotify.Event) {
		logger.Info("config file changed", "name", e.Name, "op", e.Op.String())
		next, err := config.Reload(v)
		if err != nil {
			logger.Error("failed to reload config, keeping previous values", "error", err)
			return
		}
		replaceSettings(next)
		logger.Debug("config reloaded")
	})
	v.WatchConfig()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/mediaplay/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored log output")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug mode (verbose logging, player output)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(openCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mediaplay version %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := cfgFile
		if configPath == "" {
			configPath = filepath.Join(config.GetConfigDir(), "config.yaml")
		}

		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s", configPath)
		}
		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		if err := config.SaveDefaultConfig(configPath); err != nil {
			return fmt.Errorf("failed to save default configuration: %w", err)
		}

		fmt.Printf("Default configuration generated successfully at: %s\n", configPath)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, key := range config.Keys() {
			fmt.Printf("%-32s %s\n", key, showValue(key))
		}
		return nil
	},
}

// showValue renders the effective value of a key from the loaded config
func showValue(key string) string {
	cfg := settings()
	values := map[string]any{
		"gateway.base_url":              cfg.Gateway.BaseURL,
		"gateway.timeout":               cfg.Gateway.Timeout,
		"gateway.max_retries":           cfg.Gateway.MaxRetries,
		"gateway.user_agent":            cfg.Gateway.UserAgent,
		"probe.timeout":                 cfg.Probe.Timeout,
		"player.engine":                 cfg.Player.Engine,
		"player.mpv_path":               cfg.Player.MPVPath,
		"player.ffplay_path":            cfg.Player.FFplayPath,
		"player.load_user_config":       cfg.Player.LoadUserConfig,
		"player.settle":                 cfg.Player.Settle,
		"playback.auto_engine_fallback": cfg.Playback.AutoEngineFallback,
		"playback.load_timeout":         cfg.Playback.LoadTimeout,
		"logging.level":                 cfg.Logging.Level,
		"logging.format":                cfg.Logging.Format,
		"logging.file":                  cfg.Logging.File,
		"logging.max_size":              cfg.Logging.MaxSize,
		"logging.max_backups":           cfg.Logging.MaxBackups,
		"logging.max_age":               cfg.Logging.MaxAge,
		"logging.compress":              cfg.Logging.Compress,
		"logging.color":                 cfg.Logging.Color,
		"advanced.debug":                cfg.Advanced.Debug,
		"advanced.clipboard_command":    cfg.Advanced.ClipboardCommand,
	}
	value, ok := values[key]
	if !ok {
		return "?"
	}
	s := fmt.Sprint(value)
	if strings.TrimSpace(s) == "" {
		return `""`
	}
	return s
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Display configuration file path",
	Run: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			fmt.Println(cfgFile)
		} else {
			fmt.Println(filepath.Join(config.GetConfigDir(), "config.yaml"))
		}
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
}
