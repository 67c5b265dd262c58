package config

import (
	"fmt"
	"maps"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// DefaultConfigPath is where the daemon looks for its configuration
const DefaultConfigPath = "~/.config/obs-indicator/config.toml"

type Config struct {
	AppName        string            `toml:"app_name"`
	SocketPath     string            `toml:"socket_path"`
	AssetDir       string            `toml:"asset_dir"`
	LogFile        string            `toml:"log_file"`
	Debug          bool              `toml:"debug"`
	PollIntervalMs int               `toml:"poll_interval_ms"`
	IconCacheSize  int               `toml:"icon_cache_size"`
	DBus           DBusConfig        `toml:"dbus"`
	Watch          WatchConfig       `toml:"watch"`
	Appearance     map[string]string `toml:"appearance"`
}

type DBusConfig struct {
	Enabled bool `toml:"enabled"`
}

type WatchConfig struct {
	Enabled    bool `toml:"enabled"`
	DebounceMs int  `toml:"debounce_ms"`
}

// PollInterval returns the engine's base tick delay
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// Debounce returns the quiet period the watcher waits for before reloading
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Watch.DebounceMs) * time.Millisecond
}

// AppearanceCopy returns a copy of the raw appearance settings
func (c *Config) AppearanceCopy() map[string]string {
	cp := maps.Clone(c.Appearance)
	if cp == nil {
		cp = map[string]string{}
	}
	return cp
}

var DefaultConfig = Config{
	AppName:        "obs-indicator",
	SocketPath:     "/tmp/obs_indicator_socket",
	AssetDir:       "~/.local/share/obs-indicator/image",
	LogFile:        "",
	Debug:          false,
	PollIntervalMs: 125,
	IconCacheSize:  18,
	DBus: DBusConfig{
		Enabled: true,
	},
	Watch: WatchConfig{
		Enabled:    true,
		DebounceMs: 200,
	},
	Appearance: map[string]string{
		"Size":           "Medium",
		"Position":       "NW",
		"RecordingColor": "Red",
		"StreamingColor": "Green",
		"Duration":       "Always",
	},
}

// Default returns a copy of DefaultConfig that is safe to modify
func Default() *Config {
	cfg := DefaultConfig
	cfg.Appearance = maps.Clone(DefaultConfig.Appearance)
	cfg.expandPaths()
	return &cfg
}

func LoadConfig(path string) (*Config, error) {
	expandedPath := expandPath(path)

	if _, err := os.Stat(expandedPath); os.IsNotExist(err) {
		return Default(), nil
	}

	data, err := os.ReadFile(expandedPath)
	if err != nil {
		return nil, err
	}

	// Unset keys keep their defaults
	cfg := Default()
	cfg.Appearance = nil
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", expandedPath, err)
	}
	if cfg.Appearance == nil {
		cfg.Appearance = maps.Clone(DefaultConfig.Appearance)
	}

	cfg.expandPaths()

	return cfg, nil
}

func LoadAndValidateConfig(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) expandPaths() {
	c.SocketPath = expandPath(c.SocketPath)
	c.AssetDir = expandPath(c.AssetDir)
	c.LogFile = expandPath(c.LogFile)
}

// ExpandPath resolves a leading ~ to the current user's home directory
func ExpandPath(path string) string {
	return expandPath(path)
}

func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		usr, err := user.Current()
		if err == nil {
			return filepath.Join(usr.HomeDir, path[1:])
		}
	}
	return path
}

func SaveConfig(cfg *Config, path string) error {
	expandedPath := expandPath(path)

	dir := filepath.Dir(expandedPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(expandedPath, data, 0644)
}

// Validate checks the daemon settings. Appearance values are not checked
// here: unrecognised values fall back to defaults when resolved.
func (c *Config) Validate() error {
	if err := c.validatePoll(); err != nil {
		return err
	}
	if err := c.validateIcons(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	if c.SocketPath == "" {
		return fmt.Errorf("socket_path must not be empty")
	}
	if c.AssetDir == "" {
		return fmt.Errorf("asset_dir must not be empty")
	}
	return nil
}

func (c *Config) validatePoll() error {
	if c.PollIntervalMs < 10 || c.PollIntervalMs > 5000 {
		return fmt.Errorf("invalid poll_interval_ms: %d (must be 10-5000ms)", c.PollIntervalMs)
	}
	return nil
}

func (c *Config) validateIcons() error {
	if c.IconCacheSize < 6 || c.IconCacheSize > 1000 {
		return fmt.Errorf("invalid icon_cache_size: %d (must be 6-1000)", c.IconCacheSize)
	}
	return nil
}

func (c *Config) validateWatch() error {
	if c.Watch.DebounceMs < 0 || c.Watch.DebounceMs > 10000 {
		return fmt.Errorf("invalid debounce_ms: %d (must be 0-10000ms)", c.Watch.DebounceMs)
	}
	return nil
}

func ValidateConfig(path string) error {
	_, err := LoadAndValidateConfig(path)
	return err
}
