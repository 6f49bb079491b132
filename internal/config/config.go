// Package config loads the notchbridge configuration from config.toml.
// Every field has a working default; a missing file is not an error.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/qingchang/notchbridge/internal/paths"
)

// Config is the top-level notchbridge configuration.
type Config struct {
	Socket string      `toml:"socket"`
	Store  StoreConfig `toml:"store"`
	Wait   WaitConfig  `toml:"wait"`
}

// StoreConfig locates the pending-action backing and lock files.
type StoreConfig struct {
	Path     string `toml:"path"`
	LockPath string `toml:"lock_path"`
}

// WaitConfig controls the interactive tool's blocking wait: the store is
// polled once per PollInterval, at most MaxPolls times.
type WaitConfig struct {
	PollInterval string `toml:"poll_interval"`
	MaxPolls     int    `toml:"max_polls"`
}

// Load reads the config file at the fixed path and returns the parsed
// Config with defaults filled in.
func Load() (*Config, error) {
	return LoadFrom(paths.ConfigFile())
}

// LoadFrom reads and parses a config file at the given path. If the file
// does not exist, the defaults are returned without error.
func LoadFrom(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	fillDefaults(cfg)
	return cfg, nil
}

// Validate checks the parsed values that cannot be verified by the TOML
// decoder alone.
func Validate(cfg *Config) error {
	if _, err := cfg.PollInterval(); err != nil {
		return err
	}
	if cfg.Wait.MaxPolls < 1 {
		return fmt.Errorf("wait.max_polls must be at least 1, got %d", cfg.Wait.MaxPolls)
	}
	return nil
}

// PollInterval parses wait.poll_interval.
func (c *Config) PollInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Wait.PollInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid wait.poll_interval %q: %w", c.Wait.PollInterval, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("wait.poll_interval must be positive, got %q", c.Wait.PollInterval)
	}
	return d, nil
}

func defaults() *Config {
	return &Config{
		Socket: paths.SocketPath(),
		Store: StoreConfig{
			Path:     paths.PendingStorePath(),
			LockPath: paths.PendingLockPath(),
		},
		Wait: WaitConfig{
			PollInterval: "1s",
			MaxPolls:     50,
		},
	}
}

func fillDefaults(cfg *Config) {
	def := defaults()
	if cfg.Socket == "" {
		cfg.Socket = def.Socket
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = def.Store.Path
	}
	if cfg.Store.LockPath == "" {
		cfg.Store.LockPath = def.Store.LockPath
	}
	if cfg.Wait.PollInterval == "" {
		cfg.Wait.PollInterval = def.Wait.PollInterval
	}
	if cfg.Wait.MaxPolls == 0 {
		cfg.Wait.MaxPolls = def.Wait.MaxPolls
	}
}
