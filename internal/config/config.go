// Package config loads and saves the dealdates TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all dealdates configuration.
type Config struct {
	General    GeneralConfig                `toml:"general"`
	Store      StoreConfig                  `toml:"store"`
	Serve      ServeConfig                  `toml:"serve"`
	Calendar   CalendarConfig               `toml:"calendar"`
	Appearance AppearanceConfig             `toml:"appearance"`
	Milestones map[string]MilestoneOverride `toml:"milestones,omitempty"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	Timezone     string `toml:"timezone,omitempty"`
	UpcomingDays int    `toml:"upcoming_days"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string `toml:"driver"` // "sqlite" or "postgres"
	Path   string `toml:"path,omitempty"`
	DSN    string `toml:"dsn,omitempty"`
}

// ServeConfig holds HTTP daemon settings.
type ServeConfig struct {
	Addr        string `toml:"addr"`
	IntervalSec int    `toml:"interval_sec"`
}

// CalendarConfig holds ICS export settings.
type CalendarConfig struct {
	AlarmDays    int  `toml:"alarm_days"`
	IncludeTasks bool `toml:"include_tasks"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// MilestoneOverride adjusts one catalog definition. Nil fields keep the
// built-in value.
type MilestoneOverride struct {
	OffsetDays     *int  `toml:"offset_days,omitempty"`
	BusinessDays   *bool `toml:"business_days,omitempty"`
	PushOffWeekend *bool `toml:"push_off_weekend,omitempty"`
}

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			UpcomingDays: 14,
		},
		Store: StoreConfig{
			Driver: DriverSQLite,
		},
		Serve: ServeConfig{
			Addr:        "127.0.0.1:8787",
			IntervalSec: 300,
		},
		Calendar: CalendarConfig{
			AlarmDays: 1,
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "dealdates")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "dealdates")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DataDir returns the XDG-compliant data directory.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "dealdates")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "dealdates")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads the config at path, returning defaults if it doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path is the user's own config
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at use.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case "", DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.General.Timezone != "" {
		if _, err := time.LoadLocation(c.General.Timezone); err != nil {
			return fmt.Errorf("config: timezone %q: %w", c.General.Timezone, err)
		}
	}
	if c.Serve.IntervalSec < 0 || c.General.UpcomingDays < 0 {
		return fmt.Errorf("config: negative interval or window")
	}
	return nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	return SaveTo(ConfigPath(), cfg)
}

// SaveTo writes the config to path.
func SaveTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // path is the user's own config
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

// Location returns the configured time zone, or the local zone.
func (c Config) Location() *time.Location {
	if c.General.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.General.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// DBPath returns the SQLite path, honoring DEALDATES_DB over the config.
func (c Config) DBPath() string {
	if p := os.Getenv("DEALDATES_DB"); p != "" {
		return p
	}
	if c.Store.Path != "" {
		return c.Store.Path
	}
	return filepath.Join(DataDir(), "dealdates.db")
}

// PostgresDSN returns the Postgres DSN, honoring DEALDATES_PG_DSN over the
// config.
func (c Config) PostgresDSN() string {
	if dsn := os.Getenv("DEALDATES_PG_DSN"); dsn != "" {
		return dsn
	}
	return c.Store.DSN
}

// PollInterval returns the daemon refresh interval.
func (c Config) PollInterval() time.Duration {
	if c.Serve.IntervalSec <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Serve.IntervalSec) * time.Second
}
