package bot

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chaynik/teabot/pkg/policy"
)

// Config holds bot configuration, loaded once at startup and treated as
// immutable afterwards.
type Config struct {
	Token     string  `yaml:"token"`      // Telegram bot token
	GroupID   int64   `yaml:"group_id"`   // the one source chat commands are accepted from
	ChannelID int64   `yaml:"channel_id"` // target channel posts are forwarded to
	Admins    []int64 `yaml:"admins"`     // numeric IDs allowed to run admin commands

	DailyLimit      int    `yaml:"daily_limit"`      // max posts per quota cycle
	ResetHour       int    `yaml:"reset_hour"`       // local hour the quota cycle rolls over
	CooldownMinutes int    `yaml:"cooldown_minutes"` // minimum gap between any two posts
	Timezone        string `yaml:"timezone"`         // IANA zone name for all civil-time math

	DBPath      string `yaml:"db_path"`
	QuotesFile  string `yaml:"quotes_file"`  // one quote per line; empty = built-in list
	MetricsAddr string `yaml:"metrics_addr"` // /metrics bind address, empty disables

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DailyLimit:      5,
		ResetHour:       4,
		CooldownMinutes: 60,
		Timezone:        "Europe/Moscow",
		DBPath:          "data/forwards.db",
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path) //nolint:gosec // path from user-provided CLI flag
	if err != nil {
		return Config{}, fmt.Errorf("bot: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("bot: parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks the fields nothing can run without.
func (c Config) Validate() error {
	if c.Token == "" {
		return errors.New("bot: config: token must be set")
	}
	if c.GroupID == 0 {
		return errors.New("bot: config: group_id must be set")
	}
	if c.ChannelID == 0 {
		return errors.New("bot: config: channel_id must be set")
	}
	if c.DailyLimit <= 0 {
		return errors.New("bot: config: daily_limit must be positive")
	}
	if c.ResetHour < 0 || c.ResetHour > 23 {
		return errors.New("bot: config: reset_hour must be between 0 and 23")
	}
	if c.CooldownMinutes < 0 {
		return errors.New("bot: config: cooldown_minutes must not be negative")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("bot: config: %w", err)
	}
	return nil
}

// Location resolves the configured timezone.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// Rules converts the config into the immutable policy rules value shared by
// the engine and the statistics reporter.
func (c Config) Rules(loc *time.Location) policy.Rules {
	admins := make(map[int64]bool, len(c.Admins))
	for _, id := range c.Admins {
		admins[id] = true
	}
	return policy.Rules{
		DailyLimit: c.DailyLimit,
		Cooldown:   time.Duration(c.CooldownMinutes) * time.Minute,
		ResetHour:  c.ResetHour,
		Admins:     admins,
		Location:   loc,
	}
}
