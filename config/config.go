// Package config loads the monitor configuration file and the Slack secrets
// that accompany it.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/lagren/statusguard/monitor"
	"github.com/lagren/statusguard/probe"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Default values for optional settings.
const (
	DefaultProbeTimeout = 30 * time.Second
	DefaultListen       = "127.0.0.1:8080"
	DefaultStorage      = StorageFile
	DefaultSQLitePath   = "statusguard.db"

	StorageFile   = "file"
	StorageSQLite = "sqlite"
)

// ErrMissingField is wrapped by every error caused by an absent required key.
var ErrMissingField = errors.New("missing required field")

// Config is the parsed configuration file. Durations are given in seconds,
// matching the format of the bot's original config.json.
type Config struct {
	ChannelID       string          `yaml:"channel_id"`
	PingInterval    *float64        `yaml:"ping_interval"`
	EscalationDelay float64         `yaml:"escalation_delay"`
	TickFloor       float64         `yaml:"tick_floor"`
	ProbeTimeout    float64         `yaml:"probe_timeout"`
	DataDir         string          `yaml:"data_dir"`
	Storage         string          `yaml:"storage"`
	SQLitePath      string          `yaml:"sqlite_path"`
	Listen          string          `yaml:"listen"`
	LogLevel        string          `yaml:"log_level"`
	Services        []probe.Service `yaml:"services"`

	// Secrets never live in the config file.
	BotToken   string `yaml:"-"`
	SigningKey string `yaml:"-"`
}

// Load reads the file at path (YAML, or JSON which is a subset of it),
// fills defaults and validates required fields. Slack secrets are read from
// the environment after loading an optional .env file next to the working
// directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	cfg.BotToken = os.Getenv("SLACK_BOT_TOKEN")
	cfg.SigningKey = os.Getenv("SLACK_SIGNING_KEY")

	return cfg, nil
}

// Parse decodes and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	applyDefaults(cfg)

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.EscalationDelay <= 0 {
		cfg.EscalationDelay = monitor.DefaultEscalationDelay.Seconds()
	}
	if cfg.TickFloor <= 0 {
		cfg.TickFloor = monitor.DefaultTickFloor.Seconds()
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout.Seconds()
	}
	if cfg.Storage == "" {
		cfg.Storage = DefaultStorage
	}
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = filepath.Join(cfg.DataDir, DefaultSQLitePath)
	}
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = logrus.InfoLevel.String()
	}
}

func validate(cfg *Config) error {
	if cfg.ChannelID == "" {
		return fmt.Errorf("%w: channel_id", ErrMissingField)
	}
	if cfg.PingInterval == nil {
		return fmt.Errorf("%w: ping_interval", ErrMissingField)
	}
	if *cfg.PingInterval < 0 {
		return fmt.Errorf("ping_interval must not be negative")
	}
	if cfg.Services == nil {
		return fmt.Errorf("%w: services", ErrMissingField)
	}

	seen := make(map[string]bool, len(cfg.Services))
	for i, svc := range cfg.Services {
		if svc.Name == "" {
			return fmt.Errorf("%w: services[%d].name", ErrMissingField, i)
		}
		if svc.URL == "" {
			return fmt.Errorf("%w: services[%d].url", ErrMissingField, i)
		}
		if seen[svc.Name] {
			return fmt.Errorf("services[%d]: duplicate name %q", i, svc.Name)
		}
		seen[svc.Name] = true
	}

	switch cfg.Storage {
	case "", StorageFile, StorageSQLite:
	default:
		return fmt.Errorf("storage %q unknown: want %s|%s", cfg.Storage, StorageFile, StorageSQLite)
	}

	if cfg.LogLevel != "" {
		if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
	}

	return nil
}

// RequireSlack reports an error when the secrets needed to talk to Slack
// are absent.
func (c *Config) RequireSlack() error {
	if c.BotToken == "" {
		return fmt.Errorf("config: %w: SLACK_BOT_TOKEN", ErrMissingField)
	}
	if c.SigningKey == "" {
		return fmt.Errorf("config: %w: SLACK_SIGNING_KEY", ErrMissingField)
	}
	return nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Interval is the extra wait after every full probe pass.
func (c *Config) Interval() time.Duration { return seconds(*c.PingInterval) }

// Escalation is the delay before an unacknowledged outage is auto published.
func (c *Config) Escalation() time.Duration { return seconds(c.EscalationDelay) }

// Floor is the fixed scheduler tick that precedes the next probe pass.
func (c *Config) Floor() time.Duration { return seconds(c.TickFloor) }

// Timeout bounds a single probe request.
func (c *Config) Timeout() time.Duration { return seconds(c.ProbeTimeout) }

// Level returns the parsed log level. Parse has already validated it.
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// ServiceNames returns configured names in config order.
func (c *Config) ServiceNames() []string {
	names := make([]string, 0, len(c.Services))
	for _, svc := range c.Services {
		names = append(names, svc.Name)
	}
	return names
}
