package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server         ServerConfig         `yaml:"server"`
	Database       DatabaseConfig       `yaml:"database"`
	Slack          SlackConfig          `yaml:"slack"`
	Review         ReviewConfig         `yaml:"review"`
	Logging        LoggingConfig        `yaml:"logging"`
	AI             AIConfig             `yaml:"ai"`
	GoogleCalendar GoogleCalendarConfig `yaml:"google_calendar"`
	Schedule       string               `yaml:"schedule"`
	DataDir        string               `yaml:"data_dir"`
}

type ServerConfig struct {
	Addr                string `yaml:"addr"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
}

type DatabaseConfig struct {
	Driver              string `yaml:"driver"` // pgx or sqlite
	DSN                 string `yaml:"dsn" env:"DATABASE_URL"`
	EpisodesTable       string `yaml:"episodes_table"`
	TasksTable          string `yaml:"tasks_table"`
	QueryTimeoutSeconds int    `yaml:"query_timeout_seconds"`
}

type SlackConfig struct {
	WebhookURL     string `yaml:"webhook_url" env:"SLACK_WEBHOOK_URL"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type ReviewConfig struct {
	Timezone           string `yaml:"timezone"`
	UpcomingWindowDays int    `yaml:"upcoming_window_days"`
	RecentUpdatesLimit int    `yaml:"recent_updates_limit"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // console or json
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type AIConfig struct {
	Enabled      bool   `yaml:"enabled"`
	GeminiAPIKey string `yaml:"gemini_api_key" env:"GEMINI_API_KEY"`
	Model        string `yaml:"model"`
}

type GoogleCalendarConfig struct {
	Enabled      bool   `yaml:"enabled"`
	ClientID     string `yaml:"client_id" env:"GOOGLE_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"GOOGLE_CLIENT_SECRET"`
	TokenFile    string `yaml:"token_file"`
	CalendarID   string `yaml:"calendar_id"`
}

// Load reads .env, then the YAML file named by CONFIG_FILE (default
// config.yaml), then fills secrets from the environment. A missing default
// config.yaml is not an error; a missing explicit CONFIG_FILE is.
func Load() (*Config, error) {
	_ = godotenv.Load()

	configFile := os.Getenv("CONFIG_FILE")
	explicit := configFile != ""
	if !explicit {
		configFile = "config.yaml"
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
		data = nil
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
	}
	return cfg, nil
}

// Parse builds a Config from YAML bytes, applying environment overrides,
// defaults and validation.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	if c.Database.DSN == "" {
		c.Database.DSN = os.Getenv("DATABASE_URL")
	}
	if c.Slack.WebhookURL == "" {
		c.Slack.WebhookURL = os.Getenv("SLACK_WEBHOOK_URL")
	}
	if c.AI.GeminiAPIKey == "" {
		c.AI.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.GoogleCalendar.ClientID == "" {
		c.GoogleCalendar.ClientID = os.Getenv("GOOGLE_CLIENT_ID")
	}
	if c.GoogleCalendar.ClientSecret == "" {
		c.GoogleCalendar.ClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeoutSeconds <= 0 {
		c.Server.ReadTimeoutSeconds = 15
	}
	if c.Server.WriteTimeoutSeconds <= 0 {
		c.Server.WriteTimeoutSeconds = 60
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "pgx"
	}
	if c.Database.EpisodesTable == "" {
		c.Database.EpisodesTable = "episodes"
	}
	if c.Database.TasksTable == "" {
		c.Database.TasksTable = "calendar_tasks"
	}
	if c.Database.QueryTimeoutSeconds <= 0 {
		c.Database.QueryTimeoutSeconds = 10
	}

	if c.Slack.TimeoutSeconds <= 0 {
		c.Slack.TimeoutSeconds = 10
	}

	if c.Review.Timezone == "" {
		c.Review.Timezone = "Asia/Tokyo"
	}
	if c.Review.UpcomingWindowDays <= 0 {
		c.Review.UpcomingWindowDays = 14
	}
	if c.Review.RecentUpdatesLimit <= 0 {
		c.Review.RecentUpdatesLimit = 10
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}

	if c.AI.Model == "" {
		c.AI.Model = "gemini-2.5-flash"
	}

	if c.GoogleCalendar.TokenFile == "" {
		c.GoogleCalendar.TokenFile = "google_calendar_token.json"
	}
	if c.GoogleCalendar.CalendarID == "" {
		c.GoogleCalendar.CalendarID = "primary"
	}

	if c.Schedule == "" {
		c.Schedule = "0 0 9 * * MON" // Mondays at 9 AM
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "pgx", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q (use pgx or sqlite)", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database DSN is required (set DATABASE_URL or database.dsn)")
	}
	if !validIdentifier(c.Database.EpisodesTable) || !validIdentifier(c.Database.TasksTable) {
		return fmt.Errorf("table names may only contain letters, digits, underscores and dots")
	}
	if _, err := time.LoadLocation(c.Review.Timezone); err != nil {
		return fmt.Errorf("invalid review timezone %q: %w", c.Review.Timezone, err)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unsupported logging format %q (use console or json)", c.Logging.Format)
	}
	if c.AI.Enabled && c.AI.GeminiAPIKey == "" {
		return fmt.Errorf("Gemini API key is required when ai.enabled is set (set GEMINI_API_KEY or ai.gemini_api_key)")
	}
	if c.GoogleCalendar.Enabled {
		if c.GoogleCalendar.ClientID == "" {
			return fmt.Errorf("Google client ID is required when google_calendar.enabled is set (set GOOGLE_CLIENT_ID or google_calendar.client_id)")
		}
		if c.GoogleCalendar.ClientSecret == "" {
			return fmt.Errorf("Google client secret is required when google_calendar.enabled is set (set GOOGLE_CLIENT_SECRET or google_calendar.client_secret)")
		}
	}
	return nil
}

// Location returns the review time zone. validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Review.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func validIdentifier(name string) bool {
	if name == "" {
		return false
	}
	return strings.IndexFunc(name, func(r rune) bool {
		return !(r == '_' || r == '.' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	}) == -1
}
