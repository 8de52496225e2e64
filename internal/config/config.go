// Package config provides YAML-based configuration loading for Leadyard.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Supported backends and drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"

	BackendOllama = "ollama"
	BackendOpenAI = "openai"
)

// Config is the top-level Leadyard configuration, loaded from leadyard.yaml.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Generation GenerationConfig `yaml:"generation"`
	Server     ServerConfig     `yaml:"server"`
	Summary    SummaryConfig    `yaml:"summary"`
	Notify     NotifyConfig     `yaml:"notify"`
	Digest     DigestConfig     `yaml:"digest"`
	Log        LogConfig        `yaml:"log"`
}

// DatabaseConfig selects the lead record store backend.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"` // sqlite file
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// GenerationConfig points at the text-generation service.
type GenerationConfig struct {
	Backend          string        `yaml:"backend"`
	Endpoint         string        `yaml:"endpoint"`
	Model            string        `yaml:"model"`
	APIKey           string        `yaml:"api_key"`
	Timeout          time.Duration `yaml:"timeout"`
	ReplyTemperature float64       `yaml:"reply_temperature"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// SummaryConfig controls the summary written when a conversation is sealed.
type SummaryConfig struct {
	Subject        string `yaml:"subject"`
	TeamName       string `yaml:"team_name"`
	ClosingMessage string `yaml:"closing_message"`
}

// NotifyConfig enables agent notifications for sealed leads. Empty values
// disable the corresponding channel.
type NotifyConfig struct {
	SlackWebhookURL     string `yaml:"slack_webhook_url"`
	DiscordWebhookID    string `yaml:"discord_webhook_id"`
	DiscordWebhookToken string `yaml:"discord_webhook_token"`
}

// DigestConfig schedules the pipeline digest posted to the notify channels.
// An empty Cron disables it.
type DigestConfig struct {
	Cron   string        `yaml:"cron"` // 5-field: minute hour dom month dow
	Window time.Duration `yaml:"window"`
}

// CronParser parses the 5-field expressions accepted by digest.cron.
var CronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// LogConfig sets the zap log level and encoding.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references, unmarshals YAML bytes and validates the
// result.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))
	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a validated configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.Database.Driver == DriverSQLite && c.Database.Path == "" {
		c.Database.Path = "leadyard.db"
	}
	if c.Database.Driver == DriverMySQL {
		if c.Database.Host == "" {
			c.Database.Host = "127.0.0.1"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
		if c.Database.User == "" {
			c.Database.User = "root"
		}
		if c.Database.Name == "" {
			c.Database.Name = "leadyard"
		}
	}

	if c.Generation.Backend == "" {
		c.Generation.Backend = BackendOllama
	}
	if c.Generation.Endpoint == "" && c.Generation.Backend == BackendOllama {
		c.Generation.Endpoint = "http://localhost:11434"
	}
	if c.Generation.Model == "" {
		c.Generation.Model = "llama3:8b"
	}
	if c.Generation.Timeout == 0 {
		c.Generation.Timeout = 60 * time.Second
	}
	if c.Generation.ReplyTemperature == 0 {
		c.Generation.ReplyTemperature = 0.3
	}

	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}

	if c.Summary.Subject == "" {
		c.Summary.Subject = "Your Property Inquiry Summary – AI Estate"
	}
	if c.Summary.TeamName == "" {
		c.Summary.TeamName = "AI Estate Team"
	}
	if c.Summary.ClosingMessage == "" {
		c.Summary.ClosingMessage = "Thank you. We've emailed you a summary. An agent will contact you shortly."
	}

	if c.Digest.Window == 0 {
		c.Digest.Window = 24 * time.Hour
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case DriverSQLite, DriverMySQL:
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported (sqlite, mysql)", c.Database.Driver))
	}
	switch c.Generation.Backend {
	case BackendOllama, BackendOpenAI:
	default:
		errs = append(errs, fmt.Sprintf("generation.backend %q is not supported (ollama, openai)", c.Generation.Backend))
	}
	if c.Generation.Backend == BackendOpenAI && c.Generation.APIKey == "" {
		errs = append(errs, "generation.api_key is required for the openai backend")
	}
	if c.Generation.Timeout < 0 {
		errs = append(errs, "generation.timeout must not be negative")
	}
	if c.Generation.ReplyTemperature < 0 || c.Generation.ReplyTemperature > 2 {
		errs = append(errs, "generation.reply_temperature must be between 0 and 2")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}
	if (c.Notify.DiscordWebhookID == "") != (c.Notify.DiscordWebhookToken == "") {
		errs = append(errs, "notify.discord_webhook_id and notify.discord_webhook_token must be set together")
	}
	if c.Digest.Cron != "" {
		if _, err := CronParser.Parse(c.Digest.Cron); err != nil {
			errs = append(errs, fmt.Sprintf("digest.cron %q: %v", c.Digest.Cron, err))
		}
		if c.Notify.SlackWebhookURL == "" && c.Notify.DiscordWebhookID == "" {
			errs = append(errs, "digest.cron requires a notify channel")
		}
	}
	if c.Digest.Window < 0 {
		errs = append(errs, "digest.window must not be negative")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level %q is not supported (debug, info, warn, error)", c.Log.Level))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
