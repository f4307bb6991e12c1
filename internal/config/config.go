// Package config provides YAML-based configuration loading for Ferro.
// Secrets (bot tokens, API keys) come from the environment; LoadEnv reads
// an optional .env file first.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level Ferro configuration, loaded from ferro.yaml.
type Config struct {
	Platform string         `yaml:"platform"` // "discord" or "slack"
	Database DatabaseConfig `yaml:"database"`
	Session  SessionConfig  `yaml:"session"`
	Speech   SpeechConfig   `yaml:"speech"`
	Health   HealthConfig   `yaml:"health"`
	Backup   BackupConfig   `yaml:"backup"`

	// AuthorizedUsers are seeded into the users table at migration time.
	AuthorizedUsers []string `yaml:"authorized_users"`
	AdminUsers      []string `yaml:"admin_users"`

	// Secrets, environment-only.
	DiscordBotToken string `yaml:"-"`
	SlackAppToken   string `yaml:"-"`
	SlackBotToken   string `yaml:"-"`
	SpeechAPIKey    string `yaml:"-"`
}

// DatabaseConfig selects the storage engine.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" (default) or "mysql"
	DSN    string `yaml:"dsn"`    // file path for sqlite, full DSN for mysql
}

// SessionConfig holds the session-windowing policy.
type SessionConfig struct {
	TimeoutHours  int    `yaml:"timeout_hours"`  // default 3
	SweepSchedule string `yaml:"sweep_schedule"` // 5-field cron, default hourly
}

// SpeechConfig holds the transcription and parsing model settings. The
// endpoint is any OpenAI-compatible API.
type SpeechConfig struct {
	BaseURL      string  `yaml:"base_url"`
	WhisperModel string  `yaml:"whisper_model"`
	LLMModel     string  `yaml:"llm_model"`
	Temperature  float32 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
}

// HealthConfig holds the health/metrics HTTP server settings.
type HealthConfig struct {
	Port int `yaml:"port"`
}

// BackupConfig holds backup archive settings.
type BackupConfig struct {
	Dir string `yaml:"dir"`
}

// LoadEnv reads an optional .env file into the process environment.
// A missing file is not an error.
func LoadEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load env %s: %w", path, err)
	}
	return nil
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	cfg.readSecrets()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Platform == "" {
		c.Platform = "discord"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite" {
		c.Database.DSN = "ferro.db"
	}
	if c.Session.TimeoutHours == 0 {
		c.Session.TimeoutHours = 3
	}
	if c.Session.SweepSchedule == "" {
		c.Session.SweepSchedule = "0 * * * *"
	}
	if c.Speech.WhisperModel == "" {
		c.Speech.WhisperModel = "whisper-large-v3"
	}
	if c.Speech.LLMModel == "" {
		c.Speech.LLMModel = "llama-3.1-8b-instant"
	}
	if c.Speech.Temperature == 0 {
		c.Speech.Temperature = 0.1
	}
	if c.Speech.MaxTokens == 0 {
		c.Speech.MaxTokens = 8000
	}
	if c.Health.Port == 0 {
		c.Health.Port = 8080
	}
	if c.Backup.Dir == "" {
		c.Backup.Dir = "backups"
	}
}

// readSecrets pulls secrets from the process environment.
func (c *Config) readSecrets() {
	c.DiscordBotToken = os.Getenv("DISCORD_BOT_TOKEN")
	c.SlackAppToken = os.Getenv("SLACK_APP_TOKEN")
	c.SlackBotToken = os.Getenv("SLACK_BOT_TOKEN")
	c.SpeechAPIKey = os.Getenv("SPEECH_API_KEY")
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Platform {
	case "discord", "slack":
	default:
		errs = append(errs, fmt.Sprintf("platform %q is not supported (discord, slack)", c.Platform))
	}
	if c.Database.Driver == "mysql" && c.Database.DSN == "" {
		errs = append(errs, "database.dsn is required for mysql")
	}
	if c.Session.TimeoutHours < 1 || c.Session.TimeoutHours > 24 {
		errs = append(errs, "session.timeout_hours must be between 1 and 24")
	}
	for i, id := range c.AuthorizedUsers {
		if strings.TrimSpace(id) == "" {
			errs = append(errs, fmt.Sprintf("authorized_users[%d] is empty", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
