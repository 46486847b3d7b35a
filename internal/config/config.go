// Package config provides YAML-based configuration loading for Switchboard.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Switchboard configuration, loaded from config.yaml.
type Config struct {
	Owner    string         `yaml:"owner"`
	Provider ProviderConfig `yaml:"provider"`
	Workflow WorkflowConfig `yaml:"workflow"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	DB       DBConfig       `yaml:"db"`
	Notify   NotifyConfig   `yaml:"notify"`
	Sync     SyncConfig     `yaml:"sync"`
	Server   ServerConfig   `yaml:"server"`
}

// ProviderConfig holds connection settings for the remote voice-assistant provider.
type ProviderConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"` // may also come from SWITCHBOARD_API_KEY or an interactive prompt
}

// WorkflowConfig holds the workflow-automation endpoint that receives
// outbound action payloads.
type WorkflowConfig struct {
	URL string `yaml:"url"`
}

// DispatchConfig tunes outbound dispatch behavior.
type DispatchConfig struct {
	TimeoutMs           int    `yaml:"timeout_ms"`
	DefaultModel        string `yaml:"default_model"`
	DefaultVoice        string `yaml:"default_voice"`
	FallbackAssistantID string `yaml:"fallback_assistant_id"`
	CallerNumber        string `yaml:"caller_number"` // caller-identity tag for telephony routing
}

// DBConfig selects the local store backend. The sqlite driver is the
// default; mysql is used for shared server deployments.
type DBConfig struct {
	Driver   string `yaml:"driver"` // "sqlite" or "mysql"
	Path     string `yaml:"path"`   // sqlite file path
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
}

// NotifyConfig configures operator notification channels.
type NotifyConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
}

// SlackConfig holds Slack notifier credentials.
type SlackConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// DiscordConfig holds Discord notifier credentials.
type DiscordConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// SyncConfig controls the periodic catalog sync loop.
type SyncConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"` // 5-field cron expression
}

// ServerConfig holds settings for the dashboard API server.
type ServerConfig struct {
	Port int `yaml:"port"`
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
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Provider.APIKey == "" {
		c.Provider.APIKey = os.Getenv("SWITCHBOARD_API_KEY")
	}
	if c.Dispatch.TimeoutMs == 0 {
		c.Dispatch.TimeoutMs = 8000
	}
	if c.Dispatch.DefaultModel == "" {
		c.Dispatch.DefaultModel = "gpt-4o-mini"
	}
	if c.Dispatch.DefaultVoice == "" {
		c.Dispatch.DefaultVoice = "alloy"
	}
	if c.DB.Driver == "" {
		c.DB.Driver = "sqlite"
	}
	if c.DB.Path == "" && c.Owner != "" {
		c.DB.Path = "switchboard_" + c.Owner + ".db"
	}
	if c.DB.Host == "" {
		c.DB.Host = "127.0.0.1"
	}
	if c.DB.Port == 0 {
		c.DB.Port = 3306
	}
	if c.DB.Database == "" && c.Owner != "" {
		c.DB.Database = "switchboard_" + c.Owner
	}
	if c.Sync.Cron == "" {
		c.Sync.Cron = "*/15 * * * *"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Owner == "" {
		errs = append(errs, "owner is required")
	}
	if c.Provider.BaseURL == "" {
		errs = append(errs, "provider.base_url is required")
	}
	if c.Workflow.URL == "" {
		errs = append(errs, "workflow.url is required")
	}
	if c.DB.Driver != "sqlite" && c.DB.Driver != "mysql" {
		errs = append(errs, fmt.Sprintf("db.driver must be sqlite or mysql, got %q", c.DB.Driver))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
