package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Agent    AgentConfig    `mapstructure:"agent"`
	Server   ServerConfig   `mapstructure:"server"`
	Journal  JournalConfig  `mapstructure:"journal"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// AgentConfig holds simulation settings
type AgentConfig struct {
	Mode              string        `mapstructure:"mode"`
	TotalBudget       int           `mapstructure:"total_budget"`
	Seed              int64         `mapstructure:"seed"` // 0 = seed from clock
	CountdownInterval time.Duration `mapstructure:"countdown_interval"`
	StalenessInterval time.Duration `mapstructure:"staleness_interval"`
}

// ServerConfig holds the snapshot API configuration
type ServerConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// JournalConfig holds decision journal configuration
type JournalConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	DBPath       string `mapstructure:"db_path"`
	MaxDecisions int    `mapstructure:"max_decisions"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
	MinInterval    time.Duration `mapstructure:"min_interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
// An empty path or a missing file leaves the defaults in place.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("SILVERAGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Agent defaults
	v.SetDefault("agent.mode", "adaptive")
	v.SetDefault("agent.total_budget", 1000)
	v.SetDefault("agent.seed", 0)
	v.SetDefault("agent.countdown_interval", "1s")
	v.SetDefault("agent.staleness_interval", "2s")

	// Server defaults
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Journal defaults
	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.db_path", ":memory:")
	v.SetDefault("journal.max_decisions", 500)

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")
	v.SetDefault("telegram.min_interval", "10s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Agent config
	validModes := map[string]bool{"adaptive": true, "aggressive": true, "conservative": true}
	if !validModes[c.Agent.Mode] {
		return fmt.Errorf("agent.mode must be one of: adaptive, aggressive, conservative")
	}
	if c.Agent.TotalBudget < 1 {
		return fmt.Errorf("agent.total_budget must be at least 1")
	}
	if c.Agent.CountdownInterval < 100*time.Millisecond {
		return fmt.Errorf("agent.countdown_interval must be at least 100ms")
	}
	if c.Agent.StalenessInterval < 100*time.Millisecond {
		return fmt.Errorf("agent.staleness_interval must be at least 100ms")
	}

	// Validate Server config
	if c.Server.Enabled && c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required when server is enabled")
	}

	// Validate Journal config
	if c.Journal.Enabled && c.Journal.MaxDecisions < 1 {
		return fmt.Errorf("journal.max_decisions must be at least 1")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
		if c.Telegram.MinInterval < time.Second {
			return fmt.Errorf("telegram.min_interval must be at least 1s")
		}
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
