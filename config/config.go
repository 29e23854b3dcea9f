package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds the service surface configuration
type ServerConfig struct {
	Transport      string  `mapstructure:"transport"`
	HTTPPort       int     `mapstructure:"http_port"`
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// EngineConfig holds the execution engine's operational settings
type EngineConfig struct {
	PythonBin      string `mapstructure:"python_bin"`
	MaxConcurrent  int    `mapstructure:"max_concurrent"`
	PollIntervalMS int    `mapstructure:"poll_interval_ms"`
	MaxCaptureKB   int    `mapstructure:"max_capture_kb"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Mode  string `mapstructure:"mode"`
	Level string `mapstructure:"level"`
}

// New loads and validates the application configuration
func New() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set default values
	viper.SetDefault("server.transport", "rest")
	viper.SetDefault("server.http_port", 8080)
	viper.SetDefault("server.rate_limit_rps", 5.0)
	viper.SetDefault("server.rate_limit_burst", 10)
	viper.SetDefault("engine.python_bin", "python3")
	viper.SetDefault("engine.max_concurrent", 8)
	viper.SetDefault("engine.poll_interval_ms", 75)
	viper.SetDefault("engine.max_capture_kb", 256)
	viper.SetDefault("logging.mode", "production")
	viper.SetDefault("logging.level", "info")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// If config file not found, continue with defaults
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

// validate ensures the configuration is valid
func (c *Config) validate() error {
	supportedTransports := map[string]bool{
		"rest":      true,
		"mcp-stdio": true,
		"mcp-http":  true,
	}
	if !supportedTransports[c.Server.Transport] {
		return fmt.Errorf("invalid server.transport: %s, must be 'rest', 'mcp-stdio' or 'mcp-http'", c.Server.Transport)
	}

	if c.Server.HTTPPort < 1 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port must be between 1 and 65535, got: %d", c.Server.HTTPPort)
	}

	if c.Server.RateLimitRPS <= 0 {
		return fmt.Errorf("server.rate_limit_rps must be positive, got: %v", c.Server.RateLimitRPS)
	}

	if c.Server.RateLimitBurst < 1 {
		return fmt.Errorf("server.rate_limit_burst must be at least 1, got: %d", c.Server.RateLimitBurst)
	}

	if c.Engine.PythonBin == "" {
		return fmt.Errorf("engine.python_bin must not be empty")
	}

	if c.Engine.MaxConcurrent < 1 {
		return fmt.Errorf("engine.max_concurrent must be at least 1, got: %d", c.Engine.MaxConcurrent)
	}

	if c.Engine.PollIntervalMS < 1 || c.Engine.PollIntervalMS > 1000 {
		return fmt.Errorf("engine.poll_interval_ms must be between 1 and 1000, got: %d", c.Engine.PollIntervalMS)
	}

	if c.Engine.MaxCaptureKB < 1 {
		return fmt.Errorf("engine.max_capture_kb must be at least 1, got: %d", c.Engine.MaxCaptureKB)
	}

	if c.Logging.Mode != "production" && c.Logging.Mode != "development" {
		return fmt.Errorf("invalid logging.mode: %s, must be 'production' or 'development'", c.Logging.Mode)
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
		"dpanic": true, "panic": true, "fatal": true,
	}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	return nil
}

// GetPollInterval returns the monitor sampling period as a duration
func (c *Config) GetPollInterval() time.Duration {
	return time.Duration(c.Engine.PollIntervalMS) * time.Millisecond
}

// GetMaxCaptureBytes returns the per-stream output cap in bytes
func (c *Config) GetMaxCaptureBytes() int {
	return c.Engine.MaxCaptureKB * 1024
}
