package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete bot configuration
type Config struct {
	Buffering BufferingConfig `yaml:"buffering"`
	Delivery  DeliveryConfig  `yaml:"delivery"`
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// BufferingConfig contains the per-speaker buffer flush policy
type BufferingConfig struct {
	MinFlushBytes   int `yaml:"min_flush_bytes"`
	FlushIntervalMs int `yaml:"flush_interval_ms"`
	SweepIntervalMs int `yaml:"sweep_interval_ms"`
}

// DeliveryConfig contains backend delivery timeouts
type DeliveryConfig struct {
	AudioTimeout  int `yaml:"audio_timeout"`  // seconds
	RosterTimeout int `yaml:"roster_timeout"` // seconds
}

// HTTPConfig contains the monitoring API server configuration
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
	Enabled bool   `yaml:"enabled"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	return &Config{
		Buffering: BufferingConfig{
			MinFlushBytes:   16384,
			FlushIntervalMs: 500,
			SweepIntervalMs: 100,
		},
		Delivery: DeliveryConfig{
			AudioTimeout:  5,
			RosterTimeout: 2,
		},
		HTTP: HTTPConfig{
			Port:    8080,
			Address: "0.0.0.0",
			Enabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate performs validation of the configuration
func (c *Config) Validate() error {
	if err := c.Buffering.Validate(); err != nil {
		return fmt.Errorf("buffering config: %w", err)
	}

	if err := c.Delivery.Validate(); err != nil {
		return fmt.Errorf("delivery config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates the buffering configuration
func (b *BufferingConfig) Validate() error {
	if b.MinFlushBytes < 1024 {
		return fmt.Errorf("min_flush_bytes must be at least 1024, got %d", b.MinFlushBytes)
	}

	if b.FlushIntervalMs < 10 {
		return fmt.Errorf("flush_interval_ms must be at least 10, got %d", b.FlushIntervalMs)
	}

	if b.SweepIntervalMs < 1 {
		return fmt.Errorf("sweep_interval_ms must be at least 1, got %d", b.SweepIntervalMs)
	}

	if b.SweepIntervalMs > b.FlushIntervalMs {
		return fmt.Errorf("sweep_interval_ms (%d) must not exceed flush_interval_ms (%d)",
			b.SweepIntervalMs, b.FlushIntervalMs)
	}

	return nil
}

// Validate validates the delivery configuration
func (d *DeliveryConfig) Validate() error {
	if d.AudioTimeout < 1 {
		return fmt.Errorf("audio_timeout must be at least 1 second, got %d", d.AudioTimeout)
	}

	if d.RosterTimeout < 1 {
		return fmt.Errorf("roster_timeout must be at least 1 second, got %d", d.RosterTimeout)
	}

	return nil
}

// Validate validates the HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates the logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetFlushInterval returns the flush interval as a time.Duration
func (b *BufferingConfig) GetFlushInterval() time.Duration {
	return time.Duration(b.FlushIntervalMs) * time.Millisecond
}

// GetSweepInterval returns the sweep interval as a time.Duration
func (b *BufferingConfig) GetSweepInterval() time.Duration {
	return time.Duration(b.SweepIntervalMs) * time.Millisecond
}

// GetAudioTimeout returns the audio delivery timeout as a time.Duration
func (d *DeliveryConfig) GetAudioTimeout() time.Duration {
	return time.Duration(d.AudioTimeout) * time.Second
}

// GetRosterTimeout returns the roster delivery timeout as a time.Duration
func (d *DeliveryConfig) GetRosterTimeout() time.Duration {
	return time.Duration(d.RosterTimeout) * time.Second
}
