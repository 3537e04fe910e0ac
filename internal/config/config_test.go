package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if cfg.Buffering.MinFlushBytes != 16384 {
		t.Errorf("expected 16384 min flush bytes, got %d", cfg.Buffering.MinFlushBytes)
	}
	if cfg.Buffering.GetFlushInterval() != 500*time.Millisecond {
		t.Errorf("expected 500ms flush interval, got %v", cfg.Buffering.GetFlushInterval())
	}
	if cfg.Delivery.GetAudioTimeout() != 5*time.Second {
		t.Errorf("expected 5s audio timeout, got %v", cfg.Delivery.GetAudioTimeout())
	}
	if cfg.Delivery.GetRosterTimeout() != 2*time.Second {
		t.Errorf("expected 2s roster timeout, got %v", cfg.Delivery.GetRosterTimeout())
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	content := `
buffering:
  min_flush_bytes: 32768
logging:
  level: debug
  format: text
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Buffering.MinFlushBytes != 32768 {
		t.Errorf("expected override to 32768, got %d", cfg.Buffering.MinFlushBytes)
	}
	// Untouched sections keep their defaults.
	if cfg.Buffering.FlushIntervalMs != 500 {
		t.Errorf("expected default 500ms, got %d", cfg.Buffering.FlushIntervalMs)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("expected error for missing file")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"tiny flush threshold", func(c *Config) { c.Buffering.MinFlushBytes = 100 }},
		{"zero flush interval", func(c *Config) { c.Buffering.FlushIntervalMs = 0 }},
		{"sweep slower than flush", func(c *Config) { c.Buffering.SweepIntervalMs = 1000 }},
		{"zero audio timeout", func(c *Config) { c.Delivery.AudioTimeout = 0 }},
		{"bad http port", func(c *Config) { c.HTTP.Enabled = true; c.HTTP.Port = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestLoadSession(t *testing.T) {
	t.Setenv(EnvJWTToken, "token123")
	t.Setenv(EnvMeetingNumber, "9876543210")
	t.Setenv(EnvMeetingPass, "")
	t.Setenv(EnvBotName, "")
	t.Setenv(EnvBackendURL, "http://backend:8000/api/live")

	session, err := LoadSession()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.JWTToken != "token123" || session.MeetingNumber != "9876543210" {
		t.Errorf("unexpected session: %+v", session)
	}
	if session.BotName != DefaultBotName {
		t.Errorf("expected default bot name, got %q", session.BotName)
	}
}

func TestLoadSessionMissingRequired(t *testing.T) {
	t.Setenv(EnvJWTToken, "")
	t.Setenv(EnvMeetingNumber, "9876543210")

	if _, err := LoadSession(); err == nil {
		t.Errorf("expected error when %s is unset", EnvJWTToken)
	}
}

func TestSessionSanitized(t *testing.T) {
	session := &Session{JWTToken: "secret", MeetingNumber: "123", BotName: "Tech Bot"}

	sanitized := session.Sanitized()
	if sanitized["jwt_token"] != "***" {
		t.Errorf("expected masked token, got %q", sanitized["jwt_token"])
	}
	if sanitized["meeting_number"] != "123" {
		t.Errorf("expected meeting number, got %q", sanitized["meeting_number"])
	}
}
