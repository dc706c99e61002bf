package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Upstox.APIKey = "key"
	cfg.Upstox.APISecret = "secret"
	cfg.Upstox.RedirectURI = "https://bot.example.com/callback"
	return cfg
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad mode", func(c *Config) { c.Mode = "paper" }, "unknown mode"},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, "unknown log_level"},
		{"missing api key", func(c *Config) { c.Upstox.APIKey = "" }, "api_key"},
		{
			"no secret source",
			func(c *Config) { c.Upstox.APISecret, c.Upstox.EncryptedSecretPath = "", "" },
			"api_secret or encrypted_secret_path",
		},
		{"missing redirect in live mode", func(c *Config) { c.Upstox.RedirectURI = "" }, "redirect_uri"},
		{"bad postgres port", func(c *Config) { c.Postgres.Port = 0 }, "postgres: port"},
		{"bad server port", func(c *Config) { c.Server.Port = 70000 }, "server: port"},
		{
			"fill timeout below poll interval",
			func(c *Config) { c.Trade.FillTimeout = duration{time.Second} },
			"fill_timeout",
		},
		{
			"reconcile enabled without interval",
			func(c *Config) { c.Reconcile.Enabled = true; c.Reconcile.Interval = duration{} },
			"reconcile: interval",
		},
		{"s3 enabled without bucket", func(c *Config) { c.S3.Enabled = true; c.S3.Bucket = "" }, "s3: bucket"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q missing %q", err, tt.want)
			}
		})
	}
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
mode = "monitor"

[upstox]
api_key = "file-key"
api_secret = "file-secret"

[trade]
fill_poll_interval = "1s"
fill_timeout = "10s"

[reconcile]
enabled = true
interval = "45s"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Setenv("ICTBOT_UPSTOX_API_KEY", "env-key")
	t.Setenv("ICTBOT_SERVER_PORT", "9100")
	t.Setenv("ICTBOT_NOTIFY_EVENTS", "signal, error")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Mode != "monitor" {
		t.Errorf("mode = %q", cfg.Mode)
	}
	// Env beats file.
	if cfg.Upstox.APIKey != "env-key" {
		t.Errorf("api_key = %q", cfg.Upstox.APIKey)
	}
	// File beats defaults.
	if cfg.Trade.FillPollInterval.Duration != time.Second || cfg.Trade.FillTimeout.Duration != 10*time.Second {
		t.Errorf("trade = %+v", cfg.Trade)
	}
	if !cfg.Reconcile.Enabled || cfg.Reconcile.Interval.Duration != 45*time.Second {
		t.Errorf("reconcile = %+v", cfg.Reconcile)
	}
	// Defaults survive when nothing overrides them.
	if cfg.Upstox.BaseURL != "https://api.upstox.com/v2" {
		t.Errorf("base_url = %q", cfg.Upstox.BaseURL)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if len(cfg.Notify.Events) != 2 || cfg.Notify.Events[1] != "error" {
		t.Errorf("events = %v", cfg.Notify.Events)
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Postgres.Password = "dbpass"
	cfg.Notify.TelegramToken = "tg-token"
	cfg.Server.APIKey = "srv-key"

	red := RedactedConfig(&cfg)
	if red.Upstox.APISecret != "***" || red.Postgres.Password != "***" ||
		red.Notify.TelegramToken != "***" || red.Server.APIKey != "***" {
		t.Errorf("redacted = %+v", red)
	}
	// The original must be untouched.
	if cfg.Upstox.APISecret != "secret" {
		t.Errorf("original mutated: %+v", cfg.Upstox)
	}
	// Empty fields stay empty rather than gaining a placeholder.
	if red.Redis.Password != "" {
		t.Errorf("empty password redacted to %q", red.Redis.Password)
	}
}
