// Package config defines the service configuration and validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration. Fields are populated from a TOML file
// and then optionally overridden by ICTBOT_* environment variables.
type Config struct {
	Upstox    UpstoxConfig    `toml:"upstox"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Trade     TradeConfig     `toml:"trade"`
	Reconcile ReconcileConfig `toml:"reconcile"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// UpstoxConfig holds brokerage API endpoints and credentials.
type UpstoxConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	APISecret      string `toml:"api_secret"`
	RedirectURI    string `toml:"redirect_uri"`
	InstrumentsURL string `toml:"instruments_url"`

	// EncryptedSecretPath points at a file produced by the encrypt-secret
	// tool; SecretPassword decrypts it. Used when APISecret is empty.
	EncryptedSecretPath string `toml:"encrypted_secret_path"`
	SecretPassword      string `toml:"secret_password"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds the closed-position journal storage parameters. The journal
// is optional; Enabled=false skips S3 wiring entirely.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	Prefix         string `toml:"prefix"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// TradeConfig tunes the order lifecycle timings.
type TradeConfig struct {
	FillPollInterval duration `toml:"fill_poll_interval"`
	FillTimeout      duration `toml:"fill_timeout"`
	LockTTL          duration `toml:"lock_ttl"`
}

// ReconcileConfig controls the built-in reconciliation ticker. When disabled,
// reconciliation runs only via POST /check_positions.
type ReconcileConfig struct {
	Enabled  bool     `toml:"enabled"`
	Interval duration `toml:"interval"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration wraps time.Duration so the TOML decoder accepts strings like
// "30s" or "2m".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Upstox: UpstoxConfig{
			BaseURL:        "https://api.upstox.com/v2",
			InstrumentsURL: "https://assets.upstox.com/market-quote/instruments/exchange/complete.json.gz",
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "ictbot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "ictbot-journal",
			ForcePathStyle: true,
		},
		Trade: TradeConfig{
			FillPollInterval: duration{2 * time.Second},
			FillTimeout:      duration{30 * time.Second},
			LockTTL:          duration{60 * time.Second},
		},
		Reconcile: ReconcileConfig{
			Enabled:  false,
			Interval: duration{30 * time.Second},
		},
		Server: ServerConfig{
			Port: 8000,
		},
		Notify: NotifyConfig{
			Events: []string{"signal", "position", "error"},
		},
		Mode:     "live",
		LogLevel: "info",
	}
}

// Operating modes. ModeMonitor runs the read endpoints and reconciliation
// without accepting new signals.
const (
	ModeLive    = "live"
	ModeMonitor = "monitor"
)

var validModes = map[string]bool{
	ModeLive:    true,
	ModeMonitor: true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the configuration and returns a combined error describing
// every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: live, monitor)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Upstox.BaseURL == "" {
		errs = append(errs, "upstox: base_url must not be empty")
	}
	if c.Upstox.APIKey == "" {
		errs = append(errs, "upstox: api_key must not be empty")
	}
	if c.Upstox.APISecret == "" && c.Upstox.EncryptedSecretPath == "" {
		errs = append(errs, "upstox: either api_secret or encrypted_secret_path must be set")
	}
	if c.Upstox.EncryptedSecretPath != "" && c.Upstox.APISecret == "" && c.Upstox.SecretPassword == "" {
		errs = append(errs, "upstox: secret_password is required when encrypted_secret_path is set")
	}
	if strings.ToLower(c.Mode) == ModeLive && c.Upstox.RedirectURI == "" {
		errs = append(errs, "upstox: redirect_uri must not be empty in live mode")
	}

	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must be between 0 and pool_max_conns")
	}

	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when enabled")
		}
	}

	if c.Trade.FillPollInterval.Duration <= 0 {
		errs = append(errs, "trade: fill_poll_interval must be > 0")
	}
	if c.Trade.FillTimeout.Duration < c.Trade.FillPollInterval.Duration {
		errs = append(errs, "trade: fill_timeout must be >= fill_poll_interval")
	}
	if c.Trade.LockTTL.Duration <= 0 {
		errs = append(errs, "trade: lock_ttl must be > 0")
	}

	if c.Reconcile.Enabled && c.Reconcile.Interval.Duration <= 0 {
		errs = append(errs, "reconcile: interval must be > 0 when enabled")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
