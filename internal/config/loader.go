package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads the TOML file at path, merges it over the built-in defaults,
// and applies ICTBOT_* environment overrides. The result has NOT been
// validated; call Config.Validate afterwards.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env if present; a missing file is fine.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides overwrites config fields from well-known ICTBOT_*
// variables, letting operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Upstox.BaseURL, "ICTBOT_UPSTOX_BASE_URL")
	setStr(&cfg.Upstox.APIKey, "ICTBOT_UPSTOX_API_KEY")
	setStr(&cfg.Upstox.APISecret, "ICTBOT_UPSTOX_API_SECRET")
	setStr(&cfg.Upstox.RedirectURI, "ICTBOT_UPSTOX_REDIRECT_URI")
	setStr(&cfg.Upstox.InstrumentsURL, "ICTBOT_UPSTOX_INSTRUMENTS_URL")
	setStr(&cfg.Upstox.EncryptedSecretPath, "ICTBOT_UPSTOX_ENCRYPTED_SECRET_PATH")
	setStr(&cfg.Upstox.SecretPassword, "ICTBOT_UPSTOX_SECRET_PASSWORD")

	setStr(&cfg.Postgres.DSN, "ICTBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "ICTBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ICTBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ICTBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ICTBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ICTBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ICTBOT_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "ICTBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ICTBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "ICTBOT_POSTGRES_RUN_MIGRATIONS")

	setStr(&cfg.Redis.Addr, "ICTBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ICTBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ICTBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ICTBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ICTBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ICTBOT_REDIS_TLS_ENABLED")

	setBool(&cfg.S3.Enabled, "ICTBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "ICTBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ICTBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "ICTBOT_S3_BUCKET")
	setStr(&cfg.S3.Prefix, "ICTBOT_S3_PREFIX")
	setStr(&cfg.S3.AccessKey, "ICTBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ICTBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "ICTBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ICTBOT_S3_FORCE_PATH_STYLE")

	setDuration(&cfg.Trade.FillPollInterval, "ICTBOT_TRADE_FILL_POLL_INTERVAL")
	setDuration(&cfg.Trade.FillTimeout, "ICTBOT_TRADE_FILL_TIMEOUT")
	setDuration(&cfg.Trade.LockTTL, "ICTBOT_TRADE_LOCK_TTL")

	setBool(&cfg.Reconcile.Enabled, "ICTBOT_RECONCILE_ENABLED")
	setDuration(&cfg.Reconcile.Interval, "ICTBOT_RECONCILE_INTERVAL")

	setInt(&cfg.Server.Port, "ICTBOT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "ICTBOT_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "ICTBOT_SERVER_API_KEY")

	setStr(&cfg.Notify.TelegramToken, "ICTBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ICTBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ICTBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "ICTBOT_NOTIFY_EVENTS")

	setStr(&cfg.Mode, "ICTBOT_MODE")
	setStr(&cfg.LogLevel, "ICTBOT_LOG_LEVEL")
}

// Typed env-var helpers. Each only mutates the target when the variable is
// present and non-empty.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
