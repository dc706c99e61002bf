package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/tradewire/ictbot/internal/blob/s3"
	"github.com/tradewire/ictbot/internal/cache/redis"
	"github.com/tradewire/ictbot/internal/config"
	"github.com/tradewire/ictbot/internal/crypto"
	"github.com/tradewire/ictbot/internal/domain"
	"github.com/tradewire/ictbot/internal/instrument"
	"github.com/tradewire/ictbot/internal/market"
	"github.com/tradewire/ictbot/internal/notify"
	"github.com/tradewire/ictbot/internal/platform/upstox"
	"github.com/tradewire/ictbot/internal/store/postgres"
)

// Dependencies bundles every concrete collaborator the application needs.
// It is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Positions domain.PositionStore
	Tokens    domain.TokenStore
	Locks     domain.LockManager
	Broker    *upstox.Client
	Resolver  domain.InstrumentResolver
	Calendar  domain.MarketCalendar
	Notifier  *notify.Notifier
	Journal   domain.Journal // nil when the S3 journal is disabled
}

// Wire constructs all concrete dependencies from cfg and returns them with a
// cleanup function releasing resources in reverse order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// Postgres: position book and credential store.
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.Positions = postgres.NewPositionStore(pool)
	deps.Tokens = postgres.NewTokenStore(pool)

	// Redis: per-symbol locks and the shared instrument cache.
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.Locks = redis.NewLockManager(redisClient)
	instrumentCache := redis.NewInstrumentCache(redisClient)

	// Notifications.
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// Brokerage gateway. The API secret may live encrypted on disk.
	apiSecret, err := crypto.LoadSecret(crypto.SecretConfig{
		RawSecret:           cfg.Upstox.APISecret,
		EncryptedSecretPath: cfg.Upstox.EncryptedSecretPath,
		SecretPassword:      cfg.Upstox.SecretPassword,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: upstox secret: %w", err)
	}
	deps.Broker = upstox.NewClient(upstox.Config{
		BaseURL:        cfg.Upstox.BaseURL,
		APIKey:         cfg.Upstox.APIKey,
		APISecret:      apiSecret,
		RedirectURI:    cfg.Upstox.RedirectURI,
		InstrumentsURL: cfg.Upstox.InstrumentsURL,
	}, deps.Tokens, deps.Notifier, logger)

	deps.Resolver = instrument.NewResolver(deps.Broker, instrumentCache, logger)
	deps.Calendar = market.NewCalendar()

	// Closed-position journal.
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Journal = s3blob.NewJournal(s3Client, cfg.S3.Prefix)
	}

	return deps, cleanup, nil
}
