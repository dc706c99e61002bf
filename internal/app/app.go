package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tradewire/ictbot/internal/config"
	"github.com/tradewire/ictbot/internal/domain"
	"github.com/tradewire/ictbot/internal/server"
	"github.com/tradewire/ictbot/internal/server/handler"
	"github.com/tradewire/ictbot/internal/server/ws"
	"github.com/tradewire/ictbot/internal/service"
)

// App is the composed application. It owns the dependency graph and runs the
// HTTP server, the WebSocket hub, and the optional reconciliation ticker
// until the context is cancelled.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New creates an App from a validated configuration.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{cfg: cfg, logger: logger}
}

// Run wires dependencies, starts all long-running components, and blocks
// until ctx is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer cleanup()

	hub := ws.NewHub(a.logger)

	trades := service.NewTradeService(
		deps.Positions,
		deps.Broker,
		deps.Resolver,
		deps.Locks,
		deps.Calendar,
		deps.Notifier,
		deps.Journal,
		hub,
		service.TradeConfig{
			FillPollInterval: a.cfg.Trade.FillPollInterval.Duration,
			FillTimeout:      a.cfg.Trade.FillTimeout.Duration,
			LockTTL:          a.cfg.Trade.LockTTL.Duration,
		},
		a.logger,
	)
	reconciler := service.NewReconciler(
		deps.Positions,
		deps.Broker,
		deps.Notifier,
		deps.Journal,
		hub,
		a.logger,
	)
	status := service.NewStatusService(deps.Positions, deps.Tokens, deps.Calendar)
	auth := service.NewAuthService(deps.Broker, deps.Tokens, deps.Notifier, a.logger)

	var opener handler.TradeOpener = trades
	if strings.EqualFold(a.cfg.Mode, config.ModeMonitor) {
		// Monitor mode observes and protects existing positions but never
		// opens new ones. Closes and reconciliation stay available.
		opener = monitorOpener{}
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, server.Handlers{
		Webhook:   handler.NewWebhookHandler(opener, a.logger),
		Reconcile: handler.NewReconcileHandler(reconciler, a.logger),
		Close:     handler.NewCloseHandler(trades, a.logger),
		Status:    handler.NewStatusHandler(status, a.logger),
		Auth:      handler.NewAuthHandler(auth, a.logger),
		Health:    handler.NewHealthHandler(),
	}, hub, a.logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(ctx)
	})

	if a.cfg.Reconcile.Enabled {
		interval := a.cfg.Reconcile.Interval.Duration
		g.Go(func() error {
			return a.runReconcileLoop(ctx, reconciler, interval)
		})
	}

	g.Go(func() error {
		a.logger.Info("application starting",
			slog.Int("port", a.cfg.Server.Port),
			slog.String("mode", strings.ToLower(a.cfg.Mode)),
			slog.Bool("journal", deps.Journal != nil),
			slog.Bool("reconcile_loop", a.cfg.Reconcile.Enabled),
		)
		if err := srv.Start(); err != nil {
			return fmt.Errorf("app: http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("http server shutdown", slog.String("error", err.Error()))
		}
		return ctx.Err()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// runReconcileLoop drives the built-in reconciliation sweep on a fixed
// interval until the context is cancelled.
func (a *App) runReconcileLoop(ctx context.Context, r *service.Reconciler, interval time.Duration) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	a.logger.Info("reconcile loop starting", slog.Duration("interval", interval))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			report, err := r.ReconcilePositions(ctx)
			if err != nil {
				a.logger.Error("reconcile sweep failed", slog.String("error", err.Error()))
				continue
			}
			changes := len(report.PartialFills) + len(report.TargetsHit) + len(report.StopsHit) + len(report.Errors)
			if changes > 0 {
				a.logger.Info("reconcile sweep",
					slog.Int("checked", report.Checked),
					slog.Int("partial_fills", len(report.PartialFills)),
					slog.Int("targets_hit", len(report.TargetsHit)),
					slog.Int("stops_hit", len(report.StopsHit)),
					slog.Int("errors", len(report.Errors)),
				)
			}
		}
	}
}

// monitorOpener rejects inbound signals while leaving the webhook endpoint
// responsive, so the alerting side sees explicit rejections instead of 404s.
type monitorOpener struct{}

func (monitorOpener) OpenPosition(_ context.Context, sig domain.Signal) (service.OpenResult, error) {
	return service.OpenResult{}, fmt.Errorf("monitor mode refuses new entries for %s: %w",
		sig.Symbol, domain.ErrInvalidAction)
}
