// Package server exposes the HTTP and WebSocket surface of the service.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tradewire/ictbot/internal/server/handler"
	"github.com/tradewire/ictbot/internal/server/middleware"
	"github.com/tradewire/ictbot/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Webhook   *handler.WebhookHandler
	Reconcile *handler.ReconcileHandler
	Close     *handler.CloseHandler
	Status    *handler.StatusHandler
	Auth      *handler.AuthHandler
	Health    *handler.HealthHandler
}

// Server is the HTTP + WebSocket front of the trading service.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers all routes and builds the middleware chain. The signal
// and control endpoints sit behind API-key auth; the OAuth flow, health
// check, and event stream stay open so the brokerage redirect and monitors
// work without a key.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	protect := middleware.Auth(cfg.APIKey)

	mux.Handle("POST /webhook", protect(http.HandlerFunc(handlers.Webhook.Receive)))
	mux.Handle("POST /check_positions", protect(http.HandlerFunc(handlers.Reconcile.Check)))
	mux.Handle("POST /close/{symbol}", protect(http.HandlerFunc(handlers.Close.CloseOne)))
	mux.Handle("POST /close_all", protect(http.HandlerFunc(handlers.Close.CloseAll)))

	mux.HandleFunc("GET /{$}", handlers.Status.Home)
	mux.HandleFunc("GET /stats", handlers.Status.Stats)
	mux.HandleFunc("GET /positions", handlers.Status.Positions)
	mux.HandleFunc("GET /api/health", handlers.Health.Check)

	mux.HandleFunc("GET /login", handlers.Auth.Login)
	mux.HandleFunc("GET /callback", handlers.Auth.Callback)

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Logging(logger)(h)
	h = corsMiddleware(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{httpServer: srv, logger: logger}
}

// Start blocks serving requests until the server errors or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// corsMiddleware sets CORS headers for the allowed origins. No configured
// origins means all origins are allowed.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" {
				allowed := len(allowedOrigins) == 0
				for _, o := range allowedOrigins {
					if strings.EqualFold(o, "*") || strings.EqualFold(o, origin) {
						allowed = true
						break
					}
				}
				if allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
					w.Header().Set("Access-Control-Max-Age", "86400")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
