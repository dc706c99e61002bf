package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tradewire/ictbot/internal/domain"
	"github.com/tradewire/ictbot/internal/service"
)

// StatusReader defines the read-only views the handler requires.
type StatusReader interface {
	Home(ctx context.Context) (service.HomeStatus, error)
	Stats(ctx context.Context) (service.Stats, error)
	Positions(ctx context.Context) ([]domain.Position, error)
}

// StatusHandler serves the read-only status endpoints.
type StatusHandler struct {
	status StatusReader
	logger *slog.Logger
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(status StatusReader, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{status: status, logger: logger}
}

// Home returns the service summary.
// GET /
func (h *StatusHandler) Home(w http.ResponseWriter, r *http.Request) {
	home, err := h.status.Home(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "home read failed", slog.String("error", err.Error()))
		writeError(w, statusFor(err), "failed to read status")
		return
	}
	writeJSON(w, http.StatusOK, home)
}

// Stats returns aggregate book statistics.
// GET /stats
func (h *StatusHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.status.Stats(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "stats read failed", slog.String("error", err.Error()))
		writeError(w, statusFor(err), "failed to read stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Positions returns every open position.
// GET /positions
func (h *StatusHandler) Positions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.status.Positions(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "positions read failed", slog.String("error", err.Error()))
		writeError(w, statusFor(err), "failed to read positions")
		return
	}
	if positions == nil {
		positions = []domain.Position{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":     len(positions),
		"positions": positions,
	})
}
